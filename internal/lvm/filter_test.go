package lvm

import "testing"

// S2. Filter build (§8).
func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name      string
		devices   []string
		allowlist []string
		want      string
	}{
		{
			"two devices, no allowlist",
			[]string{"/dev/mapper/a", "/dev/mapper/b"},
			nil,
			`["a|^/dev/mapper/a$|^/dev/mapper/b$|", "r|.*|"]`,
		},
		{
			"empty everything rejects all",
			nil,
			nil,
			`["r|.*|"]`,
		},
		{
			"unsorted input is sorted and deduped",
			[]string{"/dev/mapper/z", "/dev/mapper/a", "/dev/mapper/a"},
			[]string{"/dev/mapper/m", ""},
			`["a|^/dev/mapper/a$|^/dev/mapper/m$|^/dev/mapper/z$|", "r|.*|"]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFilter(tt.devices, tt.allowlist)
			if got != tt.want {
				t.Errorf("BuildFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeFilterDevice(t *testing.T) {
	got := escapeFilterDevice(`/dev/mapper/a\b`)
	want := `/dev/mapper/a\\b`
	if got != want {
		t.Errorf("escapeFilterDevice() = %q, want %q", got, want)
	}
}
