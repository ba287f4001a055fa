package config

import "testing"

func TestLoadToleratesMissingConfigFile(t *testing.T) {
	l := NewLoader(nil)
	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load() must tolerate a missing config file, got: %v", err)
	}
	if cfg == nil {
		t.Fatalf("expected a non-nil Config")
	}
}

func TestWhitelistParsing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "/dev/mapper/a", []string{"/dev/mapper/a"}},
		{"multiple with whitespace and blanks", " /dev/mapper/a ,,/dev/mapper/b", []string{"/dev/mapper/a", "/dev/mapper/b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{IRS: IRS{LVMDevWhitelist: tt.raw}}
			got := cfg.Whitelist()
			if len(got) != len(tt.want) {
				t.Fatalf("Whitelist() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Whitelist()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestWhitelistOnNilConfig(t *testing.T) {
	var cfg *Config
	if got := cfg.Whitelist(); got != nil {
		t.Errorf("expected nil Whitelist() on nil *Config, got %v", got)
	}
}
