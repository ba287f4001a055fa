package lvm

import (
	"sort"
	"strings"
)

// BuildFilter implements the Filter Builder (§4.1): union the multipath
// device list with the static allowlist, drop the empty string, and either
// emit a sorted accept-list filter or, if no devices are known, reject
// everything.
func BuildFilter(multipathDevices, allowlist []string) string {
	seen := make(map[string]bool, len(multipathDevices)+len(allowlist))
	devices := make([]string, 0, len(multipathDevices)+len(allowlist))
	for _, set := range [][]string{multipathDevices, allowlist} {
		for _, d := range set {
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			devices = append(devices, d)
		}
	}

	if len(devices) == 0 {
		return `["r|.*|"]`
	}

	sort.Strings(devices)

	var accept strings.Builder
	accept.WriteString("a|")
	for _, d := range devices {
		accept.WriteString("^")
		accept.WriteString(escapeFilterDevice(d))
		accept.WriteString("$|")
	}

	return `["` + accept.String() + `", "r|.*|"]`
}

// escapeFilterDevice doubles literal backslashes so the device path is safe
// to embed inside the filter's regex alternation.
func escapeFilterDevice(d string) string {
	return strings.ReplaceAll(d, `\`, `\\`)
}
