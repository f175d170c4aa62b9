package tpu

import "strings"

// DefaultRuntime is the TPU software version for accelerator generations
// without a dedicated runtime.
const DefaultRuntime = "tpu-ubuntu2204-base"

var runtimes = []struct {
	marker  string
	runtime string
}{
	{"v6e", "v2-alpha-tpuv6e"},
	{"v5p", "v2-alpha-tpuv5"},
	{"v5lite", "v2-alpha-tpuv5-lite"},
}

// SelectRuntime returns the runtime version for an accelerator type. Markers
// are matched as substrings in a fixed order.
func SelectRuntime(acceleratorType string) string {
	for _, r := range runtimes {
		if strings.Contains(acceleratorType, r.marker) {
			return r.runtime
		}
	}
	return DefaultRuntime
}
