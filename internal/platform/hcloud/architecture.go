package hcloud

import (
	"strings"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// Architecture represents a CPU architecture supported by Hetzner Cloud.
type Architecture string

const (
	// ArchAMD64 represents x86_64 architecture (Intel/AMD processors).
	ArchAMD64 Architecture = "amd64"

	// ArchARM64 represents ARM64 architecture (CAX servers).
	ArchARM64 Architecture = "arm64"
)

// DefaultImage is the operating system image of created workers.
const DefaultImage = "ubuntu-24.04"

// DetectArchitecture determines the CPU architecture from a Hetzner Cloud server type.
// CAX server types (e.g., cax11, cax21) use ARM64 architecture.
// All other server types use AMD64 (x86_64) architecture.
func DetectArchitecture(serverType string) Architecture {
	if strings.HasPrefix(serverType, "cax") {
		return ArchARM64
	}
	return ArchAMD64
}

// SelectImage is the runtime selector of the Hetzner provider. Every server
// type boots the same image; the architecture variant is resolved at create
// time from the server type.
func SelectImage(string) string {
	return DefaultImage
}

// String returns the string representation of the architecture.
func (a Architecture) String() string {
	return string(a)
}

// HCloud returns the architecture name used by the Hetzner Cloud API.
func (a Architecture) HCloud() hcloud.Architecture {
	if a == ArchARM64 {
		return hcloud.ArchitectureARM
	}
	return hcloud.ArchitectureX86
}
