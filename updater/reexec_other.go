//go:build !unix

package updater

import (
	"CommunityBot/fault"
)

// Reexec is not available on this platform; callers fall back to an
// in-process restart.
func Reexec(binary string) error {
	return fault.Newf(fault.Filesystem, "re-exec", "re-exec of %s not supported on this platform", binary)
}
