//go:build unix

package updater

import (
	"os"
	"syscall"

	"CommunityBot/fault"
)

// Reexec replaces the current process image with binary, keeping arguments
// and environment. It only returns on failure.
func Reexec(binary string) error {
	if _, err := os.Stat(binary); err != nil {
		return fault.WithPath(fault.Filesystem, "re-exec", binary, err)
	}
	args := append([]string{binary}, os.Args[1:]...)
	return fault.WithPath(fault.Filesystem, "re-exec", binary, syscall.Exec(binary, args, os.Environ()))
}
