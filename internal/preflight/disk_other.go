//go:build !(darwin || freebsd || linux || netbsd)

package preflight

// MinDiskSpaceBytes is the free space the build step needs (50 MB).
const MinDiskSpaceBytes = 50 * 1024 * 1024

// CheckDiskSpace is not implemented on this platform.
func (c *Checker) CheckDiskSpace(string) CheckResult {
	return CheckResult{
		Name:    "disk_space",
		Status:  StatusWarn,
		Message: "not checked on this platform",
	}
}
