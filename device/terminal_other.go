//go:build !windows

package device

// supportsSyncOutput is true everywhere except the Windows console, which
// ignores synchronized output.
const supportsSyncOutput = true
