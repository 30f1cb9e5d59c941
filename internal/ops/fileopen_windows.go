//go:build windows

package ops

import "os"

// openFileNoFollow opens an export file for writing. O_NOFOLLOW does not
// exist on Windows; ValidatePath has already rejected symlinked paths.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}
