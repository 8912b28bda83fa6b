package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileExists reports whether path names an existing file or directory
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// UniquePath returns path unchanged when nothing exists there, otherwise the
// first free "name-N.ext" sibling. Several articles generated on one day
// would otherwise share reading_<date>.md.
func UniquePath(path string) string {
	if !FileExists(path) {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if !FileExists(candidate) {
			return candidate
		}
	}
}
