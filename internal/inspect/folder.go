package inspect

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// ListImageFolder enumerates the image files directly inside a directory.
// Subdirectories are not descended into; a folder opened as a comic is one
// chapter, not a library.
func ListImageFolder(fs afero.Fs, dir string) Result {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return errResult(fmt.Errorf("inspect: read folder %s: %w", dir, err))
	}

	var entries []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		if strings.HasPrefix(name, ".") || isJunkEntry(name) || !IsImageEntry(name) {
			continue
		}
		entries = append(entries, info.Name())
	}
	return okResult(entries)
}
