package inspect

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"github.com/spf13/afero"
)

// Direction selects which neighbor SiblingComic should find.
type Direction int

const (
	Next Direction = iota
	Previous
)

// IsComicFile reports whether a path has a comic/document extension the
// reader can open.
func IsComicFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".cbz", ".rar", ".cbr", ".7z", ".cb7", ".epub", ".pdf":
		return true
	default:
		return false
	}
}

// SiblingComic finds the comic file alphabetically adjacent to path inside
// the same folder, using a case-insensitive, number-aware ordering. Returns
// "" when path is already at the edge.
func SiblingComic(fs afero.Fs, path string, dir Direction) (string, error) {
	parent := filepath.Dir(path)
	infos, err := afero.ReadDir(fs, parent)
	if err != nil {
		return "", err
	}

	var comics []string
	for _, info := range infos {
		if info.IsDir() || !IsComicFile(info.Name()) {
			continue
		}
		comics = append(comics, info.Name())
	}
	sort.SliceStable(comics, func(i, j int) bool {
		return natural.Less(strings.ToLower(comics[i]), strings.ToLower(comics[j]))
	})

	self := filepath.Base(path)
	for i, name := range comics {
		if name != self {
			continue
		}
		switch dir {
		case Next:
			if i+1 < len(comics) {
				return filepath.Join(parent, comics[i+1]), nil
			}
		case Previous:
			if i > 0 {
				return filepath.Join(parent, comics[i-1]), nil
			}
		}
		return "", nil
	}
	return "", nil
}
