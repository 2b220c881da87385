package cdm

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// Group is the archives of one machine folder and one year folder.
type Group struct {
	Folder string
	Year   string
	Files  []string
}

// Key returns "<folder>_<year>", the suffix of the group's output names.
func (g Group) Key() string {
	return g.Folder + "_" + g.Year
}

// EventsName returns the output name of the group's event table.
func (g Group) EventsName() string {
	return EventsPrefix + g.Key()
}

// MetadataName returns the output name of the group's metadata table.
func (g Group) MetadataName() string {
	return MetadataPrefix + g.Key()
}

// fileProcessor discovers archives below an input root
type fileProcessor struct {
	validator *validator
}

// newFileProcessor creates a new file processor instance
func newFileProcessor() *fileProcessor {
	return &fileProcessor{
		validator: newValidator(),
	}
}

// isArchive reports whether path names a device archive; the suffix is
// matched case-insensitively.
func isArchive(path string) bool {
	return strings.EqualFold(filepath.Ext(path), model.ExtLOX)
}

// collectArchives walks root and returns every archive path in lexical order
func (fp *fileProcessor) collectArchives(root string) ([]string, error) {
	if err := fp.validator.validateInputRoot(root); err != nil {
		return nil, err
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isArchive(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, NewErrorContext("discover", root).Error(err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrNoInput, root)
	}
	return paths, nil
}

// groupArchives groups archive paths by their grandparent (machine folder)
// and parent (year) directory names. Groups keep the order in which they are
// first seen and files keep their input order.
func groupArchives(paths []string) []Group {
	keyOf := func(p string) [2]string {
		dir := filepath.Dir(p)
		return [2]string{filepath.Base(filepath.Dir(dir)), filepath.Base(dir)}
	}

	byKey := lo.GroupBy(paths, keyOf)
	keys := lo.Uniq(lo.Map(paths, func(p string, _ int) [2]string { return keyOf(p) }))

	return lo.Map(keys, func(k [2]string, _ int) Group {
		return Group{Folder: k[0], Year: k[1], Files: byKey[k]}
	})
}
