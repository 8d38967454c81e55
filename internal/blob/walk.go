package blob

import (
	"io/fs"
	"path/filepath"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

// walkMatching enumerates regular files under root whose path (relative
// to root, slash-separated) matches at least one include glob (or all
// files, if include is empty) and none of the exclude globs, per
// spec.md section 4.10's directory-upload algorithm step 1.
func walkMatching(root string, include, exclude []string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if len(include) > 0 && !matchesAny(rel, include) {
			return nil
		}
		if matchesAny(rel, exclude) {
			return nil
		}
		matches = append(matches, rel)
		return nil
	})
	if err != nil {
		return nil, errs.InvalidArgument("failed to walk source directory").WithCause(err)
	}
	return matches, nil
}

func matchesAny(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
	}
	return false
}
