package vfs

import (
	"strings"

	"github.com/banksean/vcontainer/vpath"
)

// moduleExtensions are tried in order against a resolved path that isn't
// itself an existing file, per spec.md §4.1 step 3.
var moduleExtensions = []string{".js", ".mjs"}

// ResolveModule implements spec.md §4.1's module resolution algorithm:
//  1. relative specifiers ("./x", "../x") resolve against dirname(basePath)
//     using a strict segment-stack walk that rejects climbing above root;
//     anything else is normalized as-is.
//  2. an existing file at the resolved path wins outright.
//  3. each of .js/.mjs is tried as a suffix.
//  4. if the resolved path is a directory, step 3 repeats against
//     resolved + "/index".
//  5. otherwise resolution fails with a *ModuleNotFoundError.
func (f *FS) ResolveModule(specifier, basePath string) (string, error) {
	var resolved string
	if strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") {
		r, err := vpath.ResolveRelative(vpath.Dirname(basePath), specifier)
		if err != nil {
			return "", err
		}
		resolved = r
	} else {
		resolved = vpath.Normalize(specifier)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, ok := f.files[resolved]; ok {
		return resolved, nil
	}

	for _, ext := range moduleExtensions {
		candidate := resolved + ext
		if _, ok := f.files[candidate]; ok {
			return candidate, nil
		}
	}

	if _, ok := f.dirs[resolved]; ok {
		indexBase := resolved + "/index"
		for _, ext := range moduleExtensions {
			candidate := indexBase + ext
			if _, ok := f.files[candidate]; ok {
				return candidate, nil
			}
		}
	}

	return "", &ModuleNotFoundError{Specifier: specifier, Resolved: resolved}
}
