package pymod

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// extensionSuffixes are the file suffixes of compiled extension modules.
var extensionSuffixes = []string{".so", ".pyd", ".abi3.so"}

// Paths resolves modules by probing directories the way Python's path-based
// finder does: a regular package (name/__init__.py), a source or bytecode
// module, a compiled extension, or a namespace package directory.
type Paths struct {
	Dirs []string
}

// NewPaths builds a Paths resolver from a PYTHONPATH-style list.
func NewPaths(list string) Paths {
	var dirs []string
	for _, d := range filepath.SplitList(list) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return Paths{Dirs: dirs}
}

func (p Paths) Resolve(ctx context.Context, name string) (bool, error) {
	rel := filepath.Join(strings.Split(name, ".")...)
	for _, dir := range p.Dirs {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if found(filepath.Join(dir, rel)) {
			return true, nil
		}
	}
	return false, nil
}

func found(base string) bool {
	if isFile(filepath.Join(base, "__init__.py")) || isFile(base+".py") || isFile(base+".pyc") {
		return true
	}
	for _, suffix := range extensionSuffixes {
		if isFile(base + suffix) {
			return true
		}
	}
	// Versioned extensions: name.cpython-312-x86_64-linux-gnu.so
	if matches, _ := filepath.Glob(base + ".*" + ".so"); len(matches) > 0 {
		return true
	}
	info, err := os.Stat(base)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
