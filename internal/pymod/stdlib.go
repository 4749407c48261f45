package pymod

import (
	"bufio"
	"context"
	_ "embed"
	"strings"
)

//go:embed stdlib.txt
var stdlibList string

var stdlibModules = func() map[string]struct{} {
	m := make(map[string]struct{}, 512)
	sc := bufio.NewScanner(strings.NewReader(stdlibList))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m[line] = struct{}{}
	}
	return m
}()

// Stdlib resolves the modules shipped with CPython 3.12. Submodules are
// only known for the packages listed in stdlib.txt.
type Stdlib struct{}

func (Stdlib) Resolve(_ context.Context, name string) (bool, error) {
	_, ok := stdlibModules[name]
	return ok, nil
}
