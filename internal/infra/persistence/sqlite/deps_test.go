// Package sqlite provides dependency boundary tests for the sqlite persistence backend.
package sqlite

import (
	"go/build"
	"strings"
	"testing"
)

var allowedModuleImports = map[string]struct{}{
	"spycats/pkg/domain":                                   {},
	"spycats/internal/infra/persistence/sqlstore":          {},
	"spycats/internal/infra/persistence/sqlite/migrations": {},
}

func TestImportsAreDomainOrPersistence(t *testing.T) {
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("import dir: %v", err)
	}
	for _, imp := range pkg.Imports {
		if !strings.HasPrefix(imp, "spycats/") {
			continue
		}
		if _, ok := allowedModuleImports[imp]; ok {
			continue
		}
		t.Fatalf("unexpected dependency: %s", imp)
	}
}
