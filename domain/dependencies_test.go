package domain_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/deckforge/addonhost/"

// TestDomainImportsOnlyDomain keeps the domain layer free of host,
// infrastructure and third-party imports. Test files are exempt.
func TestDomainImportsOnlyDomain(t *testing.T) {
	fset := token.NewFileSet()

	for _, pkg := range []string{"entities", "errors", "ports"} {
		files, err := filepath.Glob(filepath.Join(pkg, "*.go"))
		require.NoError(t, err)
		require.NotEmpty(t, files, "domain/%s has no Go files", pkg)

		for _, file := range files {
			if strings.HasSuffix(file, "_test.go") {
				continue
			}
			f, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
			require.NoError(t, err, "parse %s", file)

			for _, imp := range f.Imports {
				path := strings.Trim(imp.Path.Value, `"`)
				if strings.HasPrefix(path, modulePath) {
					assert.True(t, strings.HasPrefix(path, modulePath+"domain/"),
						"domain/%s (%s) imports %s", pkg, filepath.Base(file), path)
					continue
				}
				assert.NotContains(t, strings.SplitN(path, "/", 2)[0], ".",
					"domain/%s (%s) imports third-party package %s", pkg, filepath.Base(file), path)
			}
		}
	}
}
