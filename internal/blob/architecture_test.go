package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestInfraBlobStaysBehindFacade verifies the layering rule for archive
// storage: everything outside this package talks to blob.Store, never to the
// infra-backed drivers directly.
func TestInfraBlobStaysBehindFacade(t *testing.T) {
	const (
		infraPrefix  = "ordercore/internal/infra/blob"
		facadePrefix = "ordercore/internal/blob"
	)

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "ordercore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	var violations []string
	for _, pkg := range pkgs {
		// Test variants carry a " [pkg.test]" suffix, so match on the raw prefix.
		if strings.HasPrefix(pkg.PkgPath, facadePrefix) || strings.HasPrefix(pkg.PkgPath, infraPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if underPrefix(importPath, infraPrefix) {
				violations = append(violations, pkg.PkgPath+" imports "+importPath)
			}
		}
	}

	sort.Strings(violations)
	for _, v := range violations {
		t.Errorf("infra blob driver imported outside the blob facade: %s", v)
	}
}

func underPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
