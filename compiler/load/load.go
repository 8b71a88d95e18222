// Package load finds the annotated source files of Go packages.
//
// A file is annotated when its build constraint requires the generator tag,
// as in //go:build stateshift or //go:build stateshift && linux. Such files
// are invisible to a normal build; the generated companions carry the
// negated tag and take their place.
package load

import (
	"context"
	"errors"
	"fmt"
	"go/build/constraint"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Config controls how packages are loaded.
type Config struct {
	// Tag is the generator build tag. It is added to the build flags so the
	// annotated files are part of the loaded packages.
	Tag string
	// BuildFlags are passed to the build system, e.g. additional -tags.
	BuildFlags []string
	// Dir is the directory patterns are resolved in. Empty means the
	// current directory.
	Dir string
	// IsOutput reports generated file names, which are never sources.
	IsOutput func(name string) bool
}

// Package is a loaded package with its annotated sources.
type Package struct {
	ID      string
	Name    string
	Dir     string
	Sources []string // absolute file names, sorted
}

// Load resolves patterns (package patterns such as ./... or .go file names)
// and returns the packages holding annotated files. Packages without any are
// left out.
func Load(ctx context.Context, cfg Config, patterns ...string) ([]*Package, error) {
	if cfg.Tag == "" {
		return nil, errors.New("load: empty build tag")
	}
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	var (
		pkgs  []*Package
		files []string
		pats  []string
	)
	for _, p := range patterns {
		if strings.HasSuffix(p, ".go") {
			files = append(files, p)
		} else {
			pats = append(pats, p)
		}
	}
	if len(files) > 0 {
		pkg, err := loadFiles(cfg, files)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, pkg)
	}
	if len(pats) == 0 {
		return pkgs, nil
	}

	lc := &packages.Config{
		Context:    ctx,
		Mode:       packages.NeedName | packages.NeedFiles,
		Dir:        cfg.Dir,
		BuildFlags: append(slices.Clone(cfg.BuildFlags), "-tags="+cfg.Tag),
	}
	loaded, err := packages.Load(lc, pats...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", strings.Join(pats, " "), err)
	}
	var errs []error
	for _, lp := range loaded {
		for _, e := range lp.Errors {
			errs = append(errs, fmt.Errorf("load %s: %s", lp.PkgPath, e))
		}
		pkg := &Package{ID: lp.ID, Name: lp.Name}
		for _, f := range lp.GoFiles {
			if pkg.Dir == "" {
				pkg.Dir = filepath.Dir(f)
			}
			ok, err := cfg.source(f)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				pkg.Sources = append(pkg.Sources, f)
			}
		}
		if len(pkg.Sources) > 0 {
			slices.Sort(pkg.Sources)
			pkgs = append(pkgs, pkg)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return pkgs, nil
}

// Sources returns the annotated files of pkgs.
func Sources(pkgs []*Package) []string {
	var out []string
	for _, p := range pkgs {
		out = append(out, p.Sources...)
	}
	return out
}

// loadFiles groups explicitly named files into one pseudo package.
func loadFiles(cfg Config, files []string) (*Package, error) {
	pkg := &Package{ID: "command-line-arguments"}
	var errs []error
	for _, f := range files {
		if !filepath.IsAbs(f) && cfg.Dir != "" {
			f = filepath.Join(cfg.Dir, f)
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ok, err := cfg.source(abs)
		switch {
		case err != nil:
			errs = append(errs, err)
		case !ok:
			errs = append(errs, fmt.Errorf("load %s: file is not guarded by //go:build %s", f, cfg.Tag))
		default:
			pkg.Sources = append(pkg.Sources, abs)
			pkg.Dir = filepath.Dir(abs)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return pkg, nil
}

// source reports whether the file name is an annotated source.
func (cfg Config) source(name string) (bool, error) {
	base := filepath.Base(name)
	if strings.HasSuffix(base, "_test.go") || (cfg.IsOutput != nil && cfg.IsOutput(base)) {
		return false, nil
	}
	src, err := os.ReadFile(name)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", name, err)
	}
	return Guarded(name, src, cfg.Tag)
}

// Guarded reports whether the build constraint of src requires tag.
func Guarded(name string, src []byte, tag string) (bool, error) {
	f, err := parser.ParseFile(token.NewFileSet(), name, src, parser.PackageClauseOnly|parser.ParseComments)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", name, err)
	}
	for _, g := range f.Comments {
		if g.Pos() >= f.Package {
			break
		}
		for _, c := range g.List {
			if !constraint.IsGoBuild(c.Text) {
				continue
			}
			x, err := constraint.Parse(c.Text)
			if err != nil {
				return false, fmt.Errorf("load %s: %w", name, err)
			}
			return requires(x, tag), nil
		}
	}
	return false, nil
}

// requires reports whether tag is a top-level conjunct of x.
func requires(x constraint.Expr, tag string) bool {
	switch x := x.(type) {
	case *constraint.TagExpr:
		return x.Tag == tag
	case *constraint.AndExpr:
		return requires(x.X, tag) || requires(x.Y, tag)
	}
	return false
}
