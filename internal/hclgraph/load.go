package hclgraph

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/framegraph/internal/ctxlog"
)

// FileExtension is the extension of graph files picked up from directories.
const FileExtension = ".hcl"

// Loader reads graph files into a Model.
type Loader struct{}

// NewLoader creates a new HCL graph loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every graph file found under paths. Directories are walked
// recursively; missing paths are skipped. Kind and scope names must be unique
// across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL graph loader started.", "path_count", len(paths))

	files, err := findGraphFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered graph files.", "count", len(files))

	parser := hclparse.NewParser()
	model := &Model{}
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse graph file %s: %w", file, diags)
		}
		if err := l.decodeInto(ctx, model, file, f.Body); err != nil {
			return nil, err
		}
	}
	if err := validateModel(model); err != nil {
		return nil, err
	}

	logger.Debug("HCL graph loading complete.", "kinds", len(model.Kinds), "scopes", len(model.Scopes))
	return model, nil
}

// LoadSource parses a single in-memory graph file. filename is only used in
// diagnostics.
func (l *Loader) LoadSource(ctx context.Context, filename string, src []byte) (*Model, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse graph file %s: %w", filename, diags)
	}
	model := &Model{}
	if err := l.decodeInto(ctx, model, filename, f.Body); err != nil {
		return nil, err
	}
	if err := validateModel(model); err != nil {
		return nil, err
	}
	return model, nil
}

func (l *Loader) decodeInto(ctx context.Context, model *Model, file string, body hcl.Body) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("failed to decode graph file %s: %w", file, diags)
	}
	for _, k := range root.Kinds {
		schema, err := translateKind(ctx, k)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		model.Kinds = append(model.Kinds, schema)
	}
	for _, s := range root.Scopes {
		scope, err := translateScope(ctx, s)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		model.Scopes = append(model.Scopes, scope)
	}
	return nil
}

// validateModel rejects duplicate kinds and scope names. Scope names are
// document-wide labels, so nested scopes share the namespace.
func validateModel(model *Model) error {
	kinds := make(map[string]struct{}, len(model.Kinds))
	for _, k := range model.Kinds {
		if _, dup := kinds[k.Kind]; dup {
			return fmt.Errorf("kind %q is declared more than once", k.Kind)
		}
		kinds[k.Kind] = struct{}{}
	}
	scopes := make(map[string]struct{})
	for _, top := range model.Scopes {
		err := top.walk(func(s *Scope) error {
			if _, dup := scopes[s.Name]; dup {
				return fmt.Errorf("scope %q is declared more than once", s.Name)
			}
			scopes[s.Name] = struct{}{}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// findGraphFiles walks paths and returns every graph file once, in a stable
// order.
func findGraphFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) == FileExtension {
				add(path)
			}
			continue
		}

		var found []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == FileExtension {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		slices.Sort(found)
		for _, p := range found {
			add(p)
		}
	}
	return all, nil
}
