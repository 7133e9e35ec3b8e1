// Package schema loads the YAML binding files that describe backing
// stores. Parses are cached in the system tier, so editing a file on disk
// invalidates it on the next resolve via the cache's mtime check.
package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/glyphworks/strata/internal/backend"
	"github.com/glyphworks/strata/internal/cache"
	"github.com/glyphworks/strata/internal/secrets"
)

// secretPlaceholder marks where a credential is spliced into a DSN.
const secretPlaceholder = "${secret}"

// Schema describes one backing store binding.
type Schema struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Source      backend.Source `yaml:"source"`
	// Credential names a secret whose value replaces ${secret} in the DSN.
	Credential string `yaml:"credential,omitempty"`
}

func (s *Schema) validate() error {
	if s.Name == "" {
		return fmt.Errorf("schema: name is required")
	}
	if s.Source.Kind == "" {
		return fmt.Errorf("schema %q: source.kind is required", s.Name)
	}
	if s.Credential != "" && !strings.Contains(s.Source.DSN, secretPlaceholder) {
		return fmt.Errorf("schema %q: credential set but dsn has no %s placeholder", s.Name, secretPlaceholder)
	}
	return nil
}

// Resolver loads schema files through the resource cache and injects
// credentials from the secrets manager. The secrets manager is optional;
// without one, schemas referencing credentials fail to resolve.
type Resolver struct {
	cache       *cache.ResourceCache
	secrets     *secrets.Manager
	searchPaths []string
}

// NewResolver creates a Resolver. searchPaths are the directories probed
// when resolving a bare alias name.
func NewResolver(rc *cache.ResourceCache, sm *secrets.Manager, searchPaths []string) *Resolver {
	return &Resolver{cache: rc, secrets: sm, searchPaths: searchPaths}
}

// Resolve loads the schema file at path, from cache when the file is
// unchanged since the last parse.
func (r *Resolver) Resolve(path string) (*Schema, error) {
	if v, ok := r.cache.Get(path); ok {
		return r.bind(v.(*Schema))
	}

	s, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	r.cache.Set(path, s, path)
	return r.bind(s)
}

// ResolveAlias finds <alias>.yaml (or .yml) in the search paths and
// resolves it.
func (r *Resolver) ResolveAlias(alias string) (*Schema, string, error) {
	for _, dir := range r.searchPaths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, alias+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			s, err := r.Resolve(path)
			if err != nil {
				return nil, "", err
			}
			return s, path, nil
		}
	}
	return nil, "", fmt.Errorf("alias %q: no schema file in search paths %v", alias, r.searchPaths)
}

// Warm pre-populates the cache from the given schema files concurrently.
// The first parse failure cancels the rest.
func (r *Resolver) Warm(ctx context.Context, paths []string) error {
	g, _ := errgroup.WithContext(ctx)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			_, err := r.Resolve(path)
			return err
		})
	}
	return g.Wait()
}

// bind returns a copy of s with its credential spliced into the DSN. The
// cached schema keeps the placeholder so plaintext never sits in the cache.
func (r *Resolver) bind(s *Schema) (*Schema, error) {
	cp := *s
	if cp.Credential == "" {
		return &cp, nil
	}
	if r.secrets == nil {
		return nil, fmt.Errorf("schema %q: credential %q referenced but no secrets store configured", s.Name, s.Credential)
	}
	val, err := r.secrets.Get(cp.Credential)
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", s.Name, err)
	}
	cp.Source.DSN = strings.ReplaceAll(cp.Source.DSN, secretPlaceholder, string(val))
	return &cp, nil
}

func parseFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
