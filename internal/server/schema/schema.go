// Package schema validates document writes against JSON schemas registered per collection name.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/iudanet/plansync/internal/models"
)

//go:embed schemas/*.json
var builtin embed.FS

// ErrInvalidDocument is returned when fields do not match the collection schema.
var ErrInvalidDocument = errors.New("document does not match schema")

// Registry maps a collection name (last segment of the parent collection) to a schema.
type Registry struct {
	schemas map[string]*jsonschema.Schema
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry; every write passes.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*jsonschema.Schema)}
}

// Default returns a registry with the built-in schemas for workspace documents,
// guests and suppliers.
func Default() (*Registry, error) {
	r := NewRegistry()
	entries, err := builtin.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in schemas: %w", err)
	}
	for _, e := range entries {
		raw, err := builtin.ReadFile("schemas/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", e.Name(), err)
		}
		if err := r.Register(strings.TrimSuffix(e.Name(), ".json"), raw); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadDir registers every <collection>.json file of dir, replacing built-ins with the same name.
func (r *Registry) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list schemas in %s: %w", dir, err)
	}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read schema %s: %w", file, err)
		}
		if err := r.Register(strings.TrimSuffix(filepath.Base(file), ".json"), raw); err != nil {
			return err
		}
	}
	return nil
}

// Register compiles schemaJSON for the collection name.
func (r *Registry) Register(collection string, schemaJSON []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to parse schema for %s: %w", collection, err)
	}

	url := "https://plansync.local/schemas/" + collection + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return fmt.Errorf("failed to add schema for %s: %w", collection, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", collection, err)
	}

	r.mu.Lock()
	r.schemas[collection] = compiled
	r.mu.Unlock()
	return nil
}

// Collections returns the names with a registered schema.
func (r *Registry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	return names
}

// Validate checks the written fields of a document. Patches are validated as-is,
// so schemas constrain the fields present rather than require them.
func (r *Registry) Validate(path models.DocumentPath, fields map[string]any) error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	compiled, ok := r.schemas[path.Parent().Name()]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	instance, err := toInstance(fields)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}
	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}
	return nil
}

// toInstance нормализует Go значения ([]string, int) через JSON
func toInstance(fields map[string]any) (any, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}
