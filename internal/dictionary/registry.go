package dictionary

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry is an in-memory Service and NamespaceService. Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	prefixes   map[string]string // uri -> prefix
	uris       map[string]string // prefix -> uri
	properties map[QName]*PropertyDefinition
}

// NewRegistry returns a registry holding only the built-in d namespace.
func NewRegistry() *Registry {
	r := &Registry{
		prefixes:   make(map[string]string),
		uris:       make(map[string]string),
		properties: make(map[QName]*PropertyDefinition),
	}
	r.prefixes[ModelURI] = ModelPrefix
	r.uris[ModelPrefix] = ModelURI
	return r
}

// GetProperty implements Service.
func (r *Registry) GetProperty(name QName) *PropertyDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.properties[name]
	if !ok {
		return nil
	}
	cp := *def
	return &cp
}

// GetPrefix implements NamespaceService.
func (r *Registry) GetPrefix(namespaceURI string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prefixes[namespaceURI]
	return p, ok
}

// GetNamespaceURI implements NamespaceService.
func (r *Registry) GetNamespaceURI(prefix string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uris[prefix]
	return u, ok
}

// RegisterNamespace binds prefix to namespaceURI. Rebinding either side to a different value is an error.
func (r *Registry) RegisterNamespace(prefix, namespaceURI string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerNamespaceLocked(prefix, namespaceURI)
}

func (r *Registry) registerNamespaceLocked(prefix, namespaceURI string) error {
	if namespaceURI == "" {
		return fmt.Errorf("namespace uri cannot be empty (prefix %q)", prefix)
	}
	if existing, ok := r.uris[prefix]; ok && existing != namespaceURI {
		return fmt.Errorf("prefix %q already bound to %s", prefix, existing)
	}
	if existing, ok := r.prefixes[namespaceURI]; ok && existing != prefix {
		return fmt.Errorf("namespace %s already bound to prefix %q", namespaceURI, existing)
	}
	r.uris[prefix] = namespaceURI
	r.prefixes[namespaceURI] = prefix
	return nil
}

// AddProperty registers or replaces a property definition.
func (r *Registry) AddProperty(def PropertyDefinition) error {
	if def.Name.IsZero() {
		return fmt.Errorf("property name cannot be empty")
	}
	if def.DataType.IsZero() {
		return fmt.Errorf("property %s has no data type", def.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := def
	r.properties[def.Name] = &cp
	return nil
}

// Properties returns all property definitions ordered by name.
func (r *Registry) Properties() []PropertyDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PropertyDefinition, 0, len(r.properties))
	for _, def := range r.properties {
		out = append(out, *def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name.String() < out[j].Name.String() })
	return out
}

// Namespaces returns a copy of the prefix -> uri bindings.
func (r *Registry) Namespaces() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.uris))
	for p, u := range r.uris {
		out[p] = u
	}
	return out
}

// Model is the YAML form of a dictionary model.
type Model struct {
	Namespaces []NamespaceBinding `yaml:"namespaces"`
	Properties []ModelProperty    `yaml:"properties"`
}

// NamespaceBinding binds a prefix to a namespace URI.
type NamespaceBinding struct {
	Prefix string `yaml:"prefix"`
	URI    string `yaml:"uri"`
}

// ModelProperty is a property as written in a model file. Name and Type are short or {uri} form.
type ModelProperty struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Title   string `yaml:"title"`
	Indexed *bool  `yaml:"indexed"`
}

// LoadModelFile reads a YAML model from path into the registry. Properties that
// an earlier load of the same file defined and the file no longer declares are removed.
func (r *Registry) LoadModelFile(path string) error {
	source, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve model path: %w", err)
	}
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open model: %w", err)
	}
	defer f.Close()
	return r.loadModel(source, f)
}

// LoadModel parses a YAML model and merges it into the registry.
// The registry is left unchanged when the model is invalid.
func (r *Registry) LoadModel(rd io.Reader) error {
	return r.loadModel("", rd)
}

func (r *Registry) loadModel(source string, rd io.Reader) error {
	var m Model
	if err := yaml.NewDecoder(rd).Decode(&m); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse model: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	staged := r.cloneLocked()
	for _, ns := range m.Namespaces {
		if err := staged.registerNamespaceLocked(ns.Prefix, ns.URI); err != nil {
			return err
		}
	}
	declared := make(map[QName]struct{}, len(m.Properties))
	for _, mp := range m.Properties {
		name, err := ResolveQName(mp.Name, staged)
		if err != nil {
			return fmt.Errorf("property %q: %w", mp.Name, err)
		}
		dataType, err := resolveDataType(mp.Type, staged)
		if err != nil {
			return fmt.Errorf("property %q: %w", mp.Name, err)
		}
		indexed := true
		if mp.Indexed != nil {
			indexed = *mp.Indexed
		}
		staged.properties[name] = &PropertyDefinition{
			Name:     name,
			DataType: dataType,
			Title:    mp.Title,
			Indexed:  indexed,
			Source:   source,
		}
		declared[name] = struct{}{}
	}
	if source != "" {
		for name, def := range staged.properties {
			if _, ok := declared[name]; !ok && def.Source == source {
				delete(staged.properties, name)
			}
		}
	}
	r.prefixes, r.uris, r.properties = staged.prefixes, staged.uris, staged.properties
	return nil
}

// resolveDataType accepts d:date, {uri}date or a bare built-in name such as date.
func resolveDataType(s string, ns NamespaceService) (QName, error) {
	if dt, ok := builtinDataTypes[s]; ok {
		return dt, nil
	}
	dt, err := ResolveQName(s, ns)
	if err != nil {
		return QName{}, fmt.Errorf("data type: %w", err)
	}
	return dt, nil
}

// cloneLocked copies r's maps. Caller holds r.mu.
func (r *Registry) cloneLocked() *Registry {
	c := &Registry{
		prefixes:   make(map[string]string, len(r.prefixes)),
		uris:       make(map[string]string, len(r.uris)),
		properties: make(map[QName]*PropertyDefinition, len(r.properties)),
	}
	for k, v := range r.prefixes {
		c.prefixes[k] = v
	}
	for k, v := range r.uris {
		c.uris[k] = v
	}
	for k, v := range r.properties {
		c.properties[k] = v
	}
	return c
}
