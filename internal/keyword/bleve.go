// Package keyword provides Bleve implementation of TermSource.
package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	index "github.com/blevesearch/bleve_index_api"
	"go.uber.org/zap"

	"github.com/hyperjump/termquery/internal/dictionary"
)

// BleveIndex is a Bleve-backed full-text index whose term dictionary implements TermSource.
type BleveIndex struct {
	index  bleve.Index
	logger *zap.Logger
}

// IndexOption configures NewBleveIndex.
type IndexOption func(*indexOptions)

type indexOptions struct {
	registry *dictionary.Registry
	logger   *zap.Logger
}

// WithDictionary maps every dictionary property to a typed field named by its short form (cm:created).
func WithDictionary(reg *dictionary.Registry) IndexOption {
	return func(o *indexOptions) { o.registry = reg }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexOption {
	return func(o *indexOptions) { o.logger = l }
}

// NewBleveIndex creates or opens a Bleve index at path.
// If the path already exists, the existing index and its stored mapping are reused;
// remove the index directory to pick up dictionary changes.
func NewBleveIndex(path string, opts ...IndexOption) (*BleveIndex, error) {
	o := indexOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		o.logger.Debug("bleve index opened", zap.String("path", path))
		return &BleveIndex{index: idx, logger: o.logger}, nil
	}

	im, err := buildMapping(o.registry)
	if err != nil {
		return nil, err
	}
	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	o.logger.Debug("bleve index created", zap.String("path", path))
	return &BleveIndex{index: idx, logger: o.logger}, nil
}

func buildMapping(reg *dictionary.Registry) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", bleve.NewKeywordFieldMapping())
	if reg != nil {
		for _, def := range reg.Properties() {
			name, err := def.Name.PrefixString(reg)
			if err != nil {
				return nil, fmt.Errorf("failed to map property %s: %w", def.Name, err)
			}
			docMapping.AddFieldMappingsAt(name, fieldMappingFor(def))
		}
	}
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im, nil
}

func fieldMappingFor(def dictionary.PropertyDefinition) *mapping.FieldMapping {
	var fm *mapping.FieldMapping
	switch def.DataType {
	case dictionary.DataTypeDate, dictionary.DataTypeDateTime:
		fm = bleve.NewDateTimeFieldMapping()
	case dictionary.DataTypeInt, dictionary.DataTypeLong, dictionary.DataTypeFloat, dictionary.DataTypeDouble:
		fm = bleve.NewNumericFieldMapping()
	case dictionary.DataTypeBoolean:
		fm = bleve.NewBooleanFieldMapping()
	default:
		fm = bleve.NewTextFieldMapping()
		fm.Analyzer = standard.Name
	}
	fm.Index = def.Indexed
	return fm
}

// Index indexes a document by id. Field names are property short forms.
func (b *BleveIndex) Index(ctx context.Context, id string, fields map[string]interface{}) error {
	if err := b.index.Index(id, fields); err != nil {
		return fmt.Errorf("failed to index document %s: %w", id, err)
	}
	b.logger.Debug("document indexed", zap.String("id", id), zap.Int("fields", len(fields)))
	return nil
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Fields returns the indexed field names in dictionary order.
func (b *BleveIndex) Fields() ([]string, error) {
	fields, err := b.index.Fields()
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	sort.Strings(fields)
	return fields, nil
}

// Terms implements TermSource by walking each field's dictionary in field order.
func (b *BleveIndex) Terms(start Term) (TermEnum, error) {
	fields, err := b.Fields()
	if err != nil {
		return nil, err
	}
	first := sort.SearchStrings(fields, start.Field)
	return &bleveTermEnum{index: b.index, fields: fields[first:], start: start}, nil
}

// HasField reports whether any document has a term in field.
func (b *BleveIndex) HasField(field string) (bool, error) {
	found, err := FieldHasTerm(b, field)
	if err != nil {
		b.logger.Warn("field term lookup failed", zap.String("field", field), zap.Error(err))
		return false, err
	}
	return found, nil
}

// FieldTerms returns every term of field in dictionary order.
func (b *BleveIndex) FieldTerms(field string) ([]string, error) {
	dict, err := b.index.FieldDict(field)
	if err != nil {
		return nil, &TermReadError{Field: field, Err: err}
	}
	defer dict.Close()

	terms := make([]string, 0)
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, &TermReadError{Field: field, Err: err}
		}
		if entry == nil {
			return terms, nil
		}
		terms = append(terms, entry.Term)
	}
}

// bleveTermEnum chains per-field dictionaries into one ordered cursor.
type bleveTermEnum struct {
	index   bleve.Index
	fields  []string
	start   Term
	dict    index.FieldDict
	field   string
	current Term
	closed  bool
}

func (e *bleveTermEnum) Next() (bool, error) {
	if e.closed {
		return false, fmt.Errorf("term enumeration closed")
	}
	for {
		if e.dict == nil {
			if len(e.fields) == 0 {
				return false, nil
			}
			if err := e.openNext(); err != nil {
				return false, err
			}
		}
		entry, err := e.dict.Next()
		if err != nil {
			return false, fmt.Errorf("failed to read dictionary for field %q: %w", e.field, err)
		}
		if entry != nil {
			e.current = Term{Field: e.field, Text: entry.Term}
			return true, nil
		}
		err = e.dict.Close()
		e.dict = nil
		if err != nil {
			return false, fmt.Errorf("failed to close dictionary for field %q: %w", e.field, err)
		}
	}
}

func (e *bleveTermEnum) openNext() error {
	e.field, e.fields = e.fields[0], e.fields[1:]
	var err error
	if e.field == e.start.Field && e.start.Text != "" {
		e.dict, err = e.index.FieldDictRange(e.field, []byte(e.start.Text), nil)
	} else {
		e.dict, err = e.index.FieldDict(e.field)
	}
	if err != nil {
		e.dict = nil
		return fmt.Errorf("failed to open dictionary for field %q: %w", e.field, err)
	}
	return nil
}

func (e *bleveTermEnum) Term() Term {
	return e.current
}

func (e *bleveTermEnum) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.dict == nil {
		return nil
	}
	err := e.dict.Close()
	e.dict = nil
	return err
}
