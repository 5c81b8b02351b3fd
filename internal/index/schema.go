package index

import (
	"fmt"

	"github.com/textdex-cloud/textdex/internal/analysis"
	"github.com/textdex-cloud/textdex/internal/domain"
)

// FieldType is the type of an indexed field.
type FieldType string

const (
	FieldTypeText    FieldType = "text"
	FieldTypeKeyword FieldType = "keyword"
	FieldTypeNumeric FieldType = "numeric"
)

// Schema limits.
const (
	MaxFieldsPerSchema = 256
	MaxFieldNameLength = 255
)

// DefaultAnalyzer is used for text fields that do not name one.
const DefaultAnalyzer = "standard"

// Reserved field names that cannot appear in user schemas.
var reservedFieldNames = map[string]bool{
	"_id":     true,
	"_score":  true,
	"_source": true,
}

// Field defines a single field in a schema.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Analyzer string    `json:"analyzer,omitempty"`
}

// Schema is the immutable field definition of an index.
type Schema struct {
	Fields []Field `json:"fields"`
}

// Field returns the definition of the named field.
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate checks the schema against the known analyzers.
// All errors wrap domain.ErrInvalidSchema.
func (s Schema) Validate(analyzers *analysis.Registry) error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: no fields defined", domain.ErrInvalidSchema)
	}
	if len(s.Fields) > MaxFieldsPerSchema {
		return fmt.Errorf("%w: %d fields (max %d)", domain.ErrInvalidSchema, len(s.Fields), MaxFieldsPerSchema)
	}

	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field with empty name", domain.ErrInvalidSchema)
		}
		if len(f.Name) > MaxFieldNameLength {
			return fmt.Errorf("%w: field name %q too long", domain.ErrInvalidSchema, f.Name)
		}
		if reservedFieldNames[f.Name] {
			return fmt.Errorf("%w: field name %q is reserved", domain.ErrInvalidSchema, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: duplicate field %q", domain.ErrInvalidSchema, f.Name)
		}
		seen[f.Name] = true

		switch f.Type {
		case FieldTypeText:
			name := f.Analyzer
			if name == "" {
				name = DefaultAnalyzer
			}
			if _, err := analyzers.Get(name); err != nil {
				return fmt.Errorf("%w: field %q: %v", domain.ErrInvalidSchema, f.Name, err)
			}
		case FieldTypeKeyword, FieldTypeNumeric:
			if f.Analyzer != "" {
				return fmt.Errorf("%w: field %q: analyzer only allowed on text fields", domain.ErrInvalidSchema, f.Name)
			}
		default:
			return fmt.Errorf("%w: field %q: unknown type %q", domain.ErrInvalidSchema, f.Name, f.Type)
		}
	}
	return nil
}

// AnalyzerFor resolves the analyzer for a text field. The schema must have
// been validated first.
func (s Schema) AnalyzerFor(f Field, analyzers *analysis.Registry) analysis.Analyzer {
	name := f.Analyzer
	if name == "" {
		name = DefaultAnalyzer
	}
	a, _ := analyzers.Get(name)
	return a
}
