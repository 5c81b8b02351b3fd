package textdex

import (
	"fmt"
	"reflect"
	"strings"
)

const tagKey = "textdex"

// schemaMeta holds parsed struct tag metadata, cached per TypedIndex.
type schemaMeta struct {
	typ reflect.Type // struct type for reconstruction

	idIdx int

	// Schema fields for index creation, plus the struct field index each
	// one maps to.
	fields   []FieldInfo
	mappings []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
	fieldType FieldType
}

// parseSchema reflects on T and extracts textdex struct tag metadata.
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("textdex: type %s is not a struct", t)
	}

	meta := &schemaMeta{typ: t, idIdx: -1}

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}

	if meta.idIdx == -1 {
		return nil, fmt.Errorf("textdex: no field with `textdex:\"...,id\"` tag in %s", t)
	}
	if len(meta.fields) == 0 {
		return nil, fmt.Errorf("textdex: no indexed fields in %s", t)
	}
	return meta, nil
}

// applyTag processes a single struct field's textdex tag. The form is
// "name,modifier" with an optional third analyzer part on text fields.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	parts := strings.Split(tag, ",")
	name := parts[0]
	modifier := ""
	if len(parts) > 1 {
		modifier = parts[1]
	}

	switch modifier {
	case "id":
		if meta.idIdx != -1 {
			return fmt.Errorf("textdex: duplicate id tag on field %s", f.Name)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("textdex: id field %s must be a string", f.Name)
		}
		meta.idIdx = idx
	case "text":
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("textdex: text field %s must be a string", f.Name)
		}
		info := FieldInfo{Name: name, Type: FieldText}
		if len(parts) > 2 {
			info.Analyzer = parts[2]
		}
		addField(meta, idx, info)
	case "keyword":
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("textdex: keyword field %s must be a string", f.Name)
		}
		addField(meta, idx, FieldInfo{Name: name, Type: FieldKeyword})
	case "numeric":
		switch f.Type.Kind() {
		case reflect.Float64, reflect.Float32,
			reflect.Int, reflect.Int32, reflect.Int64:
		default:
			return fmt.Errorf("textdex: numeric field %s must be a number", f.Name)
		}
		addField(meta, idx, FieldInfo{Name: name, Type: FieldNumeric})
	default:
		return fmt.Errorf("textdex: unknown modifier %q on field %s", modifier, f.Name)
	}
	return nil
}

func addField(meta *schemaMeta, idx int, info FieldInfo) {
	meta.fields = append(meta.fields, info)
	meta.mappings = append(meta.mappings, fieldMapping{
		structIdx: idx,
		name:      info.Name,
		fieldType: info.Type,
	})
}

// indexOptions builds the IndexOption slice for index creation.
func (m *schemaMeta) indexOptions() []IndexOption {
	opts := make([]IndexOption, 0, len(m.fields))
	for _, f := range m.fields {
		switch f.Type {
		case FieldText:
			if f.Analyzer != "" {
				opts = append(opts, AnalyzedField(f.Name, f.Analyzer))
			} else {
				opts = append(opts, TextField(f.Name))
			}
		case FieldKeyword:
			opts = append(opts, KeywordField(f.Name))
		case FieldNumeric:
			opts = append(opts, NumericField(f.Name))
		}
	}
	return opts
}

// id extracts the document ID from a typed item.
func (m *schemaMeta) id(item any) string {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v.Field(m.idIdx).String()
}

// toFields converts a typed item to a document field map.
func (m *schemaMeta) toFields(item any) map[string]any {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	fields := make(map[string]any, len(m.mappings))
	for _, fm := range m.mappings {
		fv := v.Field(fm.structIdx)
		if fm.fieldType == FieldNumeric {
			fields[fm.name] = numericValue(fv)
		} else {
			fields[fm.name] = fv.String()
		}
	}
	return fields
}

// fromFields reconstructs a typed item from a document field map.
func (m *schemaMeta) fromFields(id string, fields map[string]any) any {
	v := reflect.New(m.typ).Elem()
	v.Field(m.idIdx).SetString(id)

	for _, fm := range m.mappings {
		raw, ok := fields[fm.name]
		if !ok {
			continue
		}
		fv := v.Field(fm.structIdx)
		if fm.fieldType == FieldNumeric {
			setNumeric(fv, raw)
		} else if s, ok := raw.(string); ok {
			fv.SetString(s)
		}
	}
	return v.Interface()
}

func numericValue(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float64, reflect.Float32:
		return v.Float()
	default:
		return float64(v.Int())
	}
}

func setNumeric(v reflect.Value, raw any) {
	var f float64
	switch n := raw.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return
	}
	switch v.Kind() {
	case reflect.Float64, reflect.Float32:
		v.SetFloat(f)
	default:
		v.SetInt(int64(f))
	}
}
