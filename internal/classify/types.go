package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldType is the closed set of cell types the classifier can produce.
// It is a tagged value rather than a string so that switches over it are
// exhaustive and adding or removing a tag forces every call site to be
// revisited.
type FieldType uint8

const (
	TypeString FieldType = iota
	TypeInteger
	TypeFloat
	TypeDecimal
	TypeBoolean
	TypeDate
	TypeDateTime
	TypeEmpty
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBoolean:
		return "boolean"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeEmpty:
		return "empty"
	}
	return ""
}

// IsNumeric reports whether values of this type carry numeric bounds.
func (t FieldType) IsNumeric() bool {
	return t == TypeInteger || t == TypeFloat || t == TypeDecimal
}

// IsTemporal reports whether values of this type carry date bounds.
func (t FieldType) IsTemporal() bool {
	return t == TypeDate || t == TypeDateTime
}

func (t FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *FieldType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	switch strings.ToLower(s) {
	case "string":
		*t = TypeString
	case "integer":
		*t = TypeInteger
	case "float":
		*t = TypeFloat
	case "decimal":
		*t = TypeDecimal
	case "boolean":
		*t = TypeBoolean
	case "date":
		*t = TypeDate
	case "datetime":
		*t = TypeDateTime
	case "empty":
		*t = TypeEmpty
	default:
		return fmt.Errorf("classify: unknown field type %q", s)
	}

	return nil
}
