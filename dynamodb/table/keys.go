package table

import (
	"fmt"

	"github.com/acksell/ddbseed/dynamodb/attr"
	"github.com/acksell/ddbseed/dynamodb/ddberr"
)

type KeyRole string

const (
	KeyRoleHash  KeyRole = "HASH"
	KeyRoleRange KeyRole = "RANGE"
)

type KeyElement struct {
	Attribute string
	Role      KeyRole
}

// Hash and Range are shorthands for building key schemas.
func Hash(attribute string) KeyElement  { return KeyElement{Attribute: attribute, Role: KeyRoleHash} }
func Range(attribute string) KeyElement { return KeyElement{Attribute: attribute, Role: KeyRoleRange} }

// KeySchema is a HASH element optionally followed by a RANGE element.
type KeySchema []KeyElement

// NewKeySchema builds a key schema and checks its shape.
func NewKeySchema(elems ...KeyElement) (KeySchema, error) {
	ks := KeySchema(elems)
	if err := ks.validate("", "keySchema"); err != nil {
		return nil, err
	}
	return ks, nil
}

// MustKeySchema is NewKeySchema for definitions known to be valid.
func MustKeySchema(elems ...KeyElement) KeySchema {
	ks, err := NewKeySchema(elems...)
	if err != nil {
		panic(err)
	}
	return ks
}

func (ks KeySchema) validate(tableName, field string) error {
	switch len(ks) {
	case 1, 2:
	default:
		return ddberr.Validation(tableName, field, "key schema must have 1 or 2 elements, got %d", len(ks))
	}
	for i, el := range ks {
		if el.Attribute == "" {
			return ddberr.Validation(tableName, fmt.Sprintf("%s[%d]", field, i), "attribute name is required")
		}
		if el.Role != KeyRoleHash && el.Role != KeyRoleRange {
			return ddberr.Validation(tableName, fmt.Sprintf("%s[%d]", field, i), "unknown key role %q", el.Role)
		}
	}
	if ks[0].Role != KeyRoleHash {
		return ddberr.Validation(tableName, field+"[0]", "first key element must be HASH, got %s", ks[0].Role)
	}
	if len(ks) == 2 {
		if ks[1].Role != KeyRoleRange {
			return ddberr.Validation(tableName, field+"[1]", "second key element must be RANGE, got %s", ks[1].Role)
		}
		if ks[0].Attribute == ks[1].Attribute {
			return ddberr.Validation(tableName, field, "HASH and RANGE use the same attribute %q", ks[0].Attribute)
		}
	}
	return nil
}

// HashKey returns the partition key attribute name.
func (ks KeySchema) HashKey() string {
	if len(ks) == 0 {
		return ""
	}
	return ks[0].Attribute
}

// RangeKey returns the sort key attribute name, if any.
func (ks KeySchema) RangeKey() (string, bool) {
	if len(ks) < 2 {
		return "", false
	}
	return ks[1].Attribute, true
}

// Composite reports whether the schema has a RANGE element.
func (ks KeySchema) Composite() bool {
	return len(ks) == 2
}

// Attributes returns the key attribute names in schema order.
func (ks KeySchema) Attributes() []string {
	names := make([]string, len(ks))
	for i, el := range ks {
		names[i] = el.Attribute
	}
	return names
}

// PrimaryKey extracts the primary key attributes of item, checking that each
// is present and carries its declared type.
func (t TableDefinition) PrimaryKey(item attr.Item) (attr.Item, error) {
	key := make(attr.Item, len(t.KeySchema))
	for _, el := range t.KeySchema {
		v, ok := item[el.Attribute]
		if !ok {
			return nil, ddberr.Validation(t.Name, el.Attribute, "%s key attribute is missing from item", el.Role)
		}
		def, _ := t.Attribute(el.Attribute)
		if !def.Type.Matches(v) {
			return nil, ddberr.Validation(t.Name, el.Attribute, "%s key must be of type %s, got %s", el.Role, def.Type, v.Kind())
		}
		key[el.Attribute] = v
	}
	return key, nil
}

// ValidateItem checks that item can be written to the table: primary key
// attributes must be present and typed as declared, and index key attributes,
// when present, must carry their declared type as well.
func (t TableDefinition) ValidateItem(item attr.Item) error {
	if _, err := t.PrimaryKey(item); err != nil {
		return err
	}
	for _, idx := range t.LocalIndexes {
		for _, el := range idx.KeySchema {
			v, ok := item[el.Attribute]
			if !ok {
				continue
			}
			def, _ := t.Attribute(el.Attribute)
			if !def.Type.Matches(v) {
				return ddberr.Validation(t.Name, el.Attribute, "index %q key must be of type %s, got %s", idx.Name, def.Type, v.Kind())
			}
		}
	}
	for name, v := range item {
		if !v.IsValid() {
			return ddberr.Validation(t.Name, name, "attribute has no value")
		}
	}
	return nil
}
