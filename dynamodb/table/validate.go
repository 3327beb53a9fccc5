package table

import (
	"fmt"
	"regexp"

	"github.com/acksell/ddbseed/dynamodb/ddberr"
)

// Table and index names: 3 to 255 characters of a-z, A-Z, 0-9, '_', '-' and '.'.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,255}$`)

// Validate checks the definition against the rules DynamoDB enforces on
// CreateTable, so a malformed definition never reaches the network:
//
//   - attribute names are unique and every declared attribute is used by the
//     key schema or an index key schema;
//   - every key and index key attribute is declared with a keyable type;
//   - the key schema is HASH optionally followed by RANGE;
//   - local indexes share the table's HASH key, add a RANGE key and carry a
//     well formed projection;
//   - provisioned throughput, when present, has positive read and write units.
func (t TableDefinition) Validate() error {
	if !namePattern.MatchString(t.Name) {
		return ddberr.Validation(t.Name, "name", "table name must match %s", namePattern)
	}

	declared := make(map[string]AttributeType, len(t.Attributes))
	for i, a := range t.Attributes {
		field := fmt.Sprintf("attributes[%d]", i)
		if a.Name == "" {
			return ddberr.Validation(t.Name, field, "attribute name is required")
		}
		if !a.Type.valid() {
			return ddberr.Validation(t.Name, field, "attribute %q has unknown type %q", a.Name, a.Type)
		}
		if _, dup := declared[a.Name]; dup {
			return ddberr.Validation(t.Name, field, "attribute %q is declared more than once", a.Name)
		}
		declared[a.Name] = a.Type
	}

	used := make(map[string]bool, len(declared))
	if err := t.KeySchema.validate(t.Name, "keySchema"); err != nil {
		return err
	}
	if err := checkKeyAttributes(t.Name, "keySchema", t.KeySchema, declared, used); err != nil {
		return err
	}

	if err := t.validateIndexes(declared, used); err != nil {
		return err
	}

	for _, a := range t.Attributes {
		if !used[a.Name] {
			return ddberr.Validation(t.Name, "attributes", "attribute %q is declared but not used by any key schema", a.Name)
		}
	}

	if tp := t.Throughput; tp != nil {
		if tp.ReadUnits <= 0 || tp.WriteUnits <= 0 {
			return ddberr.Validation(t.Name, "throughput", "read and write units must both be positive, got %d/%d", tp.ReadUnits, tp.WriteUnits)
		}
	}
	return nil
}

func (t TableDefinition) validateIndexes(declared map[string]AttributeType, used map[string]bool) error {
	if len(t.LocalIndexes) == 0 {
		return nil
	}
	if len(t.LocalIndexes) > maxLocalIndexes {
		return ddberr.Validation(t.Name, "localIndexes", "at most %d local indexes are allowed, got %d", maxLocalIndexes, len(t.LocalIndexes))
	}
	if !t.KeySchema.Composite() {
		return ddberr.Validation(t.Name, "localIndexes", "local indexes require a table with a RANGE key")
	}
	tableRange, _ := t.KeySchema.RangeKey()

	names := make(map[string]bool, len(t.LocalIndexes))
	for i, idx := range t.LocalIndexes {
		field := fmt.Sprintf("localIndexes[%d]", i)
		if !namePattern.MatchString(idx.Name) {
			return ddberr.Validation(t.Name, field, "index name %q must match %s", idx.Name, namePattern)
		}
		if names[idx.Name] {
			return ddberr.Validation(t.Name, field, "index %q is defined more than once", idx.Name)
		}
		names[idx.Name] = true

		if err := idx.KeySchema.validate(t.Name, field+".keySchema"); err != nil {
			return err
		}
		if !idx.KeySchema.Composite() {
			return ddberr.Validation(t.Name, field+".keySchema", "local index %q requires a RANGE key", idx.Name)
		}
		if idx.KeySchema.HashKey() != t.KeySchema.HashKey() {
			return ddberr.Validation(t.Name, field+".keySchema", "local index %q must use the table HASH key %q, got %q",
				idx.Name, t.KeySchema.HashKey(), idx.KeySchema.HashKey())
		}
		if r, _ := idx.KeySchema.RangeKey(); r == tableRange {
			return ddberr.Validation(t.Name, field+".keySchema", "local index %q must use a RANGE key other than the table's %q", idx.Name, tableRange)
		}
		if err := checkKeyAttributes(t.Name, field+".keySchema", idx.KeySchema, declared, used); err != nil {
			return err
		}
		if err := idx.Projection.validate(t.Name, field+".projection", idx.KeySchema, t.KeySchema); err != nil {
			return err
		}
	}
	return nil
}

func checkKeyAttributes(tableName, field string, ks KeySchema, declared map[string]AttributeType, used map[string]bool) error {
	for i, el := range ks {
		typ, ok := declared[el.Attribute]
		if !ok {
			return ddberr.Validation(tableName, fmt.Sprintf("%s[%d]", field, i), "key attribute %q is not declared", el.Attribute)
		}
		if !typ.Keyable() {
			return ddberr.Validation(tableName, fmt.Sprintf("%s[%d]", field, i), "key attribute %q has type %s, keys must be S, N or B", el.Attribute, typ)
		}
		used[el.Attribute] = true
	}
	return nil
}

func (p Projection) validate(tableName, field string, indexKeys, tableKeys KeySchema) error {
	switch p.Type {
	case ProjectionAll, ProjectionKeysOnly:
		if len(p.NonKeyAttributes) > 0 {
			return ddberr.Validation(tableName, field, "non-key attributes are only allowed with %s projections", ProjectionInclude)
		}
		return nil
	case ProjectionInclude:
	default:
		return ddberr.Validation(tableName, field, "unknown projection type %q", p.Type)
	}

	if len(p.NonKeyAttributes) == 0 {
		return ddberr.Validation(tableName, field, "%s projection needs at least one non-key attribute", ProjectionInclude)
	}
	keys := make(map[string]bool)
	for _, k := range append(indexKeys.Attributes(), tableKeys.Attributes()...) {
		keys[k] = true
	}
	seen := make(map[string]bool, len(p.NonKeyAttributes))
	for i, a := range p.NonKeyAttributes {
		f := fmt.Sprintf("%s.nonKeyAttributes[%d]", field, i)
		switch {
		case a == "":
			return ddberr.Validation(tableName, f, "attribute name is required")
		case seen[a]:
			return ddberr.Validation(tableName, f, "attribute %q is listed more than once", a)
		case keys[a]:
			return ddberr.Validation(tableName, f, "attribute %q is a key attribute and is always projected", a)
		}
		seen[a] = true
	}
	return nil
}
