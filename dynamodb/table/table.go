// Package table is the declarative schema model: tables, their attribute
// definitions, key schemas, local secondary indexes and capacity settings.
//
// Definitions are plain values with no network client attached. A
// TableDefinition is validated before it is ever turned into a request, see
// [TableDefinition.Validate] and [NewCatalog].
package table

import (
	"github.com/acksell/ddbseed/dynamodb/attr"
)

// AttributeType is the declared scalar type of an attribute.
type AttributeType string

const (
	AttributeTypeS    AttributeType = "S"
	AttributeTypeN    AttributeType = "N"
	AttributeTypeB    AttributeType = "B"
	AttributeTypeBOOL AttributeType = "BOOL"
)

// Keyable reports whether attributes of this type can be used in a key schema.
// DynamoDB only partitions and sorts on strings, numbers and binaries.
func (t AttributeType) Keyable() bool {
	switch t {
	case AttributeTypeS, AttributeTypeN, AttributeTypeB:
		return true
	}
	return false
}

func (t AttributeType) valid() bool {
	return t.Keyable() || t == AttributeTypeBOOL
}

// Matches reports whether v carries this type.
func (t AttributeType) Matches(v attr.Value) bool {
	switch t {
	case AttributeTypeS:
		return v.Kind() == attr.KindString
	case AttributeTypeN:
		return v.Kind() == attr.KindNumber
	case AttributeTypeB:
		return v.Kind() == attr.KindBinary
	case AttributeTypeBOOL:
		return v.Kind() == attr.KindBool
	}
	return false
}

type AttributeDefinition struct {
	Name string
	Type AttributeType
}

// Throughput is provisioned capacity. A nil *Throughput on a table means on-demand billing.
type Throughput struct {
	ReadUnits  int64
	WriteUnits int64
}

type TableDefinition struct {
	Name         string
	Attributes   []AttributeDefinition
	KeySchema    KeySchema
	LocalIndexes []SecondaryIndexDef
	Throughput   *Throughput
}

// OnDemand reports whether the table is billed per request.
func (t TableDefinition) OnDemand() bool {
	return t.Throughput == nil
}

// Attribute looks up a declared attribute by name.
func (t TableDefinition) Attribute(name string) (AttributeDefinition, bool) {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return AttributeDefinition{}, false
}

// Index looks up a local secondary index by name.
func (t TableDefinition) Index(name string) (SecondaryIndexDef, bool) {
	for _, idx := range t.LocalIndexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return SecondaryIndexDef{}, false
}

// Clone returns a deep copy, so catalogs can hand out definitions without sharing slices.
func (t TableDefinition) Clone() TableDefinition {
	cp := t
	cp.Attributes = append([]AttributeDefinition(nil), t.Attributes...)
	cp.KeySchema = append(KeySchema(nil), t.KeySchema...)
	if t.LocalIndexes != nil {
		cp.LocalIndexes = make([]SecondaryIndexDef, len(t.LocalIndexes))
		for i, idx := range t.LocalIndexes {
			cp.LocalIndexes[i] = idx.clone()
		}
	}
	if t.Throughput != nil {
		tp := *t.Throughput
		cp.Throughput = &tp
	}
	return cp
}
