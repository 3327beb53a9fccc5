package ddbstore

import (
	"encoding/binary"

	"github.com/acksell/ddbseed/dynamodb/attr"
	"github.com/acksell/ddbseed/dynamodb/table"
)

// Badger key layout:
//
//	meta\x00<table>                         table metadata (JSON)
//	item\x00<table>\x00<key components>     item (DynamoDB JSON)
//
// Every key component is a type byte, a uvarint length and the value bytes.
// Numbers are stored in canonical form so that 1, 1.0 and 1e0 address the
// same item, as they do in DynamoDB.
const (
	metaNamespace = "meta"
	itemNamespace = "item"
	keySeparator  = 0x00
)

func metaPrefix() []byte {
	return append([]byte(metaNamespace), keySeparator)
}

func metaKey(tableName string) []byte {
	return append(metaPrefix(), tableName...)
}

func itemPrefix(tableName string) []byte {
	b := append([]byte(itemNamespace), keySeparator)
	b = append(b, tableName...)
	return append(b, keySeparator)
}

// itemKey encodes the primary key of an item that already passed
// ValidateItem for def.
func itemKey(def table.TableDefinition, key attr.Item) []byte {
	b := itemPrefix(def.Name)
	for _, el := range def.KeySchema {
		v := key[el.Attribute]
		var raw []byte
		switch v.Kind() {
		case attr.KindString:
			s, _ := v.Str()
			raw = []byte(s)
		case attr.KindNumber:
			n, _ := v.CanonicalNumber()
			raw = []byte(n)
		case attr.KindBinary:
			raw, _ = v.Bytes()
		}
		b = append(b, v.Kind().String()[0])
		b = binary.AppendUvarint(b, uint64(len(raw)))
		b = append(b, raw...)
	}
	return b
}
