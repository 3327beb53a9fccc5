package schema

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/acksell/ddbseed/dynamodb/ddberr"
	"github.com/acksell/ddbseed/dynamodb/table"
)

// Parse reads a yaml (or json, which is valid yaml) catalog document and
// returns the validated catalog. Unknown fields are rejected.
func Parse(r io.Reader) (*table.Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Schema
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ddberr.Validation("", "tables", "catalog document is empty")
		}
		return nil, errors.Wrap(err, "decoding catalog")
	}
	return s.Catalog()
}

// ParseFile is Parse on the named file.
func ParseFile(path string) (*table.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening catalog")
	}
	defer f.Close()
	return Parse(f)
}

// Catalog converts the document into a validated catalog.
func (s Schema) Catalog() (*table.Catalog, error) {
	defs := make([]table.TableDefinition, 0, len(s.Tables))
	for _, t := range s.Tables {
		def, err := ToDefinition(t)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return table.NewCatalog(defs...)
}

// Encode writes the catalog as a yaml document.
func Encode(w io.Writer, c *table.Catalog) error {
	var s Schema
	for _, def := range c.ListTables() {
		t, err := FromDefinition(def)
		if err != nil {
			return err
		}
		s.Tables = append(s.Tables, t)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(s); err != nil {
		return errors.Wrap(err, "marshaling catalog")
	}
	if err := encoder.Close(); err != nil {
		return errors.Wrap(err, "marshaling catalog")
	}
	_, err := w.Write(buf.Bytes())
	return errors.Wrap(err, "writing catalog")
}

// ToDefinition converts a document table into the model. Attribute
// definitions are collected from the key attributes in order of first use; a
// name used with two different kinds is rejected.
func ToDefinition(t Table) (table.TableDefinition, error) {
	def := table.TableDefinition{Name: t.Name}
	kinds := map[string]string{}
	declare := func(field string, k KeyDef) error {
		if prev, ok := kinds[k.Name]; ok {
			if prev != k.Kind {
				return ddberr.Validation(t.Name, field, "attribute %q is declared as both %s and %s", k.Name, prev, k.Kind)
			}
			return nil
		}
		kinds[k.Name] = k.Kind
		def.Attributes = append(def.Attributes, table.AttributeDefinition{Name: k.Name, Type: table.AttributeType(k.Kind)})
		return nil
	}

	if err := declare("partitionKey", t.PartitionKey); err != nil {
		return def, err
	}
	def.KeySchema = table.KeySchema{table.Hash(t.PartitionKey.Name)}
	if t.SortKey != nil {
		if err := declare("sortKey", *t.SortKey); err != nil {
			return def, err
		}
		def.KeySchema = append(def.KeySchema, table.Range(t.SortKey.Name))
	}

	for _, idx := range t.LocalIndexes {
		if err := declare("localIndexes."+idx.Name, idx.SortKey); err != nil {
			return def, err
		}
		proj := table.Projection{Type: table.ProjectionType(idx.Projection.Type)}
		if len(idx.Projection.NonKeyAttributes) > 0 {
			proj.NonKeyAttributes = append([]string(nil), idx.Projection.NonKeyAttributes...)
		}
		def.LocalIndexes = append(def.LocalIndexes, table.SecondaryIndexDef{
			Name:       idx.Name,
			KeySchema:  table.KeySchema{table.Hash(t.PartitionKey.Name), table.Range(idx.SortKey.Name)},
			Projection: proj,
		})
	}

	if t.Throughput != nil {
		def.Throughput = &table.Throughput{ReadUnits: t.Throughput.Read, WriteUnits: t.Throughput.Write}
	}
	return def, nil
}

// FromDefinition converts a model definition into its document form. Only
// definitions that pass Validate can be represented.
func FromDefinition(def table.TableDefinition) (Table, error) {
	if err := def.Validate(); err != nil {
		return Table{}, err
	}
	keyDef := func(name string) KeyDef {
		a, _ := def.Attribute(name)
		return KeyDef{Name: name, Kind: string(a.Type)}
	}

	t := Table{
		Name:         def.Name,
		PartitionKey: keyDef(def.KeySchema.HashKey()),
	}
	if r, ok := def.KeySchema.RangeKey(); ok {
		k := keyDef(r)
		t.SortKey = &k
	}
	for _, idx := range def.LocalIndexes {
		r, _ := idx.KeySchema.RangeKey()
		t.LocalIndexes = append(t.LocalIndexes, Index{
			Name:    idx.Name,
			SortKey: keyDef(r),
			Projection: Projection{
				Type:             string(idx.Projection.Type),
				NonKeyAttributes: idx.Projection.NonKeyAttributes,
			},
		})
	}
	if def.Throughput != nil {
		t.Throughput = &Throughput{Read: def.Throughput.ReadUnits, Write: def.Throughput.WriteUnits}
	}
	return t, nil
}
