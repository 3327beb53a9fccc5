package table

import (
	"github.com/acksell/ddbseed/dynamodb/ddberr"
)

// Catalog is an ordered, validated set of table definitions.
type Catalog struct {
	tables []TableDefinition
	byName map[string]int
}

// NewCatalog validates every definition and checks that table names are
// unique. Definitions are copied, later changes by the caller are not seen.
func NewCatalog(defs ...TableDefinition) (*Catalog, error) {
	c := &Catalog{
		tables: make([]TableDefinition, 0, len(defs)),
		byName: make(map[string]int, len(defs)),
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[def.Name]; dup {
			return nil, ddberr.Validation(def.Name, "name", "table is defined more than once in the catalog")
		}
		c.byName[def.Name] = len(c.tables)
		c.tables = append(c.tables, def.Clone())
	}
	return c, nil
}

// MustCatalog is NewCatalog for definitions known to be valid.
func MustCatalog(defs ...TableDefinition) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// ListTables returns copies of the definitions in declaration order.
func (c *Catalog) ListTables() []TableDefinition {
	out := make([]TableDefinition, len(c.tables))
	for i, t := range c.tables {
		out[i] = t.Clone()
	}
	return out
}

func (c *Catalog) Table(name string) (TableDefinition, bool) {
	i, ok := c.byName[name]
	if !ok {
		return TableDefinition{}, false
	}
	return c.tables[i].Clone(), true
}

func (c *Catalog) Len() int {
	return len(c.tables)
}
