package schema

import (
	"bytes"
	_ "embed"

	"github.com/acksell/ddbseed/dynamodb/table"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Default returns the built-in catalog: the ProductCatalog, Forum, Thread and
// Reply tables, each provisioned with 5 read and 5 write units.
func Default() *table.Catalog {
	c, err := Parse(bytes.NewReader(catalogYAML))
	if err != nil {
		panic("schema: failed to parse embedded catalog: " + err.Error())
	}
	return c
}
