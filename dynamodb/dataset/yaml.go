package dataset

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/acksell/ddbseed/dynamodb/attr"
	"github.com/acksell/ddbseed/dynamodb/ingest"
)

// LoadYAML reads a dataset document: a mapping from table name to a list of
// items. Attribute types are inferred from the yaml values, see
// [attr.FromYAML]. Requests keep document order.
//
//	ProductCatalog:
//	  - Id: 101
//	    Title: Book 101 Title
//	    InPublication: true
func LoadYAML(r io.Reader) ([]ingest.WriteRequest, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decoding dataset")
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, errors.Errorf("line %d: dataset must map table names to item lists", root.Line)
	}

	var reqs []ingest.WriteRequest
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, list := root.Content[i], root.Content[i+1]
		if list.Kind != yaml.SequenceNode {
			return nil, errors.Errorf("line %d: items of table %q must be a list", list.Line, name.Value)
		}
		for j, node := range list.Content {
			item, err := attr.ItemFromYAML(node)
			if err != nil {
				return nil, errors.Wrapf(err, "table %q item %d", name.Value, j)
			}
			reqs = append(reqs, ingest.WriteRequest{Table: name.Value, Item: item})
		}
	}
	return reqs, nil
}

// LoadFile is LoadYAML on the named file.
func LoadFile(path string) ([]ingest.WriteRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening dataset")
	}
	defer f.Close()
	return LoadYAML(f)
}
