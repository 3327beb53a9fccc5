// Package schema defines the document form of a table catalog: the yaml/json
// shape read from catalog files and embedded as the default catalog. The
// document types are pure data, conversion to the validated model lives in
// convert.go.
package schema

// Schema is the root type containing all table definitions.
// This maps directly to the structure of catalog.yaml files.
type Schema struct {
	Tables []Table `yaml:"tables" json:"tables"`
}

// Table describes a DynamoDB table structure. Attribute definitions are
// implied by the key attributes of the table and its indexes.
type Table struct {
	Name         string      `yaml:"name" json:"name"`
	PartitionKey KeyDef      `yaml:"partitionKey" json:"partitionKey"`
	SortKey      *KeyDef     `yaml:"sortKey,omitempty" json:"sortKey,omitempty"`
	LocalIndexes []Index     `yaml:"localIndexes,omitempty" json:"localIndexes,omitempty"`
	Throughput   *Throughput `yaml:"throughput,omitempty" json:"throughput,omitempty"`
}

// KeyDef describes a key attribute definition.
type KeyDef struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"` // "S", "N", or "B"
}

// Index describes a Local Secondary Index. Its partition key is always the
// table's, so only the sort key is given.
type Index struct {
	Name       string     `yaml:"name" json:"name"`
	SortKey    KeyDef     `yaml:"sortKey" json:"sortKey"`
	Projection Projection `yaml:"projection" json:"projection"`
}

type Projection struct {
	Type             string   `yaml:"type" json:"type"` // "ALL", "KEYS_ONLY" or "INCLUDE"
	NonKeyAttributes []string `yaml:"nonKeyAttributes,omitempty" json:"nonKeyAttributes,omitempty"`
}

// Throughput is provisioned capacity. Omit it for on-demand billing.
type Throughput struct {
	Read  int64 `yaml:"read" json:"read"`
	Write int64 `yaml:"write" json:"write"`
}
