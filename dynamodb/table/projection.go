package table

type ProjectionType string

const (
	ProjectionAll      ProjectionType = "ALL"
	ProjectionKeysOnly ProjectionType = "KEYS_ONLY"
	// ProjectionInclude copies the keys plus the listed NonKeyAttributes.
	ProjectionInclude ProjectionType = "INCLUDE"
)

type Projection struct {
	Type ProjectionType
	// Only used with ProjectionInclude.
	NonKeyAttributes []string
}

func KeysOnly() Projection { return Projection{Type: ProjectionKeysOnly} }

func All() Projection { return Projection{Type: ProjectionAll} }

func Include(attrs ...string) Projection {
	return Projection{Type: ProjectionInclude, NonKeyAttributes: attrs}
}
