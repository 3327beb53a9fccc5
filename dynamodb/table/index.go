package table

// SecondaryIndexDef is a local secondary index: an alternate sort key over the
// items that share the table's partition key.
type SecondaryIndexDef struct {
	Name       string
	KeySchema  KeySchema
	Projection Projection
}

// maxLocalIndexes is the DynamoDB limit of local secondary indexes per table.
const maxLocalIndexes = 5

func (i SecondaryIndexDef) clone() SecondaryIndexDef {
	cp := i
	cp.KeySchema = append(KeySchema(nil), i.KeySchema...)
	cp.Projection.NonKeyAttributes = append([]string(nil), i.Projection.NonKeyAttributes...)
	return cp
}
