package table

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CreateTableInput renders the definition as a CreateTable request. Tables
// without throughput are created with PAY_PER_REQUEST billing.
func (t TableDefinition) CreateTableInput() *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:            aws.String(t.Name),
		AttributeDefinitions: attributesToSDK(t.Attributes),
		KeySchema:            keySchemaToSDK(t.KeySchema),
	}
	for _, idx := range t.LocalIndexes {
		in.LocalSecondaryIndexes = append(in.LocalSecondaryIndexes, types.LocalSecondaryIndex{
			IndexName:  aws.String(idx.Name),
			KeySchema:  keySchemaToSDK(idx.KeySchema),
			Projection: projectionToSDK(idx.Projection),
		})
	}
	if t.Throughput == nil {
		in.BillingMode = types.BillingModePayPerRequest
	} else {
		in.BillingMode = types.BillingModeProvisioned
		in.ProvisionedThroughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(t.Throughput.ReadUnits),
			WriteCapacityUnits: aws.Int64(t.Throughput.WriteUnits),
		}
	}
	return in
}

// FromCreateTableInput is the inverse of CreateTableInput. The result is not
// validated.
func FromCreateTableInput(in *dynamodb.CreateTableInput) TableDefinition {
	def := TableDefinition{
		Name:       aws.ToString(in.TableName),
		Attributes: attributesFromSDK(in.AttributeDefinitions),
		KeySchema:  keySchemaFromSDK(in.KeySchema),
	}
	for _, idx := range in.LocalSecondaryIndexes {
		def.LocalIndexes = append(def.LocalIndexes, SecondaryIndexDef{
			Name:       aws.ToString(idx.IndexName),
			KeySchema:  keySchemaFromSDK(idx.KeySchema),
			Projection: projectionFromSDK(idx.Projection),
		})
	}
	if in.BillingMode != types.BillingModePayPerRequest && in.ProvisionedThroughput != nil {
		def.Throughput = &Throughput{
			ReadUnits:  aws.ToInt64(in.ProvisionedThroughput.ReadCapacityUnits),
			WriteUnits: aws.ToInt64(in.ProvisionedThroughput.WriteCapacityUnits),
		}
	}
	return def
}

// FromDescription recovers a definition from a DescribeTable response.
func FromDescription(d *types.TableDescription) TableDefinition {
	def := TableDefinition{
		Name:       aws.ToString(d.TableName),
		Attributes: attributesFromSDK(d.AttributeDefinitions),
		KeySchema:  keySchemaFromSDK(d.KeySchema),
	}
	for _, idx := range d.LocalSecondaryIndexes {
		def.LocalIndexes = append(def.LocalIndexes, SecondaryIndexDef{
			Name:       aws.ToString(idx.IndexName),
			KeySchema:  keySchemaFromSDK(idx.KeySchema),
			Projection: projectionFromSDK(idx.Projection),
		})
	}
	onDemand := d.BillingModeSummary != nil && d.BillingModeSummary.BillingMode == types.BillingModePayPerRequest
	if tp := d.ProvisionedThroughput; !onDemand && tp != nil && aws.ToInt64(tp.ReadCapacityUnits) > 0 {
		def.Throughput = &Throughput{
			ReadUnits:  aws.ToInt64(tp.ReadCapacityUnits),
			WriteUnits: aws.ToInt64(tp.WriteCapacityUnits),
		}
	}
	return def
}

// Description renders the definition as a DescribeTable response body with
// the given status. Item counts are left to the caller.
func (t TableDefinition) Description(status types.TableStatus) *types.TableDescription {
	in := t.CreateTableInput()
	d := &types.TableDescription{
		TableName:            in.TableName,
		TableStatus:          status,
		AttributeDefinitions: in.AttributeDefinitions,
		KeySchema:            in.KeySchema,
		CreationDateTime:     aws.Time(time.Now().UTC()),
		BillingModeSummary:   &types.BillingModeSummary{BillingMode: in.BillingMode},
		ProvisionedThroughput: &types.ProvisionedThroughputDescription{
			ReadCapacityUnits:  aws.Int64(0),
			WriteCapacityUnits: aws.Int64(0),
		},
	}
	if t.Throughput != nil {
		d.ProvisionedThroughput.ReadCapacityUnits = aws.Int64(t.Throughput.ReadUnits)
		d.ProvisionedThroughput.WriteCapacityUnits = aws.Int64(t.Throughput.WriteUnits)
	}
	for _, idx := range in.LocalSecondaryIndexes {
		d.LocalSecondaryIndexes = append(d.LocalSecondaryIndexes, types.LocalSecondaryIndexDescription{
			IndexName:  idx.IndexName,
			KeySchema:  idx.KeySchema,
			Projection: idx.Projection,
		})
	}
	return d
}

func attributesToSDK(attrs []AttributeDefinition) []types.AttributeDefinition {
	out := make([]types.AttributeDefinition, len(attrs))
	for i, a := range attrs {
		out[i] = types.AttributeDefinition{
			AttributeName: aws.String(a.Name),
			AttributeType: types.ScalarAttributeType(a.Type),
		}
	}
	return out
}

func attributesFromSDK(attrs []types.AttributeDefinition) []AttributeDefinition {
	out := make([]AttributeDefinition, len(attrs))
	for i, a := range attrs {
		out[i] = AttributeDefinition{Name: aws.ToString(a.AttributeName), Type: AttributeType(a.AttributeType)}
	}
	return out
}

func keySchemaToSDK(ks KeySchema) []types.KeySchemaElement {
	out := make([]types.KeySchemaElement, len(ks))
	for i, el := range ks {
		out[i] = types.KeySchemaElement{
			AttributeName: aws.String(el.Attribute),
			KeyType:       types.KeyType(el.Role),
		}
	}
	return out
}

func keySchemaFromSDK(ks []types.KeySchemaElement) KeySchema {
	out := make(KeySchema, len(ks))
	for i, el := range ks {
		out[i] = KeyElement{Attribute: aws.ToString(el.AttributeName), Role: KeyRole(el.KeyType)}
	}
	return out
}

func projectionToSDK(p Projection) *types.Projection {
	out := &types.Projection{ProjectionType: types.ProjectionType(p.Type)}
	if len(p.NonKeyAttributes) > 0 {
		out.NonKeyAttributes = append([]string(nil), p.NonKeyAttributes...)
	}
	return out
}

func projectionFromSDK(p *types.Projection) Projection {
	if p == nil {
		return Projection{}
	}
	out := Projection{Type: ProjectionType(p.ProjectionType)}
	if len(p.NonKeyAttributes) > 0 {
		out.NonKeyAttributes = append([]string(nil), p.NonKeyAttributes...)
	}
	return out
}
