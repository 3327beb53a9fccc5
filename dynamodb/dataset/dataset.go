// Package dataset holds the sample records loaded by `ddbseed --operation
// upload`: eight products, two forums, three threads and four replies, one
// group per table of the default catalog. Records are plain Go structs
// marshalled with attributevalue, so the attribute types follow the struct
// field types.
package dataset

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/pkg/errors"

	"github.com/acksell/ddbseed/dynamodb/attr"
	"github.com/acksell/ddbseed/dynamodb/ingest"
)

// Product is a ProductCatalog item: either a book or a bicycle.
type Product struct {
	Id              int      `dynamodbav:"Id"`
	Title           string   `dynamodbav:"Title"`
	ISBN            string   `dynamodbav:"ISBN,omitempty"`
	Authors         []string `dynamodbav:"Authors,omitempty"`
	Description     string   `dynamodbav:"Description,omitempty"`
	BicycleType     string   `dynamodbav:"BicycleType,omitempty"`
	Brand           string   `dynamodbav:"Brand,omitempty"`
	Price           int      `dynamodbav:"Price"`
	Color           []string `dynamodbav:"Color,omitempty"`
	Dimensions      string   `dynamodbav:"Dimensions,omitempty"`
	PageCount       int      `dynamodbav:"PageCount,omitempty"`
	InPublication   *bool    `dynamodbav:"InPublication,omitempty"`
	ProductCategory string   `dynamodbav:"ProductCategory"`
}

type Forum struct {
	Name     string `dynamodbav:"Name"`
	Category string `dynamodbav:"Category"`
	Threads  int    `dynamodbav:"Threads,omitempty"`
	Messages int    `dynamodbav:"Messages,omitempty"`
	Views    int    `dynamodbav:"Views,omitempty"`
}

// Thread counters are stored even when zero.
type Thread struct {
	ForumName          string   `dynamodbav:"ForumName"`
	Subject            string   `dynamodbav:"Subject"`
	Message            string   `dynamodbav:"Message"`
	LastPostedBy       string   `dynamodbav:"LastPostedBy"`
	LastPostedDateTime string   `dynamodbav:"LastPostedDateTime"`
	Views              int      `dynamodbav:"Views"`
	Replies            int      `dynamodbav:"Replies"`
	Answered           int      `dynamodbav:"Answered"`
	Tags               []string `dynamodbav:"Tags"`
}

// Reply.Id is "<forum name>#<thread subject>".
type Reply struct {
	Id            string `dynamodbav:"Id"`
	ReplyDateTime string `dynamodbav:"ReplyDateTime"`
	Message       string `dynamodbav:"Message"`
	PostedBy      string `dynamodbav:"PostedBy"`
}

var Products = []Product{
	{Id: 101, Title: "Book 101 Title", ISBN: "111-1111111111", Authors: []string{"Author1"}, Price: 2,
		Dimensions: "8.5 x 11.0 x 0.5", PageCount: 500, InPublication: aws.Bool(true), ProductCategory: "Book"},
	{Id: 102, Title: "Book 102 Title", ISBN: "222-2222222222", Authors: []string{"Author1", "Author2"}, Price: 20,
		Dimensions: "8.5 x 11.0 x 0.8", PageCount: 600, InPublication: aws.Bool(true), ProductCategory: "Book"},
	{Id: 103, Title: "Book 103 Title", ISBN: "333-3333333333", Authors: []string{"Author1", "Author2"}, Price: 2000,
		Dimensions: "8.5 x 11.0 x 1.5", PageCount: 600, InPublication: aws.Bool(false), ProductCategory: "Book"},
	{Id: 201, Title: "18-Bike-201", Description: "201 Description", BicycleType: "Road", Brand: "Mountain A",
		Price: 100, Color: []string{"Red", "Black"}, ProductCategory: "Bicycle"},
	{Id: 202, Title: "21-Bike-202", Description: "202 Description", BicycleType: "Road", Brand: "Brand-Company A",
		Price: 200, Color: []string{"Green", "Black"}, ProductCategory: "Bicycle"},
	{Id: 203, Title: "19-Bike-203", Description: "203 Description", BicycleType: "Road", Brand: "Brand-Company B",
		Price: 300, Color: []string{"Red", "Green", "Black"}, ProductCategory: "Bicycle"},
	{Id: 204, Title: "18-Bike-204", Description: "204 Description", BicycleType: "Mountain", Brand: "Brand-Company B",
		Price: 400, Color: []string{"Red"}, ProductCategory: "Bicycle"},
	{Id: 205, Title: "18-Bike-204", Description: "205 Description", BicycleType: "Hybrid", Brand: "Brand-Company C",
		Price: 500, Color: []string{"Red", "Black"}, ProductCategory: "Bicycle"},
}

var Forums = []Forum{
	{Name: "Amazon DynamoDB", Category: "Amazon Web Services", Threads: 2, Messages: 4, Views: 1000},
	{Name: "Amazon S3", Category: "Amazon Web Services"},
}

var Threads = []Thread{
	{ForumName: "Amazon DynamoDB", Subject: "DynamoDB Thread 1", Message: "DynamoDB thread 1 message",
		LastPostedBy: "User A", LastPostedDateTime: "2015-09-22T19:58:22.514Z", Tags: []string{"index", "primarykey", "table"}},
	{ForumName: "Amazon DynamoDB", Subject: "DynamoDB Thread 2", Message: "DynamoDB thread 2 message",
		LastPostedBy: "User A", LastPostedDateTime: "2015-09-15T19:58:22.514Z", Tags: []string{"items", "attributes", "throughput"}},
	{ForumName: "Amazon S3", Subject: "S3 Thread 1", Message: "S3 thread 1 message",
		LastPostedBy: "User A", LastPostedDateTime: "2015-09-29T19:58:22.514Z", Tags: []string{"largeobjects", "multipart upload"}},
}

var Replies = []Reply{
	{Id: "Amazon DynamoDB#DynamoDB Thread 1", ReplyDateTime: "2015-09-15T19:58:22.947Z", Message: "DynamoDB Thread 1 Reply 1 text", PostedBy: "User A"},
	{Id: "Amazon DynamoDB#DynamoDB Thread 1", ReplyDateTime: "2015-09-22T19:58:22.947Z", Message: "DynamoDB Thread 1 Reply 2 text", PostedBy: "User B"},
	{Id: "Amazon DynamoDB#DynamoDB Thread 2", ReplyDateTime: "2015-09-29T19:58:22.947Z", Message: "DynamoDB Thread 2 Reply 1 text", PostedBy: "User A"},
	{Id: "Amazon DynamoDB#DynamoDB Thread 2", ReplyDateTime: "2015-10-05T19:58:22.947Z", Message: "DynamoDB Thread 2 Reply 2 text", PostedBy: "User A"},
}

// Requests returns the sample records as put requests, grouped by table in
// catalog order.
func Requests() ([]ingest.WriteRequest, error) {
	var reqs []ingest.WriteRequest
	var err error
	if reqs, err = appendRecords(reqs, "ProductCatalog", Products); err != nil {
		return nil, err
	}
	if reqs, err = appendRecords(reqs, "Forum", Forums); err != nil {
		return nil, err
	}
	if reqs, err = appendRecords(reqs, "Thread", Threads); err != nil {
		return nil, err
	}
	return appendRecords(reqs, "Reply", Replies)
}

func appendRecords[T any](reqs []ingest.WriteRequest, tableName string, records []T) ([]ingest.WriteRequest, error) {
	for i, rec := range records {
		av, err := attributevalue.MarshalMap(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "marshal %s record %d", tableName, i)
		}
		item, err := attr.ItemFromSDK(av)
		if err != nil {
			return nil, errors.Wrapf(err, "convert %s record %d", tableName, i)
		}
		reqs = append(reqs, ingest.WriteRequest{Table: tableName, Item: item})
	}
	return reqs, nil
}
