package metadata

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/jsphweid/scoredex/model"
)

// keys per BatchGetItem request
const maxBatchKeys = 10

const partitionKey = "PK"

type DynamoOptions struct {
	Table    string
	Region   string
	Endpoint string
}

// Dynamo reads metadata items keyed on file name from a DynamoDB table.
type Dynamo struct {
	client dynamodbiface.DynamoDBAPI
	table  string
}

func NewDynamo(opts DynamoOptions) (*Dynamo, error) {
	if opts.Table == "" {
		return nil, fmt.Errorf("dynamodb metadata source needs a table name")
	}
	cfg := &aws.Config{}
	if opts.Region != "" {
		cfg.Region = aws.String(opts.Region)
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create a DynamoDB session: %w", err)
	}
	return NewDynamoWithClient(dynamodb.New(sess), opts.Table), nil
}

func NewDynamoWithClient(client dynamodbiface.DynamoDBAPI, table string) *Dynamo {
	return &Dynamo{client: client, table: table}
}

func (d *Dynamo) Lookup(ctx context.Context, names []string) (model.AboutInfo, bool, error) {
	found := make(map[string]model.AboutInfo)
	for start := 0; start < len(names); start += maxBatchKeys {
		end := start + maxBatchKeys
		if end > len(names) {
			end = len(names)
		}
		if err := d.batchGet(ctx, names[start:end], found); err != nil {
			return model.AboutInfo{}, false, err
		}
	}
	info, ok := first(names, found)
	return info, ok, nil
}

func (d *Dynamo) batchGet(ctx context.Context, names []string, found map[string]model.AboutInfo) error {
	var keys []map[string]*dynamodb.AttributeValue
	for _, name := range names {
		keys = append(keys, map[string]*dynamodb.AttributeValue{
			partitionKey: {S: aws.String(name)},
		})
	}
	req := map[string]*dynamodb.KeysAndAttributes{d.table: {Keys: keys}}

	for len(req) > 0 {
		res, err := d.client.BatchGetItemWithContext(ctx, &dynamodb.BatchGetItemInput{RequestItems: req})
		if err != nil {
			return fmt.Errorf("dynamodb batch get: %w", err)
		}
		for _, item := range res.Responses[d.table] {
			pk := attr(item, partitionKey)
			if pk == "" {
				continue
			}
			found[normalize(pk)] = model.AboutInfo{
				Composer: attr(item, "Composer"),
				Country:  attr(item, "Country"),
				Language: attr(item, "Language"),
				Genre:    attr(item, "Genre"),
				Harmony:  attr(item, "Harmony"),
				Form:     attr(item, "Form"),
				Theme:    attr(item, "Theme"),
			}
		}
		req = res.UnprocessedKeys
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func attr(item map[string]*dynamodb.AttributeValue, name string) string {
	v, ok := item[name]
	if !ok || v == nil || v.S == nil {
		return ""
	}
	return *v.S
}
