// Package dynamo implements the quoteboard stores on Amazon DynamoDB, using
// the table layout of the original deployment so both can share data.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dukerupert/quoteboard/internal/store"
)

// API is the subset of the DynamoDB client used by the stores.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Tables names the four tables.
type Tables struct {
	Tokens  string
	Quotes  string
	Limbo   string
	Ratings string
}

// DefaultTables returns the table names used by the original deployment.
func DefaultTables() Tables {
	return Tables{
		Tokens:  "afterdark-auth-tokens",
		Quotes:  "afterdark-quotes",
		Limbo:   "limbo-afterdark-quotes-updated",
		Ratings: "afterdark-quote-ratings",
	}
}

// Config holds DynamoDB connection settings. When AccessKey and SecretKey are
// empty the default AWS credential chain is used.
type Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Tables    Tables
}

// NewClient builds a DynamoDB client from cfg.
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts := dynamodb.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		}
		if cfg.Endpoint != "" {
			opts.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		return dynamodb.New(opts), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// Stores bundles one store per table over a shared client.
type Stores struct {
	Tokens  *TokenStore
	Quotes  *QuoteStore
	Limbo   *LimboStore
	Ratings *RatingStore
}

func NewStores(api API, tables Tables) *Stores {
	return &Stores{
		Tokens:  NewTokenStore(api, tables.Tokens),
		Quotes:  NewQuoteStore(api, tables.Quotes),
		Limbo:   NewLimboStore(api, tables.Limbo),
		Ratings: NewRatingStore(api, tables.Ratings),
	}
}

// conditionErr maps a failed condition expression to store.ErrConflict.
func conditionErr(err error, op string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return store.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

// scanAll pages through a table, stopping early once limit items have been
// collected when limit is positive.
func scanAll(ctx context.Context, api API, table string, limit int) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		input := &dynamodb.ScanInput{
			TableName:         aws.String(table),
			ExclusiveStartKey: startKey,
		}
		if limit > 0 {
			input.Limit = aws.Int32(int32(limit - len(items)))
		}
		out, err := api.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, out.Items...)
		if limit > 0 && len(items) >= limit {
			return items[:limit], nil
		}
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
