package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dukerupert/quoteboard/internal/model"
)

// QuoteStore keeps published quotes keyed by the N attribute "message_id".
// The author lives in the legacy "user" attribute.
type QuoteStore struct {
	api   API
	table string
}

func NewQuoteStore(api API, table string) *QuoteStore {
	return &QuoteStore{api: api, table: table}
}

func quoteKey(messageID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"message_id": attrN(messageID)}
}

func quoteFromItem(item map[string]types.AttributeValue) (*model.Quote, error) {
	id, err := getN(item, "message_id")
	if err != nil {
		return nil, err
	}
	return &model.Quote{
		MessageID: id,
		Content:   getS(item, "content"),
		Author:    getS(item, "user"),
		Timestamp: getS(item, "timestamp"),
	}, nil
}

func (s *QuoteStore) Put(ctx context.Context, q model.Quote) error {
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"message_id": attrN(q.MessageID),
			"content":    attrS(q.Content),
			"user":       attrS(q.Author),
			"timestamp":  attrS(q.Timestamp),
		},
	})
	if err != nil {
		return fmt.Errorf("put quote: %w", err)
	}
	return nil
}

func (s *QuoteStore) Get(ctx context.Context, messageID int64) (*model.Quote, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       quoteKey(messageID),
	})
	if err != nil {
		return nil, fmt.Errorf("get quote: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	q, err := quoteFromItem(out.Item)
	if err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	return q, nil
}

func (s *QuoteStore) List(ctx context.Context) ([]model.Quote, error) {
	items, err := scanAll(ctx, s.api, s.table, 0)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	quotes := make([]model.Quote, 0, len(items))
	for _, item := range items {
		q, err := quoteFromItem(item)
		if err != nil {
			return nil, fmt.Errorf("decode quote: %w", err)
		}
		quotes = append(quotes, *q)
	}
	return quotes, nil
}

func (s *QuoteStore) Delete(ctx context.Context, messageID int64) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       quoteKey(messageID),
	})
	if err != nil {
		return fmt.Errorf("delete quote: %w", err)
	}
	return nil
}
