package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dukerupert/quoteboard/internal/model"
)

// LimboStore keeps moderation candidates keyed by the S attribute
// "message_id".
type LimboStore struct {
	api   API
	table string
}

func NewLimboStore(api API, table string) *LimboStore {
	return &LimboStore{api: api, table: table}
}

func candidateKey(messageID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"message_id": attrS(messageID)}
}

func candidateFromItem(item map[string]types.AttributeValue) model.Candidate {
	return model.Candidate{
		MessageID: getS(item, "message_id"),
		Content:   getS(item, "content"),
		Author:    getS(item, "user"),
		Timestamp: getS(item, "timestamp"),
	}
}

func (s *LimboStore) Create(ctx context.Context, c model.Candidate) error {
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"message_id": attrS(c.MessageID),
			"content":    attrS(c.Content),
			"user":       attrS(c.Author),
			"timestamp":  attrS(c.Timestamp),
		},
		ConditionExpression: aws.String("attribute_not_exists(message_id)"),
	})
	if err != nil {
		return conditionErr(err, "put limbo quote")
	}
	return nil
}

func (s *LimboStore) Get(ctx context.Context, messageID string) (*model.Candidate, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            candidateKey(messageID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get limbo quote: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	c := candidateFromItem(out.Item)
	return &c, nil
}

func (s *LimboStore) List(ctx context.Context, limit int) ([]model.Candidate, error) {
	items, err := scanAll(ctx, s.api, s.table, limit)
	if err != nil {
		return nil, fmt.Errorf("list limbo quotes: %w", err)
	}
	candidates := make([]model.Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, candidateFromItem(item))
	}
	return candidates, nil
}

func (s *LimboStore) Delete(ctx context.Context, messageID string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       candidateKey(messageID),
	})
	if err != nil {
		return fmt.Errorf("delete limbo quote: %w", err)
	}
	return nil
}
