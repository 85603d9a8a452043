package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dukerupert/quoteboard/internal/model"
)

// TokenStore keeps auth tokens keyed by the S attribute "token". The subject
// is stored as the legacy N attribute "discord_id".
type TokenStore struct {
	api   API
	table string
}

func NewTokenStore(api API, table string) *TokenStore {
	return &TokenStore{api: api, table: table}
}

func tokenKey(token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"token": attrS(token)}
}

func tokenFromItem(item map[string]types.AttributeValue) (*model.AuthToken, error) {
	subjectID, err := getN(item, "discord_id")
	if err != nil {
		return nil, err
	}
	createdAt, err := getTime(item, "created_at")
	if err != nil {
		return nil, err
	}
	expiresAt, err := getTime(item, "expires_at")
	if err != nil {
		return nil, err
	}
	t := &model.AuthToken{
		Token:       getS(item, "token"),
		SubjectID:   subjectID,
		Username:    getS(item, "username"),
		DisplayName: getS(item, "display_name"),
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
		Used:        getBool(item, "used"),
	}
	if _, ok := item["used_at"]; ok {
		usedAt, err := getTime(item, "used_at")
		if err != nil {
			return nil, err
		}
		t.UsedAt = &usedAt
	}
	return t, nil
}

func (s *TokenStore) Create(ctx context.Context, t model.AuthToken) (*model.AuthToken, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"token":        attrS(t.Token),
			"discord_id":   attrN(t.SubjectID),
			"username":     attrS(t.Username),
			"display_name": attrS(t.DisplayName),
			"created_at":   attrTime(t.CreatedAt),
			"expires_at":   attrTime(t.ExpiresAt),
			"used":         attrBool(false),
		},
		ConditionExpression:      aws.String("attribute_not_exists(#token)"),
		ExpressionAttributeNames: map[string]string{"#token": "token"},
	})
	if err != nil {
		return nil, conditionErr(err, "put auth token")
	}
	t.Used = false
	t.UsedAt = nil
	return &t, nil
}

func (s *TokenStore) Get(ctx context.Context, token string) (*model.AuthToken, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            tokenKey(token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get auth token: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	t, err := tokenFromItem(out.Item)
	if err != nil {
		return nil, fmt.Errorf("decode auth token: %w", err)
	}
	return t, nil
}

// MarkUsed sets used only while the token exists and is unused; otherwise
// the condition fails and store.ErrConflict is returned.
func (s *TokenStore) MarkUsed(ctx context.Context, token string) error {
	_, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 tokenKey(token),
		UpdateExpression:    aws.String("SET #used = :true, #usedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(#token) AND #used = :false"),
		ExpressionAttributeNames: map[string]string{
			"#token":  "token",
			"#used":   "used",
			"#usedAt": "used_at",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true":  attrBool(true),
			":false": attrBool(false),
			":now":   attrTime(time.Now()),
		},
	})
	if err != nil {
		return conditionErr(err, "mark auth token used")
	}
	return nil
}
