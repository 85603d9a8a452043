package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dukerupert/quoteboard/internal/model"
)

// legacyVersion is reported for rating items written before the version
// attribute existed, so they can still be replaced with a conditional put.
const legacyVersion = 1

// RatingStore keeps one item per quote with a "ratings" list of
// {sessionUserID, rating} maps, the attribute names the original app used.
type RatingStore struct {
	api   API
	table string
}

func NewRatingStore(api API, table string) *RatingStore {
	return &RatingStore{api: api, table: table}
}

func ratingFromItem(item map[string]types.AttributeValue) (*model.RatingRecord, error) {
	id, err := getN(item, "message_id")
	if err != nil {
		return nil, err
	}
	rec := &model.RatingRecord{MessageID: id, Version: legacyVersion}
	if _, ok := item["version"]; ok {
		if rec.Version, err = getN(item, "version"); err != nil {
			return nil, err
		}
	}

	list, _ := item["ratings"].(*types.AttributeValueMemberL)
	if list == nil {
		return rec, nil
	}
	for i, v := range list.Value {
		m, ok := v.(*types.AttributeValueMemberM)
		if !ok {
			return nil, fmt.Errorf("ratings[%d] is %T, want map", i, v)
		}
		rater, err := getN(m.Value, "sessionUserID")
		if err != nil {
			return nil, fmt.Errorf("ratings[%d]: %w", i, err)
		}
		score, err := getN(m.Value, "rating")
		if err != nil {
			return nil, fmt.Errorf("ratings[%d]: %w", i, err)
		}
		rec.Ratings = append(rec.Ratings, model.RatingEntry{RaterID: rater, Score: int(score)})
	}
	return rec, nil
}

func (s *RatingStore) Get(ctx context.Context, messageID int64) (*model.RatingRecord, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            map[string]types.AttributeValue{"message_id": attrN(messageID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get quote ratings: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	rec, err := ratingFromItem(out.Item)
	if err != nil {
		return nil, fmt.Errorf("decode quote ratings: %w", err)
	}
	return rec, nil
}

// Put replaces the whole item if its version still equals rec.Version and
// returns the new version.
func (s *RatingStore) Put(ctx context.Context, rec model.RatingRecord) (int64, error) {
	entries := make([]types.AttributeValue, 0, len(rec.Ratings))
	for _, e := range rec.Ratings {
		entries = append(entries, &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"sessionUserID": attrN(e.RaterID),
			"rating":        attrN(int64(e.Score)),
		}})
	}

	next := rec.Version + 1
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item: map[string]types.AttributeValue{
			"message_id": attrN(rec.MessageID),
			"ratings":    &types.AttributeValueMemberL{Value: entries},
			"version":    attrN(next),
		},
		ExpressionAttributeNames: map[string]string{"#id": "message_id"},
	}
	switch rec.Version {
	case 0:
		input.ConditionExpression = aws.String("attribute_not_exists(#id)")
	case legacyVersion:
		input.ConditionExpression = aws.String("attribute_exists(#id) AND (attribute_not_exists(#v) OR #v = :v)")
	default:
		input.ConditionExpression = aws.String("#v = :v")
	}
	if rec.Version != 0 {
		input.ExpressionAttributeNames["#v"] = "version"
		input.ExpressionAttributeValues = map[string]types.AttributeValue{":v": attrN(rec.Version)}
	}

	if _, err := s.api.PutItem(ctx, input); err != nil {
		return 0, conditionErr(err, "put quote ratings")
	}
	return next, nil
}
