package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/quoteboard/internal/model"
	"github.com/dukerupert/quoteboard/internal/store"
)

func quoteItem(id int64, content string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"message_id": attrN(id),
		"content":    attrS(content),
		"user":       attrS("bob"),
		"timestamp":  attrS("2024-03-01T12:00:00.000Z"),
	}
}

func TestQuoteStorePutUsesLegacyAttributes(t *testing.T) {
	api := &fakeAPI{}
	s := NewQuoteStore(api, "quotes")

	err := s.Put(context.Background(), model.Quote{MessageID: 7, Content: "hi", Author: "bob", Timestamp: "t"})
	require.NoError(t, err)
	require.Len(t, api.puts, 1)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "bob"}, api.puts[0].Item["user"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, api.puts[0].Item["message_id"])
}

func TestQuoteStoreGetExponentID(t *testing.T) {
	item := quoteItem(0, "hi")
	item["message_id"] = &types.AttributeValueMemberN{Value: "1.2e3"}
	s := NewQuoteStore(&fakeAPI{getItem: item}, "quotes")

	q, err := s.Get(context.Background(), 1200)
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, int64(1200), q.MessageID)
	assert.Equal(t, "bob", q.Author)
}

func TestQuoteStoreListPaginates(t *testing.T) {
	api := &fakeAPI{pages: [][]map[string]types.AttributeValue{
		{quoteItem(1, "a"), quoteItem(2, "b")},
		{quoteItem(3, "c")},
	}}
	s := NewQuoteStore(api, "quotes")

	quotes, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	assert.Equal(t, "c", quotes[2].Content)
	require.Len(t, api.scans, 2)
	assert.Nil(t, api.scans[0].ExclusiveStartKey)
	assert.NotNil(t, api.scans[1].ExclusiveStartKey)
}

func TestLimboStoreListLimit(t *testing.T) {
	api := &fakeAPI{pages: [][]map[string]types.AttributeValue{
		{quoteItem(1, "a")},
		{quoteItem(2, "b"), quoteItem(3, "c")},
	}}
	s := NewLimboStore(api, "limbo")

	candidates, err := s.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "1", candidates[0].MessageID)
	assert.Equal(t, "2", candidates[1].MessageID)
	require.Len(t, api.scans, 2)
	assert.EqualValues(t, 1, *api.scans[1].Limit)
}

func TestLimboStoreCreateDuplicate(t *testing.T) {
	s := NewLimboStore(&fakeAPI{err: conditionFailed()}, "limbo")

	err := s.Create(context.Background(), model.Candidate{MessageID: "1", Content: "a"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestLimboStoreDelete(t *testing.T) {
	api := &fakeAPI{}
	s := NewLimboStore(api, "limbo")

	require.NoError(t, s.Delete(context.Background(), "99"))
	require.Len(t, api.deletes, 1)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "99"}, api.deletes[0].Key["message_id"])
}
