package dynamo

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// isoLayout matches JavaScript's Date.prototype.toISOString for UTC times.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func attrS(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

func attrN(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

func attrBool(v bool) types.AttributeValue {
	return &types.AttributeValueMemberBOOL{Value: v}
}

func attrTime(t time.Time) types.AttributeValue {
	return attrS(t.UTC().Format(isoLayout))
}

func getS(item map[string]types.AttributeValue, key string) string {
	switch v := item[key].(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

// getN reads a numeric attribute. Items written by the JavaScript app may
// hold numbers in exponent form, so float parsing is the fallback.
func getN(item map[string]types.AttributeValue, key string) (int64, error) {
	var raw string
	switch v := item[key].(type) {
	case *types.AttributeValueMemberN:
		raw = v.Value
	case *types.AttributeValueMemberS:
		raw = v.Value
	case nil:
		return 0, fmt.Errorf("attribute %q missing", key)
	default:
		return 0, fmt.Errorf("attribute %q is %T, want number", key, v)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("attribute %q: invalid number %q", key, raw)
	}
	return int64(f), nil
}

func getBool(item map[string]types.AttributeValue, key string) bool {
	if v, ok := item[key].(*types.AttributeValueMemberBOOL); ok {
		return v.Value
	}
	return false
}

func getTime(item map[string]types.AttributeValue, key string) (time.Time, error) {
	raw := getS(item, key)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("attribute %q: %w", key, err)
	}
	return t, nil
}
