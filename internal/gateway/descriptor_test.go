package gateway

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryEncode_Scalars(t *testing.T) {
	q := Query{
		"search":  "red shoes",
		"page":    2,
		"perPage": 20,
		"inStock": true,
	}

	parsed, err := url.ParseQuery(q.Encode())
	require.NoError(t, err)

	assert.Equal(t, "red shoes", parsed.Get("search"))
	assert.Equal(t, "2", parsed.Get("page"))
	assert.Equal(t, "20", parsed.Get("perPage"))
	assert.Equal(t, "true", parsed.Get("inStock"))
}

func TestQueryEncode_ArrayValuesRepeatKey(t *testing.T) {
	q := Query{
		"categoryIds": []string{"c1", "c2", "c3"},
	}

	parsed, err := url.ParseQuery(q.Encode())
	require.NoError(t, err)

	assert.Equal(t, []string{"c1", "c2", "c3"}, parsed["categoryIds"])
}

func TestQueryEncode_NilValuesOmitted(t *testing.T) {
	q := Query{
		"search": "boots",
		"filter": nil,
	}

	parsed, err := url.ParseQuery(q.Encode())
	require.NoError(t, err)

	assert.True(t, parsed.Has("search"))
	// Omitted entirely, not sent as empty string
	assert.False(t, parsed.Has("filter"))
}

func TestQueryEncode_Empty(t *testing.T) {
	assert.Equal(t, "", Query{}.Encode())
	assert.Equal(t, "", Query(nil).Encode())
}
