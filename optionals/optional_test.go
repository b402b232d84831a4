package optionals

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSomeNone(t *testing.T) {
	some := Some(int64(0))
	assert.True(t, some.IsSome())
	v, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, int64(0), v)

	none := None[int64]()
	assert.True(t, none.IsNone())
	_, ok = none.Get()
	assert.False(t, ok)
	assert.Equal(t, int64(7), none.GetOrDefault(7))
}

func TestMap(t *testing.T) {
	doubled := Map(Some(21), func(n int) int { return 2 * n })
	assert.Equal(t, 42, doubled.GetOrDefault(0))

	assert.True(t, Map(None[int](), func(n int) int { return n }).IsNone())
}

func TestJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(Some("hello"))
	assert.NoError(t, err)
	assert.Equal(t, `"hello"`, string(data))

	var opt Optional[string]
	assert.NoError(t, json.Unmarshal(data, &opt))
	assert.Equal(t, "hello", opt.GetOrDefault(""))

	data, err = json.Marshal(None[string]())
	assert.NoError(t, err)
	assert.Equal(t, `null`, string(data))
}
