package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_DecodesTextAndKeepsInvalidBytes(t *testing.T) {
	v := From(map[string]interface{}{
		"name":   []byte("Some.Release"),
		"broken": []byte{0xff, 0xfe, 'a'},
		"size":   int64(42),
		"ratio":  1.5,
		"files":  []interface{}{"a", []byte("b")},
		"nil":    nil,
	})

	require.Equal(t, Map, v.Kind())

	name, ok := v.Get("name").Text()
	require.True(t, ok)
	assert.Equal(t, "Some.Release", name)

	broken := v.Get("broken")
	assert.Equal(t, Bytes, broken.Kind())
	_, ok = broken.Text()
	assert.False(t, ok)
	raw, ok := broken.Raw()
	require.True(t, ok)
	assert.Equal(t, []byte{0xff, 0xfe, 'a'}, raw)
	assert.Equal(t, `"\xff\xfea"`, broken.String())

	size, ok := v.Get("size").Int()
	require.True(t, ok)
	assert.EqualValues(t, 42, size)

	ratio, ok := v.Get("ratio").Float()
	require.True(t, ok)
	assert.Equal(t, 1.5, ratio)

	assert.Len(t, v.Get("files").List(), 2)
	assert.Equal(t, Invalid, v.Get("nil").Kind())
	assert.Equal(t, Invalid, v.Get("missing").Kind())
	assert.Equal(t, 6, v.Len())
}

func TestFrom_InterfaceKeyedMap(t *testing.T) {
	v := From(map[interface{}]interface{}{
		[]byte("url"): "http://tracker.example/announce",
		"tier":        0,
	})

	url, ok := v.Get("url").Text()
	require.True(t, ok)
	assert.Equal(t, "http://tracker.example/announce", url)

	tier, ok := v.Get("tier").Int()
	require.True(t, ok)
	assert.Zero(t, tier)
}

func TestFrom_UnknownTypeIsInvalid(t *testing.T) {
	v := From(struct{}{})
	assert.Equal(t, Invalid, v.Kind())
	assert.Equal(t, "<invalid>", v.String())
	assert.Nil(t, v.List())
	assert.Zero(t, v.Len())
}
