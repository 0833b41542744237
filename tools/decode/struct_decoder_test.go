package decode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Inner struct {
		Flag bool `json:"flag"`
	} `json:"inner"`
}

func TestDecodeMapByJSONTags(t *testing.T) {
	out, err := DecodeMap[sample](map[string]any{
		"name":  "general",
		"count": float64(12), // JSON numbers arrive as float64
		"inner": map[string]any{"flag": true},
	})
	require.NoError(t, err)
	require.Equal(t, "general", out.Name)
	require.EqualValues(t, 12, out.Count)
	require.True(t, out.Inner.Flag)
}

func TestDecodeMapRejectsFractionalInt(t *testing.T) {
	_, err := DecodeMap[sample](map[string]any{"count": 1.5})
	require.Error(t, err)
}

func TestDecodeMapNil(t *testing.T) {
	_, err := DecodeMap[sample](nil)
	require.Error(t, err)
}

func TestDecodeMapWeaklyTyped(t *testing.T) {
	out, err := DecodeMap[sample](map[string]any{"count": "34"})
	require.NoError(t, err)
	require.EqualValues(t, 34, out.Count)
}

func TestReadString(t *testing.T) {
	m := map[string]any{"url": "wss://gw", "n": 1}
	v, err := ReadString(m, "url")
	require.NoError(t, err)
	require.Equal(t, "wss://gw", v)

	_, err = ReadString(m, "missing")
	require.Error(t, err)
	_, err = ReadString(m, "n")
	require.Error(t, err)
}

func TestReadInt64(t *testing.T) {
	m := map[string]any{"hb": float64(41250), "s": "x"}
	v, err := ReadInt64(m, "hb")
	require.NoError(t, err)
	require.EqualValues(t, 41250, v)

	_, err = ReadInt64(m, "s")
	require.Error(t, err)
}
