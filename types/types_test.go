package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHexBytesRoundTrip(t *testing.T) {
	h := HexBytes{0xde, 0xad, 0xbe, 0xef}
	require.Equal(t, "0xdeadbeef", h.String())

	out, err := json.Marshal(h)
	require.NoError(t, err)
	require.JSONEq(t, `"0xdeadbeef"`, string(out))

	var decoded HexBytes
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, h, decoded)
}

func TestHexBytesUnmarshalAcceptsMissingPrefix(t *testing.T) {
	var decoded HexBytes
	require.NoError(t, json.Unmarshal([]byte(`"deadbeef"`), &decoded))
	require.Equal(t, HexBytes{0xde, 0xad, 0xbe, 0xef}, decoded)
}

func TestHexBytesEmptyString(t *testing.T) {
	var empty HexBytes
	require.Equal(t, "0x", empty.String())
}

func TestHexBytesUnmarshalRejectsInvalidHex(t *testing.T) {
	var decoded HexBytes
	err := json.Unmarshal([]byte(`"0xzz"`), &decoded)
	require.Error(t, err)
}
