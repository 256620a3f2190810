// Tests for the peer identity: text round trips, enode derivation and
// rejection of malformed input.
package peerid

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// TestFromString checks that a hex private key parses with or without 0x prefix.
func TestFromString(t *testing.T) {
	require := require.New(t)

	key := FakeKey(1)
	hexKey := strings.TrimPrefix(string(mustText(t, FromKey(key))), "0x")

	// Case 1: without prefix.
	{
		got, err := FromString(hexKey)
		require.NoError(err)
		require.Equal(FromKey(key).String(), got.String())
	}

	// Case 2: with prefix.
	{
		got, err := FromString("0x" + hexKey)
		require.NoError(err)
		require.Equal(crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(got.Key().PublicKey))
	}

	// Case 3: empty input.
	{
		_, err := FromString("")
		require.Error(err)
		_, err = FromString("0x")
		require.Error(err)
	}

	// Case 4: not hex.
	{
		_, err := FromString("-")
		require.Error(err)
	}
}

// TestStringIsStable verifies the encoding does not change between calls and
// differs between keys.
func TestStringIsStable(t *testing.T) {
	require := require.New(t)

	a := FromKey(FakeKey(1))
	b := FromKey(FakeKey(2))
	require.Equal(a.String(), a.String())
	require.NotEqual(a.String(), b.String())
	require.Len(a.String(), 64)
	require.Equal("", Identity{}.String())
}

func TestURL(t *testing.T) {
	require := require.New(t)

	id := FromKey(FakeKey(3))
	url := id.URL(9001)
	require.True(strings.HasPrefix(url, "enode://"))
	require.True(strings.HasSuffix(url, "@127.0.0.1:9001"), url)
}

// TestJSONRoundTrip verifies identities survive the run summary encoding.
func TestJSONRoundTrip(t *testing.T) {
	require := require.New(t)

	in := []Identity{FromKey(FakeKey(4)), FromKey(FakeKey(5))}
	b, err := json.Marshal(in)
	require.NoError(err)

	var out []Identity
	require.NoError(json.Unmarshal(b, &out))
	require.Len(out, 2)
	require.Equal(in[0].String(), out[0].String())
	require.Equal(in[1].String(), out[1].String())

	_, err = json.Marshal(Identity{})
	require.Error(err)
}

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	require.NotEqual(t, a.String(), b.String())
}

func mustText(t *testing.T, id Identity) []byte {
	t.Helper()
	b, err := id.MarshalText()
	require.NoError(t, err)
	return b
}
