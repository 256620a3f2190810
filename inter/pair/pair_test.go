package pair

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDedup(t *testing.T) {
	require := require.New(t)

	btc := Source{SourcePath: SourcePaths[1], EndPoint: EndPoints[0]}
	usd := Source{SourcePath: SourcePaths[6], EndPoint: EndPoints[0]}

	in := []Pair{
		{Pair: "ETH/BTC", Decimals: 8, Sources: []Source{btc}},
		{Pair: "ETH/BTC", Decimals: 8, Sources: []Source{btc, usd}}, // same first source
		{Pair: "ETH/BTC", Decimals: 6, Sources: []Source{btc}},
		{Pair: "ETH/BTC", Decimals: 8, Sources: []Source{usd}},
		{Pair: "ETH/USD", Decimals: 8, Sources: []Source{btc}},
		{Pair: "ETH/BTC", Decimals: 8, Sources: []Source{btc}},
	}

	out := Dedup(in)
	require.Len(out, 4)
	require.Equal(in[0], out[0])
	require.Equal(in[2], out[1])
	require.Equal(in[3], out[2])
	require.Equal(in[4], out[3])

	for i := range out {
		for j := i + 1; j < len(out); j++ {
			require.False(out[i].Same(out[j]))
		}
	}
}

func TestDedupNoSources(t *testing.T) {
	out := Dedup([]Pair{{Pair: "A", Decimals: 1}, {Pair: "A", Decimals: 1}})
	require.Len(t, out, 1)
}
