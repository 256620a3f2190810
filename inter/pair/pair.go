// Package pair describes the trading pairs an oracle node reports on and the
// price sources it reads them from.
package pair

// SourcePaths are the JSON paths the oracle extracts a price from.
var SourcePaths = []string{
	"market_data.current_price.aud",
	"market_data.current_price.btc",
	"market_data.current_price.cad",
	"market_data.current_price.czk",
	"market_data.current_price.dot",
	"market_data.current_price.jpy",
	"market_data.current_price.usd",
	"market_data.current_price.xlm",
}

// EndPoints are the HTTP endpoints prices are fetched from.
var EndPoints = []string{
	"https://api.coingecko.com/api/v3/coins/bitcoin",
	"https://api.coingecko.com/api/v3/coins/ethereum",
	"https://api.coingecko.com/api/v3/coins/tether",
	"https://api.coingecko.com/api/v3/coins/usd-coin",
	"https://api.coingecko.com/api/v3/coins/staked-ether",
	"https://api.coingecko.com/api/v3/coins/hedera-hashgraph",
	"https://api.coingecko.com/api/v3/coins/chain-2",
	"https://api.coingecko.com/api/v3/coins/near",
	"https://api.coingecko.com/api/v3/coins/dai",
	"https://api.coingecko.com/api/v3/coins/avalanche-2",
	"https://api.coingecko.com/api/v3/coins/algorand",
	"https://api.coingecko.com/api/v3/coins/theta-token",
}

// Source is one place a pair's price is read from.
type Source struct {
	SourcePath string `json:"source_path" yaml:"source_path"`
	EndPoint   string `json:"end_point" yaml:"end_point"`
}

// Pair is a trading pair and where its price is read from.
type Pair struct {
	Pair     string   `json:"pair" yaml:"pair"`
	Decimals int      `json:"decimals" yaml:"decimals"`
	Sources  []Source `json:"sources" yaml:"sources"`
}

// key identifies a pair structurally: symbol, precision and first source.
type key struct {
	pair     string
	decimals int
	first    Source
}

func (p Pair) key() key {
	k := key{pair: p.Pair, decimals: p.Decimals}
	if len(p.Sources) > 0 {
		k.first = p.Sources[0]
	}
	return k
}

// Same reports whether p and o are structurally identical.
func (p Pair) Same(o Pair) bool {
	return p.key() == o.key()
}

// Dedup keeps the first occurrence of every structurally distinct pair,
// preserving order.
func Dedup(pairs []Pair) []Pair {
	seen := make(map[key]struct{}, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		k := p.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
