// Package tokens holds the static registry of tradable tokens that seeds
// the cache. The built-in list covers the Polygon tokens the dashboard
// tracks; deployments can override it with a TOML file, local or remote.
package tokens

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	getter "github.com/hashicorp/go-getter"
	"github.com/pelletier/go-toml/v2"

	"github.com/swapsight/swapsight/models"
)

// defaultTokens is the built-in Polygon token list.
var defaultTokens = []models.Token{
	{Symbol: "AAVE", Address: "0xD6DF932A45C0f255f85145f286eA0b292B21C90B", Decimals: 18},
	{Symbol: "CRV", Address: "0x172370d5Cd63279eFa6d502DAB29171933a610AF", Decimals: 18},
	{Symbol: "DAI", Address: "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063", Decimals: 18},
	{Symbol: "LINK", Address: "0x53E0bca35eC356BD5ddDFebbD1Fc0fD03FaBad39", Decimals: 18},
	{Symbol: "UNI", Address: "0xb33EaAd8d922B1083446DC23f610c2567fB5180f", Decimals: 18},
	{Symbol: "USDC", Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6},
	{Symbol: "USDT", Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6},
	{Symbol: "WBTC", Address: "0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6", Decimals: 8},
	{Symbol: "WETH", Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Decimals: 18},
	{Symbol: "WMATIC", Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", Decimals: 18},
}

// Registry is an immutable, symbol-keyed token list.
type Registry struct {
	tokens   []models.Token
	bySymbol map[string]models.Token
}

// tokenFile is the TOML shape of an override file.
type tokenFile struct {
	Tokens []models.Token `toml:"tokens"`
}

// Default returns the registry with the built-in token list.
func Default() *Registry {
	reg, err := newRegistry(defaultTokens)
	if err != nil {
		// The built-in list is validated by tests; this cannot happen at runtime.
		panic(err)
	}
	return reg
}

// LoadFile reads a token list from a TOML file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var file tokenFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if len(file.Tokens) == 0 {
		return nil, fmt.Errorf("token file %s contains no tokens", path)
	}

	return newRegistry(file.Tokens)
}

// LoadRemote downloads a token list with go-getter (supports git, http, s3
// and plain file sources) into dst and loads it.
func LoadRemote(src, dst string) (*Registry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Mode: getter.ClientModeFile,
	}
	if err := client.Get(); err != nil {
		return nil, fmt.Errorf("failed to download token file: %w", err)
	}

	return LoadFile(filepath.Clean(dst))
}

func newRegistry(list []models.Token) (*Registry, error) {
	bySymbol := make(map[string]models.Token, len(list))
	tokens := make([]models.Token, 0, len(list))
	for _, t := range list {
		if t.Symbol == "" {
			return nil, fmt.Errorf("token with empty symbol (address %s)", t.Address)
		}
		if t.Address == "" {
			return nil, fmt.Errorf("token %s has no contract address", t.Symbol)
		}
		if t.Decimals < 0 {
			return nil, fmt.Errorf("token %s has negative decimals", t.Symbol)
		}
		if _, dup := bySymbol[t.Symbol]; dup {
			return nil, fmt.Errorf("duplicate token symbol %s", t.Symbol)
		}
		bySymbol[t.Symbol] = t
		tokens = append(tokens, t)
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].Symbol < tokens[j].Symbol })

	return &Registry{tokens: tokens, bySymbol: bySymbol}, nil
}

// List returns the tokens sorted by symbol.
func (r *Registry) List() []models.Token {
	out := make([]models.Token, len(r.tokens))
	copy(out, r.tokens)
	return out
}

// Get looks up a token by symbol.
func (r *Registry) Get(symbol string) (models.Token, bool) {
	t, ok := r.bySymbol[symbol]
	return t, ok
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	return len(r.tokens)
}
