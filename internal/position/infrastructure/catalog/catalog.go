// Package catalog 从 YAML 文件加载交易所与资产目录，解析 symbol 到带 Basis 的资产
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/wyfcoding/ledger/internal/position/domain"
	"github.com/wyfcoding/ledger/pkg/quantity"
	"gopkg.in/yaml.v3"
)

// file 目录文件结构
type file struct {
	Exchanges []exchangeEntry `yaml:"exchanges"`
	Assets    []assetEntry    `yaml:"assets"`
}

type exchangeEntry struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

// assetEntry 资产条目，precision 与 unit 二选一
type assetEntry struct {
	Symbol    string `yaml:"symbol"`
	Precision *int32 `yaml:"precision"`
	Unit      string `yaml:"unit"`
}

// Catalog 只读的资产目录，加载后并发安全
type Catalog struct {
	exchanges map[string]domain.Exchange
	assets    map[string]domain.Asset
}

var _ domain.ReferenceResolver = (*Catalog)(nil)

// Load 从文件加载目录
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 目录内容
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		exchanges: make(map[string]domain.Exchange, len(f.Exchanges)),
		assets:    make(map[string]domain.Asset, len(f.Assets)),
	}
	for _, e := range f.Exchanges {
		ex, err := domain.NewExchange(e.Symbol)
		if err != nil {
			return nil, err
		}
		if _, dup := c.exchanges[ex.Symbol()]; dup {
			return nil, fmt.Errorf("duplicate exchange %s in catalog", ex.Symbol())
		}
		c.exchanges[ex.Symbol()] = ex
	}
	for _, a := range f.Assets {
		basis, err := a.basis()
		if err != nil {
			return nil, err
		}
		asset, err := domain.NewAsset(a.Symbol, basis)
		if err != nil {
			return nil, err
		}
		if _, dup := c.assets[asset.Symbol()]; dup {
			return nil, fmt.Errorf("duplicate asset %s in catalog", asset.Symbol())
		}
		c.assets[asset.Symbol()] = asset
	}
	return c, nil
}

func (a assetEntry) basis() (quantity.Basis, error) {
	switch {
	case a.Precision != nil && a.Unit != "":
		return quantity.Basis{}, fmt.Errorf("asset %s: precision and unit are mutually exclusive", a.Symbol)
	case a.Precision != nil:
		b, err := quantity.BasisFromPrecision(*a.Precision)
		if err != nil {
			return quantity.Basis{}, fmt.Errorf("asset %s: %w", a.Symbol, err)
		}
		return b, nil
	case a.Unit != "":
		b, err := quantity.ParseBasis(a.Unit)
		if err != nil {
			return quantity.Basis{}, fmt.Errorf("asset %s: %w", a.Symbol, err)
		}
		return b, nil
	default:
		return quantity.Basis{}, fmt.Errorf("asset %s: precision or unit is required: %w", a.Symbol, quantity.ErrInvalidBasis)
	}
}

// Exchange 实现 domain.ReferenceResolver
func (c *Catalog) Exchange(symbol string) (domain.Exchange, error) {
	ex, ok := c.exchanges[normalize(symbol)]
	if !ok {
		return domain.Exchange{}, fmt.Errorf("%s: %w", symbol, domain.ErrExchangeNotFound)
	}
	return ex, nil
}

// Asset 实现 domain.ReferenceResolver
func (c *Catalog) Asset(symbol string) (domain.Asset, error) {
	a, ok := c.assets[normalize(symbol)]
	if !ok {
		return domain.Asset{}, fmt.Errorf("%s: %w", symbol, domain.ErrAssetNotFound)
	}
	return a, nil
}

// Assets 按 symbol 排序返回全部资产
func (c *Catalog) Assets() []domain.Asset {
	out := make([]domain.Asset, 0, len(c.assets))
	for _, a := range c.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol() < out[j].Symbol() })
	return out
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
