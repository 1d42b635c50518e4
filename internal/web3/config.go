package web3

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	xerrors "NovaWallet/internal/errors"

	"gopkg.in/yaml.v3"
)

// CodeUnsupportedChain marks a chain id that is not part of the catalogue.
const CodeUnsupportedChain xerrors.Code = "UNSUPPORTED_CHAIN"

func init() {
	xerrors.Register(CodeUnsupportedChain, xerrors.Attributes{
		Message:  "unsupported chain",
		Severity: xerrors.SeverityInfo,
	})
}

//go:embed chains.yaml
var builtinCatalogue []byte

// ChainDefinition describes a single network the wallet can talk to.
type ChainDefinition struct {
	ID           int64    `yaml:"id" json:"id"`
	Name         string   `yaml:"name" json:"name"`
	NativeSymbol string   `yaml:"native_symbol" json:"native_symbol"`
	Testnet      bool     `yaml:"testnet" json:"testnet"`
	Layer2       bool     `yaml:"layer2" json:"layer2"`
	Keywords     []string `yaml:"keywords" json:"keywords"`
	RPCURL       string   `yaml:"rpc_url" json:"-"`
}

// Catalogue is the ordered list of supported chains. Lookups by keyword
// respect the declared order.
type Catalogue struct {
	DefaultChain int64             `yaml:"default_chain"`
	Chains       []ChainDefinition `yaml:"chains"`
}

// DefaultCatalogue returns the catalogue compiled into the binary.
func DefaultCatalogue() Catalogue {
	cat, err := parseCatalogue(builtinCatalogue)
	if err != nil {
		panic(fmt.Sprintf("内置链配置无效: %v", err))
	}
	return cat
}

// LoadCatalogue parses a YAML catalogue. An empty path yields the built-in one.
func LoadCatalogue(path string) (Catalogue, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalogue(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("读取链配置失败: %w", err)
	}
	return parseCatalogue(content)
}

func parseCatalogue(content []byte) (Catalogue, error) {
	var cat Catalogue
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalogue{}, fmt.Errorf("解析链配置失败: %w", err)
	}
	if len(cat.Chains) == 0 {
		return Catalogue{}, fmt.Errorf("链配置为空")
	}
	seen := make(map[int64]struct{}, len(cat.Chains))
	for i := range cat.Chains {
		def := &cat.Chains[i]
		if def.ID <= 0 {
			return Catalogue{}, fmt.Errorf("第 %d 条链缺少 id", i+1)
		}
		if _, dup := seen[def.ID]; dup {
			return Catalogue{}, fmt.Errorf("链 %d 重复定义", def.ID)
		}
		seen[def.ID] = struct{}{}
		if def.Name == "" {
			def.Name = fmt.Sprintf("Chain %d", def.ID)
		}
		if def.NativeSymbol == "" {
			def.NativeSymbol = "ETH"
		}
		def.NativeSymbol = strings.ToUpper(def.NativeSymbol)
		for k, kw := range def.Keywords {
			def.Keywords[k] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	if cat.DefaultChain == 0 {
		cat.DefaultChain = cat.Chains[0].ID
	}
	if _, ok := seen[cat.DefaultChain]; !ok {
		return Catalogue{}, fmt.Errorf("默认链 %d 未在配置中找到", cat.DefaultChain)
	}
	return cat, nil
}

// Lookup returns the definition for a chain id.
func (c Catalogue) Lookup(id int64) (ChainDefinition, bool) {
	for _, def := range c.Chains {
		if def.ID == id {
			return def, true
		}
	}
	return ChainDefinition{}, false
}

// Require is Lookup that reports an unknown chain as CodeUnsupportedChain.
func (c Catalogue) Require(id int64) (ChainDefinition, error) {
	def, ok := c.Lookup(id)
	if !ok {
		return ChainDefinition{}, xerrors.New(CodeUnsupportedChain,
			fmt.Sprintf("链 %d 不在支持列表中", id),
			xerrors.WithMetadata("chain_id", fmt.Sprint(id)))
	}
	return def, nil
}

// Default returns the definition of the default chain.
func (c Catalogue) Default() ChainDefinition {
	def, _ := c.Lookup(c.DefaultChain)
	return def
}

// Detect walks the catalogue in order and returns the first chain whose
// keyword appears in text. Keywords of up to three letters ("op", "eth")
// must stand alone as a word; longer ones match anywhere.
func (c Catalogue) Detect(text string) (ChainDefinition, bool) {
	lower := strings.ToLower(text)
	for _, def := range c.Chains {
		for _, kw := range def.Keywords {
			if containsKeyword(lower, strings.ToLower(kw)) {
				return def, true
			}
		}
	}
	return ChainDefinition{}, false
}

const shortKeywordLen = 3

func containsKeyword(text, kw string) bool {
	if kw == "" {
		return false
	}
	if len(kw) > shortKeywordLen {
		return strings.Contains(text, kw)
	}
	for from := 0; ; {
		i := strings.Index(text[from:], kw)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(kw)
		if !isWordByte(text, start-1) && !isWordByte(text, end) {
			return true
		}
		from = start + 1
	}
}

// isWordByte reports whether text[i] is an ASCII letter or digit; out of
// range counts as a boundary.
func isWordByte(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	b := text[i]
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// NameOf returns the display name of a chain, or a generic label when unknown.
func (c Catalogue) NameOf(id int64) string {
	if def, ok := c.Lookup(id); ok {
		return def.Name
	}
	return fmt.Sprintf("Chain %d", id)
}

// NativeSymbolOf returns the native gas token symbol for a chain.
func (c Catalogue) NativeSymbolOf(id int64) string {
	if def, ok := c.Lookup(id); ok {
		return def.NativeSymbol
	}
	return "ETH"
}
