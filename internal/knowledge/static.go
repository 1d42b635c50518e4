// Package knowledge 提供回答钱包常见问题时可引用的静态资料。
package knowledge

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"NovaWallet/internal/intent"
)

//go:embed snippets.json
var builtinSnippets []byte

const defaultMaxResults = 3

// Provider 按用户消息和当前意图检索资料。
type Provider interface {
	Query(utterance string, kind intent.Kind) []Snippet
}

// Snippet 是一条资料。Intents 为空时对任意意图生效。
type Snippet struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
	Tags     []string `json:"tags"`
	Intents  []string `json:"intents"`
}

func (s Snippet) String() string {
	if s.Title == "" {
		return s.Content
	}
	return s.Title + ": " + s.Content
}

// entry 是预先归一化过的 Snippet。
type entry struct {
	snippet  Snippet
	keywords []string
	tags     []string
	intents  map[intent.Kind]bool
}

// StaticProvider 在内存中做关键字打分：关键字命中计 2 分，标签命中计 1 分。
// 同分按文件中的顺序返回。
type StaticProvider struct {
	entries    []entry
	maxResults int
}

func NewStaticProvider(items []Snippet, maxResults int) *StaticProvider {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	p := &StaticProvider{entries: make([]entry, 0, len(items)), maxResults: maxResults}
	for _, s := range items {
		e := entry{snippet: s, keywords: normalize(s.Keywords), tags: normalize(s.Tags)}
		if len(s.Intents) > 0 {
			e.intents = make(map[intent.Kind]bool, len(s.Intents))
			for _, k := range s.Intents {
				e.intents[intent.Kind(strings.ToUpper(strings.TrimSpace(k)))] = true
			}
		}
		p.entries = append(p.entries, e)
	}
	return p
}

// Builtin 使用随二进制发布的印尼语资料。
func Builtin(maxResults int) (*StaticProvider, error) {
	return decode(bytes.NewReader(builtinSnippets), "内置知识库", maxResults)
}

// LoadStaticProvider 读取 JSON 数组格式的资料文件，path 为空时退回内置资料。
func LoadStaticProvider(path string, maxResults int) (*StaticProvider, error) {
	if strings.TrimSpace(path) == "" {
		return Builtin(maxResults)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开知识库 %s 失败: %w", path, err)
	}
	defer f.Close()
	return decode(f, path, maxResults)
}

func decode(r io.Reader, source string, maxResults int) (*StaticProvider, error) {
	var items []Snippet
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("解析%s失败: %w", source, err)
	}
	return NewStaticProvider(items, maxResults), nil
}

func (p *StaticProvider) Query(utterance string, kind intent.Kind) []Snippet {
	if p == nil {
		return nil
	}
	text := strings.ToLower(strings.TrimSpace(utterance))
	if text == "" {
		return nil
	}

	type hit struct {
		idx   int
		score int
	}
	var hits []hit
	for i, e := range p.entries {
		if e.intents != nil && !e.intents[kind] {
			continue
		}
		if score := 2*countIn(text, e.keywords) + countIn(text, e.tags); score > 0 {
			hits = append(hits, hit{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > p.maxResults {
		hits = hits[:p.maxResults]
	}
	out := make([]Snippet, 0, len(hits))
	for _, h := range hits {
		out = append(out, p.entries[h.idx].snippet)
	}
	return out
}

func normalize(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func countIn(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

var _ Provider = (*StaticProvider)(nil)
