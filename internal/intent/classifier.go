package intent

import (
	"regexp"
	"strings"
)

var (
	balancePattern   = regexp.MustCompile(`saldo|balance|berapa|how much`)
	transferPattern  = regexp.MustCompile(`kirim|send|transfer|\btf\b`)
	directionPattern = regexp.MustCompile(`kesini|ke\s+(?:sini|address|wallet|alamat)|to\s+(?:this|address|wallet|here)`)
	swapPattern      = regexp.MustCompile(`swap|tukar|convert`)
	confirmPattern   = regexp.MustCompile(`\b(?:yes|ya|yakin|ok|oke|okay|setuju|confirm|konfirmasi|lakukan|execute|proses|proceed|lanjut|lanjutkan)\b`)

	consultPatterns = []*regexp.Regexp{
		regexp.MustCompile(`slippage`),
		regexp.MustCompile(`bandingkan.*exchange`),
		regexp.MustCompile(`compare.*exchange`),
		regexp.MustCompile(`mana.*exchange`),
		regexp.MustCompile(`exchange.*mana`),
		regexp.MustCompile(`exchange.*apa`),
		regexp.MustCompile(`mana.*terbaik`),
		regexp.MustCompile(`terbaik.*exchange`),
		regexp.MustCompile(`prediksi.*biaya`),
		regexp.MustCompile(`hitung.*biaya`),
		regexp.MustCompile(`konsultasi`),
		regexp.MustCompile(`mending.*beli`),
		regexp.MustCompile(`mending.*jual`),
		regexp.MustCompile(`mending.*exchange`),
		regexp.MustCompile(`mana.*yang.*lebih`),
		regexp.MustCompile(`mana.*lebih.*murah`),
		regexp.MustCompile(`rekomendasi.*exchange`),
		regexp.MustCompile(`di.*exchange.*(?:mana|apa)`),
		regexp.MustCompile(`which.*exchange`),
		regexp.MustCompile(`best.*(?:exchange|venue)`),
	}
)

// utterance is the input shared by every classification rule.
type utterance struct {
	lower    string
	entities Entities
}

// rule returns a confidence and true when it matches.
type rule struct {
	kind  Kind
	match func(u utterance) (float64, bool)
}

// rules 的顺序即优先级：咨询必须先于转账判断，否则咨询类消息会被误判为 SEND。
var rules = []rule{
	{KindGetBalance, func(u utterance) (float64, bool) {
		return 0.95, balancePattern.MatchString(u.lower)
	}},
	{KindConsultSlippage, func(u utterance) (float64, bool) {
		for _, p := range consultPatterns {
			if p.MatchString(u.lower) {
				return 0.9, true
			}
		}
		return 0.8, u.entities.TradingPair != ""
	}},
	{KindSend, func(u utterance) (float64, bool) {
		return 0.9, transferPattern.MatchString(u.lower)
	}},
	{KindSend, func(u utterance) (float64, bool) {
		return 0.8, u.entities.HasAddress() && u.entities.HasAmount()
	}},
	{KindSend, func(u utterance) (float64, bool) {
		return 0.7, u.entities.HasAddress() && directionPattern.MatchString(u.lower)
	}},
	{KindSwap, func(u utterance) (float64, bool) {
		return 0.7, swapPattern.MatchString(u.lower)
	}},
	{KindSend, func(u utterance) (float64, bool) {
		return 0.6, confirmPattern.MatchString(u.lower)
	}},
}

// Classifier assigns an intent to a single utterance.
type Classifier struct {
	extractor *Extractor
}

// NewClassifier creates a classifier that uses extractor for entity-based rules.
func NewClassifier(extractor *Extractor) *Classifier {
	return &Classifier{extractor: extractor}
}

// Extractor exposes the underlying entity extractor.
func (c *Classifier) Extractor() *Extractor {
	return c.extractor
}

// Classify evaluates the rules in order and stops at the first match.
func (c *Classifier) Classify(text string) Parsed {
	u := utterance{
		lower:    strings.ToLower(text),
		entities: c.extractor.Extract(text),
	}
	for _, r := range rules {
		if confidence, ok := r.match(u); ok {
			return Parsed{Intent: r.kind, Confidence: confidence, Entities: u.entities}
		}
	}
	return Parsed{Intent: KindUnknown, Confidence: 0.3, Entities: u.entities}
}
