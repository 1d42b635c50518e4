package intent

// sendReadyConfidence 用于累计实体已齐全（金额 + 地址）时的 SEND 判定。
const sendReadyConfidence = 0.8

// Accumulator resolves a multi-turn conversation into one intent and the
// union of the entities mentioned so far.
type Accumulator struct {
	classifier *Classifier
}

// NewAccumulator creates an accumulator on top of a classifier.
func NewAccumulator(classifier *Classifier) *Accumulator {
	return &Accumulator{classifier: classifier}
}

// Classifier exposes the single-turn classifier.
func (a *Accumulator) Classifier() *Classifier {
	return a.classifier
}

// Resolve classifies every utterance, folds their entities oldest to
// newest, and derives the thread intent from the last turn:
//   - accumulated amount and address make a SEND or UNKNOWN last turn SEND-ready;
//   - any consultation turn wins over a resolved SEND;
//   - an UNKNOWN last turn that only adds an amount or trading pair continues
//     an earlier consultation.
func (a *Accumulator) Resolve(conv Conversation) Resolution {
	if len(conv) == 0 {
		return Resolution{Intent: KindUnknown, Confidence: 0.3}
	}

	turns := make([]Parsed, 0, len(conv))
	var acc Entities
	consultSeen := false
	consultConfidence := 0.0
	for _, text := range conv {
		parsed := a.classifier.Classify(text)
		turns = append(turns, parsed)
		acc = acc.overlay(parsed.Entities)
		if parsed.Intent == KindConsultSlippage {
			consultSeen = true
			if parsed.Confidence > consultConfidence {
				consultConfidence = parsed.Confidence
			}
		}
	}

	last := turns[len(turns)-1]
	kind, confidence := last.Intent, last.Confidence

	if (kind == KindSend || kind == KindUnknown) && acc.HasAmount() && acc.HasAddress() {
		kind = KindSend
		if confidence < sendReadyConfidence {
			confidence = sendReadyConfidence
		}
	}

	if consultSeen {
		switch {
		case kind == KindSend:
			kind, confidence = KindConsultSlippage, consultConfidence
		case kind == KindUnknown && (last.Entities.HasAmount() || last.Entities.TradingPair != ""):
			kind, confidence = KindConsultSlippage, 0.8
		}
	}

	return Resolution{
		Intent:     kind,
		Confidence: confidence,
		Entities:   acc,
		Turns:      turns,
	}
}
