package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// approxCharsPerToken is the usual English ratio for BPE vocabularies.
const approxCharsPerToken = 4

// Tokenizer measures and truncates prompt text against a token budget.
type Tokenizer interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

func (t tiktokenTokenizer) Truncate(text string, maxTokens int) string {
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:maxTokens])
}

// approxTokenizer is used when no BPE vocabulary is available, for example
// local Ollama models or an offline machine.
type approxTokenizer struct{}

func (approxTokenizer) Count(text string) int {
	n := len([]rune(text))
	return (n + approxCharsPerToken - 1) / approxCharsPerToken
}

func (approxTokenizer) Truncate(text string, maxTokens int) string {
	runes := []rune(text)
	limit := maxTokens * approxCharsPerToken
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

var (
	tokenizerMu    sync.Mutex
	tokenizerCache = map[string]Tokenizer{}
)

// tokenizerForModel returns the tiktoken encoding for model, falling back to
// cl100k_base and then to the character estimate.
func tokenizerForModel(model string) Tokenizer {
	tokenizerMu.Lock()
	defer tokenizerMu.Unlock()

	if tok, ok := tokenizerCache[model]; ok {
		return tok
	}
	var tok Tokenizer = approxTokenizer{}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err == nil {
		tok = tiktokenTokenizer{enc: enc}
	}
	tokenizerCache[model] = tok
	return tok
}
