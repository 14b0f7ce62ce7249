package prompt

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"yoyaktube/internal/domain/model"
)

// TokenCounter estimates how many prompt tokens a piece of text costs.
type TokenCounter func(text string) int

// Budget trims transcript entries so the rendered context stays under a
// token limit. Trimming keeps the head of the transcript: summaries lose
// the tail first, which matches how the original bounded its prompts.
type Budget struct {
	MaxTokens int
	Count     TokenCounter
}

// NewBudget builds a budget backed by tiktoken for the given model.
// maxTokens <= 0 disables trimming.
func NewBudget(maxTokens int, modelName string) Budget {
	return Budget{MaxTokens: maxTokens, Count: TiktokenCounter(modelName)}
}

// FitEntries returns the longest prefix of entries whose rendered lines
// fit within the budget. Deterministic for fixed inputs and counter.
func (b Budget) FitEntries(entries []model.TranscriptEntry) []model.TranscriptEntry {
	if b.MaxTokens <= 0 || len(entries) == 0 {
		return entries
	}
	count := b.counter()
	used := 0
	for i, e := range entries {
		line := TimestampLabel(e.Start) + " " + e.Text + "\n"
		used += count(line)
		if used > b.MaxTokens {
			return entries[:i]
		}
	}
	return entries
}

// FitText truncates plain transcript text to the budget, cutting at a
// rune boundary proportional to the overshoot.
func (b Budget) FitText(text string) string {
	if b.MaxTokens <= 0 || text == "" {
		return text
	}
	count := b.counter()
	if count(text) <= b.MaxTokens {
		return text
	}
	runes := []rune(text)
	// Binary search the largest prefix that still fits.
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if count(string(runes[:mid])) <= b.MaxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}

func (b Budget) counter() TokenCounter {
	if b.Count != nil {
		return b.Count
	}
	return heuristicCount
}

// TiktokenCounter returns a counter backed by the model's BPE encoding.
// Encoder construction is lazy and cached; when the encoding files are
// unavailable (offline run) it falls back to a rune-based heuristic so
// trimming still works, just less precisely.
func TiktokenCounter(modelName string) TokenCounter {
	var (
		once sync.Once
		enc  *tiktoken.Tiktoken
	)
	return func(text string) int {
		once.Do(func() {
			e, err := tiktoken.EncodingForModel(modelName)
			if err != nil {
				e, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
			}
			if err == nil {
				enc = e
			}
		})
		if enc == nil {
			return heuristicCount(text)
		}
		return len(enc.Encode(text, nil, nil))
	}
}

// heuristicCount approximates ~4 runes per token, never returning zero
// for non-empty text.
func heuristicCount(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
