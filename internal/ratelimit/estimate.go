package ratelimit

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Estimator counts prompt tokens before a call so the gate can judge
// admission against the window. Uses the cl100k_base encoding with a
// heuristic fallback if the encoding cannot be loaded.
type Estimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewEstimator creates a token estimator. The encoding loads lazily on
// first use.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate returns the approximate token count of the given text.
func (e *Estimator) Estimate(text string) int64 {
	if text == "" {
		return 0
	}

	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			e.enc = enc
		}
	})

	if e.enc != nil {
		return int64(len(e.enc.Encode(text, nil, nil)))
	}
	return estimateFast(text)
}

// estimateFast approximates token count without an encoder: roughly one
// token per four characters, never fewer than the word count.
func estimateFast(text string) int64 {
	chars := int64(utf8.RuneCountInString(text))
	words := int64(len(strings.Fields(text)))
	est := chars / 4
	if words > est {
		est = words
	}
	if est == 0 {
		est = 1
	}
	return est
}
