package dense

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter answers how a tokenizer sees text. The compactor consults
// it to decide whether a dictionary substitution saves tokens.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) (int, error)
	// Encode returns the token ids for text.
	Encode(text string) ([]int, error)
}

// VariantHeuristic selects the built-in estimator that needs no model data.
const VariantHeuristic = "heuristic"

// NewTokenCounter returns the counter for a tokenizer variant.
// VariantHeuristic gives the built-in estimator; any other name is treated
// as a tiktoken encoding name ("cl100k_base", "o200k_base", ...).
// Tiktoken encodings load lazily and are cached per variant.
func NewTokenCounter(variant string) (TokenCounter, error) {
	if variant == "" || variant == VariantHeuristic {
		return HeuristicCounter{}, nil
	}
	return &tiktokenCounter{variant: variant}, nil
}

// HeuristicCounter estimates roughly four characters per token. It is the
// default oracle: fast, deterministic, and close enough for substitution
// decisions on typical ASCII wire text.
type HeuristicCounter struct{}

// EstimateTokens is the shared character heuristic.
func EstimateTokens(s string) int {
	return (len(s) + 3) / 4
}

func (HeuristicCounter) Count(text string) (int, error) {
	return EstimateTokens(text), nil
}

// Encode chunks the text into estimator-sized pieces; the ids carry no
// model meaning beyond their count.
func (HeuristicCounter) Encode(text string) ([]int, error) {
	n := EstimateTokens(text)
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids, nil
}

// Shared across all tiktokenCounter instances so each encoding's model
// data loads once per process.
var (
	tkMu    sync.RWMutex
	tkCache = map[string]*tiktoken.Tiktoken{}
)

type tiktokenCounter struct {
	variant string
}

func (c *tiktokenCounter) enc() (*tiktoken.Tiktoken, error) {
	tkMu.RLock()
	enc, ok := tkCache[c.variant]
	tkMu.RUnlock()
	if ok {
		return enc, nil
	}

	tkMu.Lock()
	defer tkMu.Unlock()
	if enc, ok = tkCache[c.variant]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(c.variant)
	if err != nil {
		return nil, &TokenizerError{Variant: c.variant, Err: err}
	}
	tkCache[c.variant] = enc
	return enc, nil
}

func (c *tiktokenCounter) Count(text string) (int, error) {
	ids, err := c.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (c *tiktokenCounter) Encode(text string) (ids []int, err error) {
	enc, err := c.enc()
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			ids = nil
			err = &TokenizerError{Variant: c.variant, Err: fmt.Errorf("encode: %v", r)}
		}
	}()
	return enc.Encode(text, nil, nil), nil
}
