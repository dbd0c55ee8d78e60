package nlp

import (
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/pkoukk/tiktoken-go"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

// TokenCounter estimates how many tokens a text costs. It is only used when
// a provider does not report usage.
type TokenCounter interface {
	CountTokens(text string) int
}

// SimpleTokenCounter approximates tokens from word count.
type SimpleTokenCounter struct{}

// NewSimpleTokenCounter creates a new simple token counter.
func NewSimpleTokenCounter() *SimpleTokenCounter {
	return &SimpleTokenCounter{}
}

// CountTokens provides a rough estimate of token count based on words and punctuation.
func (c *SimpleTokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})

	// Rough estimation: tokens are often ~0.75 of words for English
	return int(float64(len(words)) * 1.3)
}

// TiktokenCounter counts with a BPE encoding. The encoding is loaded on first
// use; when it cannot be loaded the counter falls back to SimpleTokenCounter.
type TiktokenCounter struct {
	encoding string
	logger   *slog.Logger

	once     sync.Once
	enc      *tiktoken.Tiktoken
	fallback *SimpleTokenCounter
}

// NewTiktokenCounter creates a counter for encoding ("" means cl100k_base).
func NewTiktokenCounter(encoding string, logger *slog.Logger) *TiktokenCounter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TiktokenCounter{
		encoding: encoding,
		logger:   logger,
		fallback: NewSimpleTokenCounter(),
	}
}

func (c *TiktokenCounter) init() {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err != nil {
			c.logger.Warn("tiktoken encoding unavailable, estimating from words",
				"encoding", c.encoding, "error", err)
			return
		}
		c.enc = enc
	})
}

// CountTokens implements TokenCounter.
func (c *TiktokenCounter) CountTokens(text string) int {
	c.init()
	if c.enc == nil {
		return c.fallback.CountTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// CountMessages estimates the prompt cost of messages, including the
// per-message framing overhead.
func CountMessages(counter TokenCounter, messages []types.Message) int {
	total := 0
	for _, msg := range messages {
		total += 4 + counter.CountTokens(msg.Content)
	}
	return total
}
