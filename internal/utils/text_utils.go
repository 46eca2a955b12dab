package utils

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor prepares untrusted message text for a terminal
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText cuts text to at most maxSize bytes on a rune boundary and
// appends a marker with the number of bytes left out. maxSize <= 0 disables
// truncation.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	tp.logger.Debug("Preview truncated",
		zap.Int("original_size", len(text)),
		zap.Int("preview_size", cut))

	return fmt.Sprintf("%s\n[... %d more bytes ...]", text[:cut], len(text)-cut)
}

// SanitizeText drops invalid UTF-8 and control characters other than
// newline and tab, so escape sequences in a message cannot reach the
// terminal. CRLF line endings become LF.
func (tp *TextProcessor) SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(text))
	dropped := 0
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				dropped++
				continue
			}
		}
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			dropped++
			continue
		}
		b.WriteRune(r)
	}

	if dropped > 0 {
		tp.logger.Debug("Preview sanitized", zap.Int("dropped", dropped))
	}
	return b.String()
}

// ProcessText sanitizes text and then truncates it for display
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateText(tp.SanitizeText(text), maxSize)
}
