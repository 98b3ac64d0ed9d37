package refiner

import (
	"fmt"
	"strings"

	"doclens/internal/domain"
	"doclens/internal/port"
)

// SentenceRefiner turns raw text segments into token-bounded, overlapping,
// deduplicated passages. Sentences are accumulated greedily until the token
// budget is hit; each new passage is seeded with the trailing sentences of
// the previous one to preserve continuity across boundaries.
type SentenceRefiner struct {
	maxTokens int
	overlap   int
	tokenizer port.Tokenizer
}

// NewSentenceRefiner creates a refiner with the given token budget per
// passage and sentence overlap between consecutive passages.
func NewSentenceRefiner(maxTokens, overlap int, tokenizer port.Tokenizer) *SentenceRefiner {
	if maxTokens <= 0 {
		maxTokens = 200
	}
	if overlap < 0 {
		overlap = 0
	}
	return &SentenceRefiner{
		maxTokens: maxTokens,
		overlap:   overlap,
		tokenizer: tokenizer,
	}
}

// Refine converts ordered segments into an ordered passage list. Identical
// input and parameters always yield an identical list; a passage whose exact
// text was already emitted for this call is silently dropped.
func (r *SentenceRefiner) Refine(segments []string) []domain.Passage {
	var passages []domain.Passage
	seen := make(map[string]struct{})
	order := 0

	for segIdx, segment := range segments {
		clean := normalizeWhitespace(segment)
		if clean == "" {
			continue
		}

		sentences := splitSentences(clean)

		seq := 0
		var buffer []string
		bufferTokens := 0

		emit := func(text string, tokens int) {
			text = strings.TrimSpace(text)
			if text == "" {
				return
			}
			if _, dup := seen[text]; dup {
				return
			}
			seen[text] = struct{}{}
			passages = append(passages, domain.Passage{
				ID:          fmt.Sprintf("chunk-%d-%d", segIdx, seq),
				SourceIndex: segIdx,
				Order:       order,
				Text:        text,
				TokenCount:  tokens,
			})
			seq++
			order++
		}

		for _, sentence := range sentences {
			sentenceTokens := r.tokenizer.CountTokens(sentence)

			// An over-budget sentence with nothing buffered stands alone,
			// without seeding overlap into the next passage.
			if len(buffer) == 0 && sentenceTokens > r.maxTokens {
				emit(sentence, sentenceTokens)
				continue
			}

			if len(buffer) > 0 && bufferTokens+sentenceTokens > r.maxTokens {
				emit(strings.Join(buffer, " "), bufferTokens)

				overlapText := r.trailingOverlap(buffer)
				if overlapText != "" {
					buffer = []string{overlapText, sentence}
				} else {
					buffer = []string{sentence}
				}
				bufferTokens = r.tokenizer.CountTokens(strings.Join(buffer, " "))
				continue
			}

			buffer = append(buffer, sentence)
			bufferTokens += sentenceTokens
		}

		if len(buffer) > 0 {
			emit(strings.Join(buffer, " "), bufferTokens)
		}
	}

	return passages
}

// trailingOverlap returns the last overlap buffer units joined as one blob.
func (r *SentenceRefiner) trailingOverlap(buffer []string) string {
	if r.overlap == 0 || len(buffer) == 0 {
		return ""
	}
	start := len(buffer) - r.overlap
	if start < 0 {
		start = 0
	}
	return strings.Join(buffer[start:], " ")
}

// normalizeWhitespace collapses all whitespace runs to single spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences splits normalized text on terminal punctuation boundaries.
// A trailing fragment without terminal punctuation is kept as a sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])

		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			// Boundary only when followed by whitespace or end of text,
			// so "3.14" and "e.g." stay intact.
			if i+1 >= len(runes) || runes[i+1] == ' ' {
				s := strings.TrimSpace(current.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
				if i+1 < len(runes) {
					i++ // skip the boundary space
				}
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
