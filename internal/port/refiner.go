package port

import "doclens/internal/domain"

// Refiner converts ordered raw text segments into bounded, deduplicated
// passages.
type Refiner interface {
	Refine(segments []string) []domain.Passage
}

// Tokenizer splits text into words and estimates token counts.
type Tokenizer interface {
	Tokenize(text string) []string

	CountTokens(text string) int
}
