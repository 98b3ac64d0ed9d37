package usecase

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"doclens/internal/adapter/cache"
	"doclens/internal/domain"
	"doclens/internal/port"
)

// FallbackAnswer is the canonical user-facing reply when the document does
// not contain the requested information. Every hedging or failed generation
// collapses to this exact string (or to a synthesized summary when one
// exists).
const FallbackAnswer = "I couldn't find that information in the uploaded document. Could you try rephrasing your question or check a different document?"

// snippetLen bounds each context passage so total prompt size stays capped.
const snippetLen = 1200

// summarySampleCount is how many passages the low-confidence summarizer
// samples, spread across the document.
const summarySampleCount = 4

// summarizeLeadCount is how many leading passages feed the document
// summary operation.
const summarizeLeadCount = 30

var hedgingPhrases = []string{
	"i don't know",
	"i do not know",
	"i'm not sure",
	"sorry, i don't know",
	"i cannot find",
}

var (
	authorIntentRe = regexp.MustCompile(`(?i)\b(author|who wrote|written by|who is the author|author name|writer)\b`)
	titleIntentRe  = regexp.MustCompile(`(?i)\b(title|what is the title|book title)\b`)
	tocIntentRe    = regexp.MustCompile(`(?i)\b(chapter|chapters|table of contents|contents|list chapters)\b`)
)

// Answer is the synthesizer's result: the final answer text plus the
// context passages it was grounded on.
type Answer struct {
	Text        string                 `json:"answer"`
	Sources     []domain.ScoredPassage `json:"context,omitempty"`
	Diagnostics domain.Diagnostics     `json:"diagnostics"`
}

// AnswerSynthesizer assembles grounded context for a question, invokes the
// generative provider, and normalizes its output to one user-facing
// contract.
type AnswerSynthesizer struct {
	repo      port.Repository
	retrieval *RetrievalEngine
	generator port.Generator
	cache     *cache.QueryCache
	topK      int
	threshold float64
}

func NewAnswerSynthesizer(repo port.Repository, retrieval *RetrievalEngine, generator port.Generator, qc *cache.QueryCache, topK int) *AnswerSynthesizer {
	if topK < 1 {
		topK = 8
	}
	return &AnswerSynthesizer{
		repo:      repo,
		retrieval: retrieval,
		generator: generator,
		cache:     qc,
		topK:      topK,
		threshold: retrieval.threshold,
	}
}

// Ask answers a question from the document's content only. summaryHint, if
// non-empty, is prepended to the assembled context.
func (s *AnswerSynthesizer) Ask(docID, question, summaryHint string) (Answer, error) {
	if docID == "" {
		return Answer{}, &domain.ValidationError{Field: "document id", Msg: "must not be empty"}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, &domain.ValidationError{Field: "question", Msg: "must not be empty"}
	}

	meta, _ := s.repo.GetMetadata(docID)

	// Fast path: document-level questions answered straight from metadata,
	// with no retrieval or generation call.
	if answer, ok := s.metadataFastPath(question, meta); ok {
		return answer, nil
	}

	var passages []domain.ScoredPassage
	var diag domain.Diagnostics
	cached := false
	if s.cache != nil {
		if hit, ok := s.cache.Get(docID, question, s.topK); ok {
			passages = hit
			cached = true
			if len(hit) > 0 {
				diag.TopScore = hit[0].Score
			}
		}
	}
	if !cached {
		retrievalQuery := ExpandQuery(question)
		result, err := s.retrieval.Retrieve(docID, question, retrievalQuery, s.topK)
		switch {
		case err == nil:
			passages = result.Passages
			diag = result.Diagnostics
			if s.cache != nil && len(passages) > 0 {
				s.cache.Put(docID, question, s.topK, passages)
			}
		case errors.Is(err, domain.ErrNotFound):
			// No index yet; fall through to metadata-only context.
		default:
			return Answer{}, err
		}
	}

	// Low-confidence summarization: when retrieval came back weak,
	// synthesize one short summary from passages spread across the
	// document and keep it as a possible answer substitute.
	var summary string
	if len(passages) > 0 && diag.TopScore < s.threshold {
		summary = s.lowConfidenceSummary(docID)
	}

	context := s.assembleContext(summaryHint, summary, passages, meta)

	generated, err := s.generate(question, context)
	if err != nil {
		// The caller never sees a raw "no answer" failure.
		generated = ""
	}

	final := normalizeAnswer(generated, summary)
	return Answer{Text: final, Sources: passages, Diagnostics: diag}, nil
}

// metadataFastPath serves title/author/TOC intents directly from metadata.
func (s *AnswerSynthesizer) metadataFastPath(question string, meta domain.Metadata) (Answer, bool) {
	if meta.Author != "" && authorIntentRe.MatchString(question) {
		return Answer{
			Text:    meta.Author,
			Sources: []domain.ScoredPassage{{Text: "Author: " + meta.Author, Score: 1}},
		}, true
	}
	if meta.Title != "" && titleIntentRe.MatchString(question) {
		return Answer{
			Text:    meta.Title,
			Sources: []domain.ScoredPassage{{Text: "Title: " + meta.Title, Score: 1}},
		}, true
	}
	if len(meta.TOC) > 0 && tocIntentRe.MatchString(question) {
		tocText := strings.Join(meta.TOC, "\n")
		return Answer{
			Text:    "Chapters / TOC (extracted):\n" + tocText,
			Sources: []domain.ScoredPassage{{Text: tocText, Score: 1}},
		}, true
	}
	return Answer{}, false
}

// assembleContext concatenates, in priority order: the supplied summary
// hint, the synthesized summary, and the truncated top passages. When no
// passage was retrievable, metadata fields stand in.
func (s *AnswerSynthesizer) assembleContext(summaryHint, summary string, passages []domain.ScoredPassage, meta domain.Metadata) string {
	var b strings.Builder

	if summaryHint != "" {
		b.WriteString("Document Summary:\n")
		b.WriteString(safeSnippet(summaryHint, snippetLen))
		b.WriteString("\n\n")
	}
	if summary != "" {
		b.WriteString("Synthesized Summary:\n")
		b.WriteString(safeSnippet(summary, snippetLen))
		b.WriteString("\n\n")
	}

	for _, p := range passages {
		b.WriteString(safeSnippet(p.Text, snippetLen))
		b.WriteString("\n\n")
	}

	if strings.TrimSpace(b.String()) == "" && !meta.Empty() {
		var parts []string
		if meta.Title != "" {
			parts = append(parts, "Title: "+meta.Title)
		}
		if meta.Author != "" {
			parts = append(parts, "Author: "+meta.Author)
		}
		if len(meta.TOC) > 0 {
			toc := meta.TOC
			if len(toc) > 50 {
				toc = toc[:50]
			}
			parts = append(parts, "TOC:\n"+strings.Join(toc, "\n"))
		}
		return "Document metadata:\n" + strings.Join(parts, "\n") + "\n\n"
	}

	return b.String()
}

// generate issues the grounded generation call.
func (s *AnswerSynthesizer) generate(question, context string) (string, error) {
	var systemPrompt, userPrompt string
	if strings.TrimSpace(context) != "" {
		systemPrompt = fmt.Sprintf(
			"You are a helpful assistant. Answer the user's question using ONLY the provided context. "+
				"If the answer is not contained in the context, respond politely: %q. "+
				"Keep the response concise and factual.", FallbackAnswer)
		userPrompt = fmt.Sprintf("Context:\n%s\nQuestion: %s", context, question)
	} else {
		systemPrompt = fmt.Sprintf(
			"You are a helpful assistant. There is no document context available. "+
				"Answer the user's question as best as you can, and if you are unsure, say: %q", FallbackAnswer)
		userPrompt = "Question: " + question
	}

	answer, err := s.generator.Generate(systemPrompt, userPrompt)
	if err != nil {
		return "", &domain.ProviderError{Provider: "generation", Err: err}
	}
	return answer, nil
}

// lowConfidenceSummary samples passages spread across the document (first,
// one third in, two thirds in, last) and issues one generation call. The
// result is memoized per document.
func (s *AnswerSynthesizer) lowConfidenceSummary(docID string) string {
	if s.cache != nil {
		if cached, ok := s.cache.Summary(docID); ok {
			return cached
		}
	}

	records, err := s.repo.ReadVectors(docID)
	if err != nil || len(records) == 0 {
		return ""
	}

	var parts []string
	seen := make(map[int]struct{})
	for i := 0; i < summarySampleCount; i++ {
		idx := i * (len(records) - 1) / (summarySampleCount - 1)
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		parts = append(parts, safeSnippet(records[idx].Text, 1000))
	}

	systemPrompt := "You are a concise summarizer. Use only the supplied context to produce a short, " +
		"factual summary of the document. Do not invent facts. If the context is insufficient, " +
		"say you cannot summarize fully."
	userPrompt := "Context:\n" + strings.Join(parts, "\n\n") + "\n\nPlease provide a short summary of the document."

	summary, err := s.generator.Generate(systemPrompt, userPrompt)
	if err != nil {
		return ""
	}

	if s.cache != nil {
		s.cache.PutSummary(docID, summary)
	}
	return summary
}

// Summarize produces a five-bullet summary of the document from its leading
// passages, memoized per document.
func (s *AnswerSynthesizer) Summarize(docID string) (string, error) {
	if docID == "" {
		return "", &domain.ValidationError{Field: "document id", Msg: "must not be empty"}
	}

	if s.cache != nil {
		if cached, ok := s.cache.Summary(docID); ok {
			return cached, nil
		}
	}

	records, err := s.repo.ReadVectors(docID)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", fmt.Errorf("document %s: %w", docID, domain.ErrNotFound)
	}

	n := summarizeLeadCount
	if n > len(records) {
		n = len(records)
	}
	parts := make([]string, 0, n)
	for _, rec := range records[:n] {
		parts = append(parts, safeSnippet(rec.Text, 1000))
	}

	systemPrompt := "You are a concise summarizer. Use only the supplied context to produce a short, " +
		"factual summary of the document. Provide 5 clear bullet points, each 1-2 short sentences. " +
		"Do not invent facts. If the context is insufficient, say you cannot summarize fully."
	userPrompt := "Context:\n" + strings.Join(parts, "\n\n") + "\n\nPlease provide a 5-bullet concise summary of the document."

	summary, err := s.generator.Generate(systemPrompt, userPrompt)
	if err != nil {
		return "", &domain.ProviderError{Provider: "generation", Err: err}
	}

	if s.cache != nil {
		s.cache.PutSummary(docID, summary)
	}
	return summary, nil
}

// normalizeAnswer collapses hedging model output into the one user-facing
// contract: the synthesized summary when one exists, else the canonical
// fallback.
func normalizeAnswer(generated, summary string) string {
	trimmed := strings.TrimSpace(generated)
	if trimmed == "" {
		if summary != "" {
			return summary
		}
		return FallbackAnswer
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range hedgingPhrases {
		if strings.Contains(lower, phrase) {
			if summary != "" {
				return summary
			}
			return FallbackAnswer
		}
	}
	return trimmed
}

// safeSnippet whitespace-normalizes text and truncates it to at most n
// bytes, cutting on a rune boundary so the snippet stays valid UTF-8.
func safeSnippet(text string, n int) string {
	s := strings.Join(strings.Fields(text), " ")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
