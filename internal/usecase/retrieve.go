package usecase

import (
	"regexp"
	"sort"
	"strings"

	"doclens/internal/domain"
	"doclens/internal/port"
)

// LowConfidenceThreshold is the similarity score below which the primary
// retrieval pass is considered weak enough to trigger the backoff pass and,
// downstream, low-confidence summarization.
const LowConfidenceThreshold = 0.55

// mergeKeyLen is the text prefix length used to deduplicate passages when
// merging the primary and backoff result lists.
const mergeKeyLen = 200

// maxLexicalTokens caps the query token set for lexical fallback scoring.
const maxLexicalTokens = 12

// ScoreRule is one heuristic ranking adjustment: when Match holds for a
// (query, passage) pair, Delta is added to the passage's score. Rules are
// soft nudges applied in order before the final ranking, never filters.
type ScoreRule struct {
	Name  string
	Match func(query string, passage passageInfo) bool
	Delta float64
}

type passageInfo struct {
	Text  string
	Index int
	Total int
}

var (
	frontMatterQueryRe = regexp.MustCompile(`(?i)\b(title|author|authors|who wrote|written by|byline|front page|name of the)\b`)
	aboutQueryRe       = regexp.MustCompile(`(?i)\b(about|abstract|summary|summarize|purpose|objective|overview)\b`)
	abstractMarkerRe   = regexp.MustCompile(`(?i)\b(abstract|summary|overview|introduction)\b`)
)

var boilerplateMarkers = []string{
	"all rights reserved",
	"copyright ©",
	"terms of service",
	"privacy policy",
	"this page intentionally left blank",
}

// defaultScoreRules returns the ordered heuristic adjustments: a fixed
// penalty for boilerplate passages, a boost for passages near the document
// start on front-matter questions, and a boost for abstract-like passages
// on "what is this about" questions.
func defaultScoreRules() []ScoreRule {
	return []ScoreRule{
		{
			Name: "boilerplate-penalty",
			Match: func(query string, p passageInfo) bool {
				lower := strings.ToLower(p.Text)
				for _, marker := range boilerplateMarkers {
					if strings.Contains(lower, marker) {
						return true
					}
				}
				return false
			},
			Delta: -0.05,
		},
		{
			Name: "front-matter-boost",
			Match: func(query string, p passageInfo) bool {
				if !frontMatterQueryRe.MatchString(query) {
					return false
				}
				window := p.Total / 20
				if window < 3 {
					window = 3
				}
				return p.Index < window
			},
			Delta: 0.08,
		},
		{
			Name: "abstract-boost",
			Match: func(query string, p passageInfo) bool {
				return aboutQueryRe.MatchString(query) && abstractMarkerRe.MatchString(p.Text)
			},
			Delta: 0.06,
		},
	}
}

// RetrievalEngine scores and ranks a document's passages against a query.
// The primary pass embeds the retrieval query and scores by normalized dot
// product; a backoff pass with the plain query runs when the primary pass
// comes back weak; lexical substring scoring covers every case where vector
// scoring cannot run at all.
type RetrievalEngine struct {
	repo      port.Repository
	embedder  port.Embedder
	tokenizer port.Tokenizer
	rules     []ScoreRule
	threshold float64
}

// NewRetrievalEngine builds an engine with the given low-confidence
// threshold; zero or negative minScore selects the default.
func NewRetrievalEngine(repo port.Repository, embedder port.Embedder, tokenizer port.Tokenizer, minScore float64) *RetrievalEngine {
	if minScore <= 0 {
		minScore = LowConfidenceThreshold
	}
	return &RetrievalEngine{
		repo:      repo,
		embedder:  embedder,
		tokenizer: tokenizer,
		rules:     defaultScoreRules(),
		threshold: minScore,
	}
}

// Retrieve returns the top-k passages for the query. retrievalQuery is the
// same question, optionally expanded with hint terms; when it differs from
// the plain query and the primary pass is weak, a backoff pass with the
// plain query is merged in.
func (e *RetrievalEngine) Retrieve(docID, query, retrievalQuery string, topK int) (domain.RetrievalResult, error) {
	if docID == "" {
		return domain.RetrievalResult{}, &domain.ValidationError{Field: "document id", Msg: "must not be empty"}
	}
	if strings.TrimSpace(query) == "" {
		return domain.RetrievalResult{}, &domain.ValidationError{Field: "query", Msg: "must not be empty"}
	}
	if retrievalQuery == "" {
		retrievalQuery = query
	}
	if topK < 1 {
		topK = 1
	}

	records, err := e.repo.ReadVectors(docID)
	if err != nil {
		return domain.RetrievalResult{}, err
	}

	result := domain.RetrievalResult{
		Diagnostics: domain.Diagnostics{},
	}
	if len(records) == 0 {
		return result, nil
	}
	result.Diagnostics.IndexDimension = len(records[0].Embedding)

	// Primary pass with the retrieval query.
	passages, diag, ok := e.vectorPass(records, query, retrievalQuery, topK)
	result.Diagnostics.QueryDimension = diag.QueryDimension
	result.Diagnostics.DimensionMismatch = diag.DimensionMismatch

	if ok {
		// Backoff pass with the plain query when the primary came back
		// empty or weak.
		topScore := 0.0
		if len(passages) > 0 {
			topScore = passages[0].Score
		}
		if (len(passages) == 0 || topScore < e.threshold) && retrievalQuery != query {
			if backoff, _, backoffOK := e.vectorPass(records, query, query, topK); backoffOK {
				passages = mergeRanked(passages, backoff, topK)
			}
		}
	} else {
		// Vector scoring could not run at all: lexical fallback for every
		// record.
		passages = e.lexicalPass(records, query, topK)
		result.Diagnostics.Lexical = true
	}

	result.Passages = passages
	if len(passages) > 0 {
		result.Diagnostics.TopScore = passages[0].Score
	}
	return result, nil
}

// vectorPass embeds embedQuery and scores every record by dot product.
// ok is false when embedding failed or dimensionality does not match the
// index, in which case no vector scoring was performed.
func (e *RetrievalEngine) vectorPass(records []domain.VectorRecord, plainQuery, embedQuery string, topK int) ([]domain.ScoredPassage, domain.Diagnostics, bool) {
	var diag domain.Diagnostics

	vectors, err := e.embedder.Embed([]string{embedQuery})
	if err != nil || len(vectors) == 0 {
		return nil, diag, false
	}
	queryVec := normalizeVector(vectors[0])
	diag.QueryDimension = len(queryVec)

	indexDim := len(records[0].Embedding)
	if len(queryVec) != indexDim {
		diag.DimensionMismatch = true
		return nil, diag, false
	}

	scored := make([]domain.ScoredPassage, 0, len(records))
	for i, rec := range records {
		score := dotProduct(queryVec, rec.Embedding)
		score += e.ruleDelta(plainQuery, passageInfo{Text: rec.Text, Index: i, Total: len(records)})
		scored = append(scored, domain.ScoredPassage{Text: rec.Text, Score: score})
	}

	return rankTop(scored, topK), diag, true
}

// lexicalPass scores each record by how many query tokens it contains.
// Tokens shorter than 4 characters are dropped and the set is capped.
func (e *RetrievalEngine) lexicalPass(records []domain.VectorRecord, query string, topK int) []domain.ScoredPassage {
	tokens := lexicalTokens(e.tokenizer, query)
	if len(tokens) == 0 {
		return nil
	}

	scored := make([]domain.ScoredPassage, 0, len(records))
	for i, rec := range records {
		lower := strings.ToLower(rec.Text)
		count := 0
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		score := float64(count)
		score += e.ruleDelta(query, passageInfo{Text: rec.Text, Index: i, Total: len(records)})
		scored = append(scored, domain.ScoredPassage{Text: rec.Text, Score: score})
	}

	return rankTop(scored, topK)
}

func (e *RetrievalEngine) ruleDelta(query string, p passageInfo) float64 {
	var delta float64
	for _, rule := range e.rules {
		if rule.Match(query, p) {
			delta += rule.Delta
		}
	}
	return delta
}

// lexicalTokens extracts the deduplicated, length-filtered, capped token
// set used for substring scoring.
func lexicalTokens(tokenizer port.Tokenizer, query string) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, tok := range tokenizer.Tokenize(query) {
		if len(tok) < 4 {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
		if len(tokens) == maxLexicalTokens {
			break
		}
	}
	return tokens
}

// rankTop stable-sorts by score descending (ties keep document order) and
// truncates to k.
func rankTop(scored []domain.ScoredPassage, k int) []domain.ScoredPassage {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// mergeRanked merges two ranked lists keyed by a fixed-length text prefix,
// keeping the higher score per duplicate, then re-ranks and re-truncates.
func mergeRanked(primary, backoff []domain.ScoredPassage, k int) []domain.ScoredPassage {
	type slot struct {
		index   int
		passage domain.ScoredPassage
	}
	merged := make(map[string]slot)
	order := 0

	for _, list := range [][]domain.ScoredPassage{primary, backoff} {
		for _, p := range list {
			key := p.Text
			if len(key) > mergeKeyLen {
				key = key[:mergeKeyLen]
			}
			existing, ok := merged[key]
			if !ok {
				merged[key] = slot{index: order, passage: p}
				order++
			} else if p.Score > existing.passage.Score {
				existing.passage.Score = p.Score
				merged[key] = existing
			}
		}
	}

	slots := make([]slot, 0, len(merged))
	for _, s := range merged {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].index < slots[j].index })

	out := make([]domain.ScoredPassage, len(slots))
	for i, s := range slots {
		out[i] = s.passage
	}
	return rankTop(out, k)
}

// dotProduct of two equal-length vectors. With both sides L2-normalized it
// equals cosine similarity, bounded in [-1, 1].
func dotProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
