package usecase

import (
	"regexp"
	"strings"
)

// expandRule adds hint terms to the retrieval query when its pattern
// matches the question.
type expandRule struct {
	pattern *regexp.Regexp
	terms   string
}

var expandRules = []expandRule{
	{
		pattern: regexp.MustCompile(`(?i)\b(title|name of the)\b|what('s| is)? the (title|name) of`),
		terms:   "title document title paper title front page heading name of paper heading title page",
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(author|authors|who wrote|written by|byline)\b`),
		terms:   "author authors byline writer creator contributors affiliation",
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(abstract|summary|purpose|objective|aim)\b|what is this (document )?about`),
		terms:   "abstract summary overview main takeaways key points",
	},
	{
		pattern: regexp.MustCompile(`(?i)\bkeywords?\b`),
		terms:   "keywords key words index terms subject headings",
	},
	{
		pattern: regexp.MustCompile(`(?i)\b(references?|bibliography|citations)\b`),
		terms:   "references bibliography citations works cited DOI list of references",
	},
	{
		pattern: regexp.MustCompile(`(?i)\brequirements?\b`),
		terms:   "requirements functional requirements security requirements FR SR",
	},
}

const genericHintTerms = "summary key points details clauses title authors keywords references"

// ExpandQuery builds the retrieval query: the original question plus hint
// terms for recognized intents, or a small generic hint set when nothing
// matches. The original phrasing is always kept.
func ExpandQuery(question string) string {
	var additions []string
	for _, rule := range expandRules {
		if rule.pattern.MatchString(question) {
			additions = append(additions, rule.terms)
		}
	}
	if len(additions) == 0 {
		additions = append(additions, genericHintTerms)
	}
	return question + " " + strings.Join(additions, " ")
}
