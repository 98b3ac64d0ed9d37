package analyzer

import "testing"

func TestTokenize(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("The Quick, brown fox. Jumps!")
	want := []string{"the", "quick", "brown", "fox", "jumps"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], tokens[i])
		}
	}
}

func TestCountTokensEmpty(t *testing.T) {
	tok := NewTokenizer()
	if n := tok.CountTokens(""); n != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", n)
	}
	if n := tok.CountTokens("   \n\t"); n != 0 {
		t.Errorf("expected 0 tokens for whitespace, got %d", n)
	}
}

func TestCountTokensDeterministic(t *testing.T) {
	tok := NewTokenizer()
	text := "Sentence boundaries are found on terminal punctuation."
	a := tok.CountTokens(text)
	b := tok.CountTokens(text)
	if a != b {
		t.Errorf("token count not deterministic: %d vs %d", a, b)
	}
	if a == 0 {
		t.Error("expected non-zero token count")
	}
}
