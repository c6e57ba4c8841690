package textutil

import (
	"math"
	"strings"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	fp := NewFingerprint("remote work policies")
	if got := CosineSimilarity(nil, fp); got != 0 {
		t.Fatalf("expected 0 for nil fingerprint, got %v", got)
	}
	if got := CosineSimilarity(fp, nil); got != 0 {
		t.Fatalf("expected 0 for nil fingerprint, got %v", got)
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	a := NewFingerprint("Skills-based hiring for frontline roles")
	b := NewFingerprint("skills based HIRING for frontline roles")
	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected similarity 1, got %v", got)
	}
}

func TestCosineSimilarityDifferent(t *testing.T) {
	a := NewFingerprint("payroll compliance automation")
	b := NewFingerprint("employee wellbeing programs")
	if got := CosineSimilarity(a, b); got != 0 {
		t.Fatalf("expected 0 for disjoint text, got %v", got)
	}
}

func TestNewFingerprintShortTokens(t *testing.T) {
	if fp := NewFingerprint("a an to of"); fp != nil {
		t.Fatalf("expected nil fingerprint for short tokens, got %d tokens", fp.TokenCount())
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("AI-driven HR: the 2026 Playbook!")
	want := []string{"driven", "2026", "playbook"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeFoldsAccents(t *testing.T) {
	a := NewFingerprint("Café culture at work")
	b := NewFingerprint("cafe culture at work")
	if got := CosineSimilarity(a, b); math.Abs(got-1) > 1e-9 {
		t.Fatalf("expected accent-insensitive match, got %v", got)
	}
}

func TestDedupeSimilar(t *testing.T) {
	items := []string{
		"1. The future of skills-based hiring",
		"2. The future of skills based hiring",
		"3. Pay transparency laws explained",
		"4. Onboarding remote employees",
	}
	history := []string{"Onboarding remote employees well"}
	got := DedupeSimilar(items, history, 0.8)
	if len(got) != 2 {
		t.Fatalf("expected 2 topics after dedupe, got %v", got)
	}
	if got[0] != items[0] || got[1] != items[2] {
		t.Fatalf("unexpected kept topics: %v", got)
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"The Future of Work: 2026 Edition": "the-future-of-work-2026-edition",
		"  Café culture & HR  ":             "cafe-culture-hr",
		"???":                               "untitled",
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Slug(strings.Repeat("word ", 40)); len(got) > maxSlugLen+1 || strings.HasSuffix(got, "-") {
		t.Errorf("expected bounded slug, got %q", got)
	}
}
