package textutil

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for token, count := range a.tokens {
		if other, ok := b.tokens[token]; ok {
			dot += count * other
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (a.norm * b.norm)
}

// DedupeSimilar drops entries whose fingerprint is at least threshold similar
// to an earlier kept entry or to any entry in history. Entries without tokens
// are kept.
func DedupeSimilar(items, history []string, threshold float64) []string {
	seen := make([]*Fingerprint, 0, len(items)+len(history))
	for _, h := range history {
		if fp := NewFingerprint(h); fp != nil {
			seen = append(seen, fp)
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		fp := NewFingerprint(item)
		duplicate := false
		for _, prev := range seen {
			if CosineSimilarity(fp, prev) >= threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		if fp != nil {
			seen = append(seen, fp)
		}
		out = append(out, item)
	}
	return out
}
