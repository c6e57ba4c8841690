// Package textutil provides text helpers shared by the blog pipeline: token
// fingerprints for near-duplicate topic detection and filename-safe slugs.
//
// Fingerprints are term frequency vectors over accent-folded, lowercased words
// of at least 3 runes with common headline stopwords removed.
package textutil
