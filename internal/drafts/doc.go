// Package drafts models a submitted blog draft: the file it came from, its raw
// text, and whether that text is markdown or plain prose.
//
// Markdown is parsed with goldmark so the approval pipeline can derive a title
// and a speech-friendly rendering without markup for text-to-speech.
package drafts
