package publish

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestLinkedInSnippet(t *testing.T) {
	got := LinkedInSnippet("# Title\n\nThis is the content.\n## Section\nMore text.")
	want := "This is the content. More text.... #HCM #HR #ThoughtLeadership"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	long := "# T\n\n" + strings.Repeat("word ", 200)
	snippet := LinkedInSnippet(long)
	body := strings.TrimSuffix(snippet, "... #HCM #HR #ThoughtLeadership")
	if utf8.RuneCountInString(body) > 300 {
		t.Fatalf("linkedin body exceeds 300 chars: %d", utf8.RuneCountInString(body))
	}
}

func TestTwitterSnippet(t *testing.T) {
	got := TwitterSnippet("# Title\n\nThis is the content.")
	if got != "Title: This is the content.... #HCM #HR" {
		t.Fatalf("unexpected snippet %q", got)
	}

	long := "# " + strings.Repeat("Long title ", 5) + "\n\n" + strings.Repeat("Sentence text. ", 40)
	snippet := TwitterSnippet(long)
	if n := utf8.RuneCountInString(snippet); n > 280 {
		t.Fatalf("tweet too long: %d", n)
	}
	if !strings.HasSuffix(snippet, "... #HCM #HR") {
		t.Fatalf("expected hashtags kept, got %q", snippet)
	}
}

func TestSplitTitle(t *testing.T) {
	title, body := SplitTitle("# Sample HCM Post\n\nThis is a test post.")
	if title != "Sample HCM Post" || body != "This is a test post." {
		t.Fatalf("got %q / %q", title, body)
	}
	title, body = SplitTitle("Plain first line\nSecond line")
	if title != "Plain first line" || body != "Plain first line\nSecond line" {
		t.Fatalf("got %q / %q", title, body)
	}
}

func TestSocialPath(t *testing.T) {
	if got := SocialPath("/approved/post.md"); got != "/approved/post.social.txt" {
		t.Fatalf("got %q", got)
	}
}
