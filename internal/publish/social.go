package publish

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	linkedInLimit = 300
	twitterLimit  = 280

	linkedInTags = "#HCM #HR #ThoughtLeadership"
	twitterTags  = "#HCM #HR"
)

// LinkedInSnippet joins the draft's non-heading lines up to 300 characters
// and appends the standard hashtags.
func LinkedInSnippet(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.WriteString(strings.TrimSpace(line))
		b.WriteByte(' ')
		if utf8.RuneCountInString(b.String()) > linkedInLimit {
			break
		}
	}
	return strings.TrimSpace(cutRunes(b.String(), linkedInLimit)) + "... " + linkedInTags
}

// TwitterSnippet renders "title: first paragraph... #HCM #HR" within 280
// characters.
func TwitterSnippet(text string) string {
	title, body := SplitTitle(text)
	first := ""
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) != "" && !strings.HasPrefix(line, "#") {
			first = strings.TrimSpace(line)
			break
		}
	}
	suffix := "... " + twitterTags
	budget := twitterLimit - utf8.RuneCountInString(title) - 2 - utf8.RuneCountInString(suffix)
	snippet := fmt.Sprintf("%s: %s%s", title, strings.TrimSpace(cutRunes(first, max(budget, 0))), suffix)
	return cutRunes(snippet, twitterLimit)
}

// SplitTitle separates a leading "# " heading from the rest of the draft.
// Without one the first non-empty line is the title and the body is the
// whole text.
func SplitTitle(text string) (string, string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	if strings.HasPrefix(first, "#") {
		return strings.TrimSpace(strings.TrimLeft(first, "# ")), strings.TrimSpace(rest)
	}
	return strings.TrimSpace(first), text
}

// SocialText renders the contents of the .social.txt file.
func SocialText(text string) string {
	return "LinkedIn:\n" + LinkedInSnippet(text) + "\n\nTwitter:\n" + TwitterSnippet(text) + "\n"
}

func cutRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
