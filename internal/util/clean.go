package util

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var charReplacer = strings.NewReplacer(
	"\u2018", "'", "\u2019", "'", "\u201C", "\"", "\u201D", "\"",
	"\u2013", "-", "\u2014", "--", "\u2026", "...", "\u00a0", " ",
	"\u0096", "-", "\u0097", "--", "\u0091", "'", "\u0092", "'",
	"\u0093", "\"", "\u0094", "\"", "\u200b", "",
)

// CleanText normalises typographic punctuation, drops invalid UTF-8 and collapses runs of
// whitespace into single spaces.
func CleanText(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = charReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// StripHTML returns the visible text of an HTML fragment, skipping script and style
// elements, then cleans it with CleanText. Input that is not HTML passes through cleaned.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return CleanText(s)
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return CleanText(b.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			case "br", "p", "div", "li":
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if n := string(name); (n == "script" || n == "style") && skip > 0 {
				skip--
			}
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

// Truncate shortens s to at most n runes, appending "..." when it cuts.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}
