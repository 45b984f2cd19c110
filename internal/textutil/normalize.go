package textutil

import "strings"

var quoteDashReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", "\"", "”", "\"",
	"–", "-", "—", "-",
	"…", "...",
)

// NormalizeToken lowercases a word, trims the surrounding characters
// .,!?;: and then maps curly quotes to straight, en/em dashes to hyphen,
// and the ellipsis character to three dots. Quotes are not trimmed. Used
// to make script-side and ASR-side tokens comparable for forced alignment.
func NormalizeToken(token string) string {
	token = strings.ToLower(token)
	token = strings.Trim(token, ".,!?;:")
	return quoteDashReplacer.Replace(token)
}
