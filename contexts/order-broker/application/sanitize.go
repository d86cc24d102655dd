package application

import (
	"strings"

	v1 "orderbridge/contracts/gen/events/v1"
)

// sanitize strips bytes outside printable ASCII 32-126 before a value is
// persisted or logged.
func sanitize(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= 32 && r <= 126 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncate caps a string at n runes rather than rejecting it.
func truncate(value string, n int) string {
	runes := []rune(value)
	if len(runes) <= n {
		return value
	}
	return string(runes[:n])
}

// capEnvelope applies the length caps to the two capped optional fields:
// symbol <= 20, comment <= 500, truncating rather than rejecting. Other
// optional fields are passed through uncapped.
func capEnvelope(e v1.TradeEventEnvelope) v1.TradeEventEnvelope {
	e.Symbol = truncate(e.Symbol, maxSymbolLen)
	e.Comment = truncate(e.Comment, maxCommentLen)
	return e
}

// sanitizeFields strips control characters from every payload value.
func sanitizeFields(fields map[string]string) map[string]string {
	cleaned := make(map[string]string, len(fields))
	for k, v := range fields {
		cleaned[k] = sanitize(v)
	}
	return cleaned
}
