package response

import (
	"strings"
	"unicode/utf8"

	"emotion-diary-be/pkg/emotion"
)

// MinReplyChars is the shortest usable model reply, in code points after
// trimming. Anything at or below it is replaced by a fallback.
const MinReplyChars = 5

// Usable reports whether a raw model reply is long enough to keep.
func Usable(reply string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(reply)) > MinReplyChars
}

// PostProcess shapes a model reply for display: replies over the length cap
// keep their first two sentences, or are cut with an ellipsis when they are a
// single sentence, and a reply that asks nothing back gets the label's
// follow-up phrase appended.
func (t *Table) PostProcess(reply string, label emotion.Label) string {
	reply = strings.TrimSpace(reply)

	if utf8.RuneCountInString(reply) > t.MaxChars {
		sentences := strings.Split(reply, ". ")
		if len(sentences) > 1 {
			reply = sentences[0] + ". " + terminate(sentences[1])
		}
		if utf8.RuneCountInString(reply) > t.MaxChars {
			reply = cutRunes(reply, t.MaxChars-3) + "..."
		}
	}

	if !asksQuestion(reply) {
		reply += t.FollowUp(label)
	}
	return reply
}

func asksQuestion(s string) bool {
	return strings.Contains(s, "?") || strings.Contains(s, "까요")
}

func terminate(s string) string {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, "!") {
		return s
	}
	return s + "."
}

func cutRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
