package emotion

import (
	"fmt"
	"strings"
)

// Label is one of the six canonical emotion categories.
type Label string

const (
	Joy      Label = "기쁨"
	Sadness  Label = "슬픔"
	Anger    Label = "분노"
	Anxiety  Label = "불안"
	Surprise Label = "당황"
	Hurt     Label = "상처"
)

// ArtifactPrefix is the key prefix used by persisted centroid tables ("emotion_기쁨").
const ArtifactPrefix = "emotion_"

// canonical order drives every deterministic tie-break in the system.
var canonical = [...]Label{Joy, Sadness, Anger, Anxiety, Surprise, Hurt}

var aliases = map[string]Label{
	"joy":      Joy,
	"sadness":  Sadness,
	"anger":    Anger,
	"anxiety":  Anxiety,
	"surprise": Surprise,
	"hurt":     Hurt,
}

var descriptions = map[Label]string{
	Joy:      "긍정적이고 즐거운 감정",
	Sadness:  "우울하고 침울한 감정",
	Anger:    "화나고 짜증나는 감정",
	Anxiety:  "걱정되고 불안한 감정",
	Surprise: "당황하고 혼란스러운 감정",
	Hurt:     "마음이 아프고 상처받은 감정",
}

// Count is the number of canonical labels.
const Count = len(canonical)

// All returns the labels in canonical order. The slice is a copy.
func All() []Label {
	out := make([]Label, Count)
	copy(out, canonical[:])
	return out
}

// Rank returns the canonical position of l, or -1 when l is not canonical.
func Rank(l Label) int {
	for i, c := range canonical {
		if c == l {
			return i
		}
	}
	return -1
}

func (l Label) Valid() bool {
	return Rank(l) >= 0
}

func (l Label) String() string {
	return string(l)
}

// Description returns the short Korean description shown by the emotion list endpoint.
func (l Label) Description() string {
	return descriptions[l]
}

// Parse accepts the canonical value, the English alias, or the artifact key
// form with the "emotion_" prefix.
func Parse(s string) (Label, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimPrefix(v, ArtifactPrefix)
	if l := Label(v); l.Valid() {
		return l, nil
	}
	if l, ok := aliases[strings.ToLower(v)]; ok {
		return l, nil
	}
	return "", fmt.Errorf("unknown emotion label %q", s)
}

// Less orders labels canonically.
func Less(a, b Label) bool {
	return Rank(a) < Rank(b)
}
