package response

import (
	"math/rand"
	"strings"
	"sync"

	"emotion-diary-be/pkg/emotion"
)

// Selector picks an index in [0, n). Implementations must be safe for
// concurrent use.
type Selector interface {
	Pick(n int) int
}

type seededSelector struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededSelector returns a pseudo-random selector. The same seed yields
// the same sequence of picks.
func NewSeededSelector(seed int64) Selector {
	return &seededSelector{rnd: rand.New(rand.NewSource(seed))}
}

func (s *seededSelector) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Intn(n)
}

// FixedSelector always picks the same position, wrapped to n.
type FixedSelector int

func (f FixedSelector) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	i := int(f) % n
	if i < 0 {
		i += n
	}
	return i
}

// Fallback builds template replies that need no external collaborator.
type Fallback struct {
	table    *Table
	selector Selector
}

func NewFallback(table *Table, selector Selector) *Fallback {
	if selector == nil {
		selector = FixedSelector(0)
	}
	return &Fallback{table: table, selector: selector}
}

// Respond picks a template for label and personalises it with the first
// keyword found in userText. Templates needing a keyword are only eligible
// when one is found.
func (f *Fallback) Respond(userText string, label emotion.Label) string {
	keywords := f.table.ExtractKeywords(userText, 2)

	all := f.table.templatesFor(label)
	candidates := make([]string, 0, len(all))
	for _, tpl := range all {
		if len(keywords) == 0 && strings.Contains(tpl, keywordPlaceholder) {
			continue
		}
		candidates = append(candidates, tpl)
	}
	if len(candidates) == 0 {
		candidates = f.table.Default
	}

	tpl := candidates[f.selector.Pick(len(candidates))]
	if len(keywords) > 0 {
		tpl = strings.ReplaceAll(tpl, keywordPlaceholder, keywords[0])
	}
	return tpl
}
