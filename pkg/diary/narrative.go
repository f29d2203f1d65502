package diary

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"emotion-diary-be/pkg/emotion"

	"gopkg.in/yaml.v3"
)

//go:embed narrative.yaml
var defaultNarrative []byte

// TodoPlan is the four-slot follow-up plan of a diary report.
type TodoPlan struct {
	Today    string `yaml:"today" json:"today"`
	Tomorrow string `yaml:"tomorrow" json:"tomorrow"`
	DayAfter string `yaml:"day_after" json:"day_after"`
	D3       string `yaml:"d3" json:"d3"`
}

func (p TodoPlan) complete() bool {
	return p.Today != "" && p.Tomorrow != "" && p.DayAfter != "" && p.D3 != ""
}

// Entry is the narrative attached to one dominant emotion.
type Entry struct {
	Cause  string   `yaml:"cause"`
	Advice string   `yaml:"advice"`
	Todo   TodoPlan `yaml:"todo"`
}

// SummaryTemplates drive the summary sentence. Placeholders: {dominant},
// {first}, {last}.
type SummaryTemplates struct {
	Opening  string `yaml:"opening"`
	First    string `yaml:"first"`
	Last     string `yaml:"last"`
	Single   string `yaml:"single"`
	Ellipsis string `yaml:"ellipsis"`
	MaxChars int    `yaml:"max_chars"`
}

// ContextRule maps keywords found in the user's utterances to a reason.
type ContextRule struct {
	Keywords []string `yaml:"keywords"`
	Reason   string   `yaml:"reason"`
}

type ContextTemplates struct {
	Template      string        `yaml:"template"`
	Rules         []ContextRule `yaml:"rules"`
	DefaultReason string        `yaml:"default_reason"`
}

// Table is the static narrative data consulted by the Aggregator.
type Table struct {
	Summary SummaryTemplates `yaml:"summary"`
	Context ContextTemplates `yaml:"context"`
	Entries map[string]Entry `yaml:"entries"`
	Default Entry            `yaml:"default"`

	byLabel map[emotion.Label]Entry
}

// DefaultTable returns the built-in Korean narrative table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultNarrative)
}

// LoadTable reads a narrative table from a YAML file. An empty path yields
// the built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read narrative table: %w", err)
	}
	return ParseTable(raw)
}

// ParseTable decodes and validates a narrative table.
func ParseTable(raw []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode narrative table: %w", err)
	}

	if t.Summary.Opening == "" || t.Summary.First == "" {
		return nil, fmt.Errorf("narrative table: summary templates are required")
	}
	if t.Summary.MaxChars <= 0 {
		t.Summary.MaxChars = DefaultSnippetChars
	}
	if t.Default.Cause == "" || t.Default.Advice == "" || !t.Default.Todo.complete() {
		return nil, fmt.Errorf("narrative table: default entry is incomplete")
	}

	t.byLabel = make(map[emotion.Label]Entry, len(t.Entries))
	for key, e := range t.Entries {
		label, err := emotion.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("narrative table: %w", err)
		}
		if e.Cause == "" || e.Advice == "" || !e.Todo.complete() {
			return nil, fmt.Errorf("narrative table: entry %q is incomplete", key)
		}
		t.byLabel[label] = e
	}
	return &t, nil
}

// Lookup returns the entry for l, or the default entry.
func (t *Table) Lookup(l emotion.Label) Entry {
	if e, ok := t.byLabel[l]; ok {
		return e
	}
	return t.Default
}

// reason picks the first rule whose keyword appears in any of texts.
func (t *Table) reason(texts []string) string {
	joined := strings.Join(texts, " ")
	for _, rule := range t.Context.Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(joined, kw) {
				return rule.Reason
			}
		}
	}
	return t.Context.DefaultReason
}
