package response

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"emotion-diary-be/pkg/emotion"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

const keywordPlaceholder = "{keyword}"

// DefaultMaxChars caps a post-processed model reply, in code points.
const DefaultMaxChars = 100

// Table holds the fallback replies and the post-processing phrases.
type Table struct {
	Keywords  []string            `yaml:"keywords"`
	Templates map[string][]string `yaml:"templates"`
	Default   []string            `yaml:"default"`
	FollowUps map[string]string   `yaml:"follow_ups"`
	MaxChars  int                 `yaml:"max_chars"`

	byLabel   map[emotion.Label][]string
	followUps map[emotion.Label]string
}

// DefaultTable returns the built-in Korean template table.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultTemplates)
}

// LoadTable reads a template table from a YAML file. An empty path yields
// the built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read response templates: %w", err)
	}
	return ParseTable(raw)
}

func ParseTable(raw []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode response templates: %w", err)
	}
	if len(t.Default) == 0 {
		return nil, fmt.Errorf("response templates: default list is required")
	}
	for _, tpl := range t.Default {
		if strings.Contains(tpl, keywordPlaceholder) {
			return nil, fmt.Errorf("response templates: default template %q must not use %s", tpl, keywordPlaceholder)
		}
	}
	if t.MaxChars <= 0 {
		t.MaxChars = DefaultMaxChars
	}

	t.byLabel = make(map[emotion.Label][]string, len(t.Templates))
	for key, list := range t.Templates {
		label, err := emotion.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("response templates: %w", err)
		}
		plain := 0
		for _, tpl := range list {
			if !strings.Contains(tpl, keywordPlaceholder) {
				plain++
			}
		}
		// a message without keywords must still have something to pick
		if plain == 0 {
			return nil, fmt.Errorf("response templates: %q needs a template without %s", key, keywordPlaceholder)
		}
		t.byLabel[label] = list
	}

	t.followUps = make(map[emotion.Label]string, len(t.FollowUps))
	for key, q := range t.FollowUps {
		label, err := emotion.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("response templates: %w", err)
		}
		t.followUps[label] = q
	}
	return &t, nil
}

// templatesFor returns the templates for l, or the default list.
func (t *Table) templatesFor(l emotion.Label) []string {
	if list, ok := t.byLabel[l]; ok && len(list) > 0 {
		return list
	}
	return t.Default
}

// FollowUp returns the follow-up phrase for l, empty if none.
func (t *Table) FollowUp(l emotion.Label) string {
	return t.followUps[l]
}

// ExtractKeywords returns the table keywords found in text, in table order,
// at most max.
func (t *Table) ExtractKeywords(text string, max int) []string {
	var found []string
	for _, kw := range t.Keywords {
		if len(found) == max {
			break
		}
		if kw != "" && strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}
