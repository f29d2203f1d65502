package diary

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/emotion"
)

// ErrEmptyHistory is returned when a diary is requested for a session without turns.
var ErrEmptyHistory = errors.New("conversation history is empty")

// DefaultSnippetChars is the code point budget for quoted utterances in the summary.
const DefaultSnippetChars = 30

// TopN is the length cap of Report.Top3.
const TopN = 3

// LabelShare is one entry of the top emotions list.
type LabelShare struct {
	Label      emotion.Label `json:"emotion"`
	Percentage float64       `json:"percentage"`
}

// Stats describe the conversation the report was built from.
type Stats struct {
	TotalTurns int       `json:"total_turns"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// Report is the end-of-session emotional summary.
type Report struct {
	Summary      string                    `json:"summary"`
	Cause        string                    `json:"cause"`
	Context      string                    `json:"context"`
	Advice       string                    `json:"advice"`
	Todo         TodoPlan                  `json:"todo"`
	Distribution map[emotion.Label]float64 `json:"distribution"`
	Dominant     emotion.Label             `json:"dominant_emotion"`
	Top3         []LabelShare              `json:"top_3_emotions"`
	Stats        Stats                     `json:"conversation_stats"`
}

// Aggregator turns a finished turn log into a Report. It never mutates the
// turns it is given and holds no locale-specific text of its own.
type Aggregator struct {
	table *Table
}

func NewAggregator(table *Table) *Aggregator {
	return &Aggregator{table: table}
}

// Summarize builds the report. It fails with ErrEmptyHistory before doing
// any other work when turns is empty.
func (a *Aggregator) Summarize(turns []conversation.Turn) (*Report, error) {
	if len(turns) == 0 {
		return nil, ErrEmptyHistory
	}

	counts := CountLabels(turns)
	ranked := rankLabels(counts)
	total := float64(len(turns))

	distribution := make(map[emotion.Label]float64, len(counts))
	for l, c := range counts {
		distribution[l] = float64(c) / total
	}

	top := make([]LabelShare, 0, TopN)
	for _, l := range ranked {
		if len(top) == TopN {
			break
		}
		top = append(top, LabelShare{Label: l, Percentage: Percent(distribution[l])})
	}

	dominant := ranked[0]
	entry := a.table.Lookup(dominant)

	texts := make([]string, len(turns))
	for i, t := range turns {
		texts[i] = t.UserText
	}

	return &Report{
		Summary:      a.summary(dominant, texts),
		Cause:        entry.Cause,
		Context:      a.context(dominant, texts),
		Advice:       entry.Advice,
		Todo:         entry.Todo,
		Distribution: distribution,
		Dominant:     dominant,
		Top3:         top,
		Stats: Stats{
			TotalTurns: len(turns),
			StartTime:  turns[0].Timestamp,
			EndTime:    turns[len(turns)-1].Timestamp,
		},
	}, nil
}

// CountLabels counts label occurrences across turns.
func CountLabels(turns []conversation.Turn) map[emotion.Label]int {
	counts := make(map[emotion.Label]int, emotion.Count)
	for _, t := range turns {
		counts[t.Label]++
	}
	return counts
}

// Dominant returns the most frequent label, ties resolved by canonical order.
// It depends on the count map alone.
func Dominant(counts map[emotion.Label]int) (emotion.Label, bool) {
	ranked := rankLabels(counts)
	if len(ranked) == 0 {
		return "", false
	}
	return ranked[0], true
}

// rankLabels orders the labels present in counts by count desc, then
// canonical rank. Non-canonical labels sort after canonical ones, by value.
func rankLabels(counts map[emotion.Label]int) []emotion.Label {
	labels := make([]emotion.Label, 0, len(counts))
	for l, c := range counts {
		if c > 0 {
			labels = append(labels, l)
		}
	}
	sort.Slice(labels, func(i, j int) bool {
		ci, cj := counts[labels[i]], counts[labels[j]]
		if ci != cj {
			return ci > cj
		}
		ri, rj := emotion.Rank(labels[i]), emotion.Rank(labels[j])
		if ri < 0 {
			ri = emotion.Count
		}
		if rj < 0 {
			rj = emotion.Count
		}
		if ri != rj {
			return ri < rj
		}
		return labels[i] < labels[j]
	})
	return labels
}

// Percent renders a share as a percentage rounded to one decimal place.
func Percent(share float64) float64 {
	return math.Round(share*1000) / 10
}

func (a *Aggregator) summary(dominant emotion.Label, texts []string) string {
	tpl := a.table.Summary
	snippet := func(s string) string {
		cut, truncated := TruncateRunes(strings.TrimSpace(s), tpl.MaxChars)
		if truncated {
			cut += tpl.Ellipsis
		}
		return cut
	}

	first := snippet(texts[0])
	last := snippet(texts[len(texts)-1])
	r := strings.NewReplacer("{dominant}", string(dominant), "{first}", first, "{last}", last)

	var b strings.Builder
	b.WriteString(r.Replace(tpl.Opening))
	if len(texts) == 1 && tpl.Single != "" {
		b.WriteString(r.Replace(tpl.Single))
		return b.String()
	}
	b.WriteString(r.Replace(tpl.First))
	if len(texts) > 1 {
		b.WriteString(r.Replace(tpl.Last))
	}
	return b.String()
}

func (a *Aggregator) context(dominant emotion.Label, texts []string) string {
	ctx := a.table.Context
	if ctx.Template == "" {
		return ""
	}
	return strings.NewReplacer(
		"{dominant}", string(dominant),
		"{reason}", a.table.reason(texts),
	).Replace(ctx.Template)
}

// TruncateRunes cuts s to at most n code points. It never splits a
// multi-byte character. The bool reports whether anything was removed.
func TruncateRunes(s string, n int) (string, bool) {
	if n < 0 {
		n = 0
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}
