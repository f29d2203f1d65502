package diary

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/emotion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregator(t *testing.T) *Aggregator {
	t.Helper()
	table, err := DefaultTable()
	require.NoError(t, err)
	return NewAggregator(table)
}

func turnsWith(labels ...emotion.Label) []conversation.Turn {
	s := conversation.NewSession("test")
	base := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	for i, l := range labels {
		s.AppendTurn(conversation.TurnInput{
			UserText:     "오늘 있었던 일 " + string(l),
			Label:        l,
			Confidence:   0.8,
			ResponseText: "그랬군요.",
			Modality:     conversation.ModalityText,
			Timestamp:    base.Add(time.Duration(i) * time.Minute),
		})
	}
	return s.Turns()
}

func TestSummarizeDistribution(t *testing.T) {
	agg := newAggregator(t)

	report, err := agg.Summarize(turnsWith(emotion.Joy, emotion.Joy, emotion.Sadness))
	require.NoError(t, err)

	require.Len(t, report.Distribution, 2)
	assert.InDelta(t, 0.667, report.Distribution[emotion.Joy], 0.001)
	assert.InDelta(t, 0.333, report.Distribution[emotion.Sadness], 0.001)
	_, hasAnger := report.Distribution[emotion.Anger]
	assert.False(t, hasAnger, "labels that never occurred are omitted")

	assert.Equal(t, emotion.Joy, report.Dominant)
	assert.Equal(t, []LabelShare{
		{Label: emotion.Joy, Percentage: 66.7},
		{Label: emotion.Sadness, Percentage: 33.3},
	}, report.Top3)

	assert.Equal(t, 3, report.Stats.TotalTurns)
	assert.True(t, report.Stats.EndTime.After(report.Stats.StartTime))
}

func TestSummarizeDominantTieUsesCanonicalOrder(t *testing.T) {
	agg := newAggregator(t)

	// hurt is seen first and last, anxiety comes earlier canonically
	report, err := agg.Summarize(turnsWith(emotion.Hurt, emotion.Anxiety, emotion.Anxiety, emotion.Hurt))
	require.NoError(t, err)
	assert.Equal(t, emotion.Anxiety, report.Dominant)

	reversed, err := agg.Summarize(turnsWith(emotion.Anxiety, emotion.Hurt, emotion.Hurt, emotion.Anxiety))
	require.NoError(t, err)
	assert.Equal(t, emotion.Anxiety, reversed.Dominant)
}

func TestSummarizeTop3(t *testing.T) {
	agg := newAggregator(t)

	report, err := agg.Summarize(turnsWith(
		emotion.Hurt, emotion.Surprise, emotion.Anger, emotion.Anger, emotion.Joy, emotion.Sadness,
	))
	require.NoError(t, err)

	require.Len(t, report.Top3, 3)
	assert.Equal(t, emotion.Anger, report.Top3[0].Label)
	assert.Equal(t, 33.3, report.Top3[0].Percentage)
	// the remaining four tie at one occurrence each
	assert.Equal(t, emotion.Joy, report.Top3[1].Label)
	assert.Equal(t, emotion.Sadness, report.Top3[2].Label)
	assert.Equal(t, 16.7, report.Top3[1].Percentage)

	single, err := agg.Summarize(turnsWith(emotion.Surprise))
	require.NoError(t, err)
	assert.Equal(t, []LabelShare{{Label: emotion.Surprise, Percentage: 100}}, single.Top3)
}

func TestSummarizeEveryLabelSingleTurn(t *testing.T) {
	agg := newAggregator(t)

	for _, l := range emotion.All() {
		t.Run(string(l), func(t *testing.T) {
			report, err := agg.Summarize(turnsWith(l))
			require.NoError(t, err)
			assert.Equal(t, l, report.Dominant)
			assert.NotEmpty(t, report.Summary)
			assert.Contains(t, report.Summary, string(l))
			assert.NotEmpty(t, report.Cause)
			assert.NotEmpty(t, report.Advice)
			assert.NotEmpty(t, report.Context)
			assert.NotEmpty(t, report.Todo.Today)
			assert.NotEmpty(t, report.Todo.Tomorrow)
			assert.NotEmpty(t, report.Todo.DayAfter)
			assert.NotEmpty(t, report.Todo.D3)
		})
	}
}

func TestSummarizeEmptyHistory(t *testing.T) {
	agg := newAggregator(t)

	report, err := agg.Summarize(nil)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrEmptyHistory)

	report, err = agg.Summarize([]conversation.Turn{})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestSummarizeDoesNotMutateTurns(t *testing.T) {
	agg := newAggregator(t)
	turns := turnsWith(emotion.Joy, emotion.Anger)
	snapshot := make([]conversation.Turn, len(turns))
	copy(snapshot, turns)

	_, err := agg.Summarize(turns)
	require.NoError(t, err)
	assert.Equal(t, snapshot, turns)
}

func TestSummarizeIsDeterministic(t *testing.T) {
	agg := newAggregator(t)
	turns := turnsWith(emotion.Anger, emotion.Sadness, emotion.Anger)

	first, err := agg.Summarize(turns)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := agg.Summarize(turns)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSummaryQuotesFirstAndLastUtterance(t *testing.T) {
	agg := newAggregator(t)
	turns := turnsWith(emotion.Anger, emotion.Anger)
	turns[0].UserText = "아 진짜 엄마가 나 학원가라는데 너무 빡치네 오늘은 정말 아무것도 하기 싫다"
	turns[1].UserText = "그래도 좀 나아졌어"

	report, err := agg.Summarize(turns)
	require.NoError(t, err)

	first, truncated := TruncateRunes(turns[0].UserText, DefaultSnippetChars)
	require.True(t, truncated)
	assert.Contains(t, report.Summary, "'"+first+"...'")
	assert.Contains(t, report.Summary, "'그래도 좀 나아졌어'")
	assert.True(t, utf8.ValidString(report.Summary))
	assert.Contains(t, report.Context, "가족 관계")
}

func TestTruncateRunes(t *testing.T) {
	forty := strings.Repeat("가나다라마바사아자차", 4)
	require.Equal(t, 40, utf8.RuneCountInString(forty))

	cut, truncated := TruncateRunes(forty, 30)
	assert.True(t, truncated)
	assert.Equal(t, 30, utf8.RuneCountInString(cut))
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, strings.Repeat("가나다라마바사아자차", 3), cut)

	short, truncated := TruncateRunes("짧은 말", 30)
	assert.False(t, truncated)
	assert.Equal(t, "짧은 말", short)

	exact, truncated := TruncateRunes(strings.Repeat("😀", 30), 30)
	assert.False(t, truncated)
	assert.Equal(t, 30, utf8.RuneCountInString(exact))

	empty, truncated := TruncateRunes("abc", 0)
	assert.True(t, truncated)
	assert.Empty(t, empty)
}

func TestDominantFromCounts(t *testing.T) {
	l, ok := Dominant(map[emotion.Label]int{emotion.Hurt: 2, emotion.Surprise: 2, emotion.Joy: 1})
	require.True(t, ok)
	assert.Equal(t, emotion.Surprise, l)

	_, ok = Dominant(map[emotion.Label]int{})
	assert.False(t, ok)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 66.7, Percent(2.0/3.0))
	assert.Equal(t, 33.3, Percent(1.0/3.0))
	assert.Equal(t, 100.0, Percent(1))
	assert.Equal(t, 14.3, Percent(1.0/7.0))
}
