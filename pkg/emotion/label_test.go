package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllIsCanonicalOrder(t *testing.T) {
	all := All()
	require.Len(t, all, Count)
	assert.Equal(t, []Label{Joy, Sadness, Anger, Anxiety, Surprise, Hurt}, all)

	// callers cannot reorder the canonical list
	all[0] = Hurt
	assert.Equal(t, Joy, All()[0])
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Label
		wantErr bool
	}{
		{name: "korean value", input: "분노", want: Anger},
		{name: "artifact key", input: "emotion_불안", want: Anxiety},
		{name: "english alias", input: "Surprise", want: Surprise},
		{name: "padded", input: "  상처 ", want: Hurt},
		{name: "unknown", input: "boredom", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRankAndLess(t *testing.T) {
	assert.Equal(t, 0, Rank(Joy))
	assert.Equal(t, 5, Rank(Hurt))
	assert.Equal(t, -1, Rank(Label("x")))
	assert.True(t, Less(Sadness, Anger))
	assert.False(t, Less(Hurt, Joy))
}

func TestEveryLabelHasDescription(t *testing.T) {
	for _, l := range All() {
		assert.NotEmpty(t, l.Description(), l)
	}
}
