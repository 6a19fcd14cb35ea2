package outputparser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-quiz-generator-be/pkg/quiz"
)

const validDoc = `{"data": [{"question_text": "What does a loop do?", "question_type": "SINGLE_CHOICE", "answers": [{"answer_text": "Iterates over a sequence", "is_correct": true}, {"answer_text": "Binds a name", "is_correct": false}]}]}`

func newQuizParser() *Parser[quiz.Document] {
	return New(func(d *quiz.Document) error { return d.Validate() })
}

func TestDetectTruncation(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		truncated bool
	}{
		{"complete object", validDoc, false},
		{"unbalanced braces", `{"data": [{`, true},
		{"unbalanced brackets", `{"data": [}`, true},
		{"unterminated string", `{"a": "b"} "question_text": "What is`, true},
		{"trailing comma", `{"data": []},`, true},
		{"trailing colon", `{"data": []} "x":`, true},
		{"trailing whitespace is ignored", validDoc + "\n\n", false},
		{"plain prose", "no json here", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectTruncation(tt.raw) != ""
			if got != tt.truncated {
				t.Errorf("DetectTruncation(%q) truncated = %v, want %v", tt.raw, got, tt.truncated)
			}
		})
	}
}

func TestParse_TruncatedBeforeAnyStrategy(t *testing.T) {
	called := false
	p := NewWithStrategies(Strategy[quiz.Document]{
		Name: "spy",
		Fn: func(string) (quiz.Document, error) {
			called = true
			return quiz.Document{}, nil
		},
	})

	_, err := p.Parse(`{"data": [{`)

	var truncErr *TruncatedOutputError
	require.ErrorAs(t, err, &truncErr)
	assert.False(t, called, "no strategy may run on truncated output")
}

func TestParse_Strategies(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		strategy string
	}{
		{"raw json", validDoc, "direct"},
		{"raw json with whitespace", "\n  " + validDoc + "  \n", "direct"},
		{"fenced with prose", "Here are your questions:\n```json\n" + validDoc + "\n```\nGood luck!", "fenced_block"},
		{"fence without language", "```\n" + validDoc + "\n```", "fenced_block"},
		{"prose around object", "Sure! " + validDoc + " Let me know if you need more.", "brace_span"},
	}

	p := newQuizParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, res.Strategy)
			require.Len(t, res.Value.Data, 1)
			assert.Equal(t, "What does a loop do?", res.Value.Data[0].QuestionText)
			assert.Equal(t, quiz.DefaultPoint, res.Value.Data[0].Point)
		})
	}
}

func TestStripFences(t *testing.T) {
	fn := StripFences(func(d *quiz.Document) error { return d.Validate() })

	doc, err := fn("```json\n" + validDoc + "\n```")
	require.NoError(t, err)
	assert.Len(t, doc.Data, 1)
}

func TestParse_AllStrategiesFail(t *testing.T) {
	p := newQuizParser()
	raw := `{"data": [{"question_text": "Is this valid?", "question_type": "TRUE_FALSE", "answers": [{"answer_text": "True", "is_correct": true}]}]}`

	_, err := p.Parse(raw)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "strip_fences", parseErr.Strategy)
	assert.Contains(t, parseErr.Error(), "exactly 2 answers")
	assert.Equal(t, raw, parseErr.Raw)
}

func TestParse_RawPreviewIsBounded(t *testing.T) {
	p := newQuizParser()
	raw := strings.Repeat("x", 2000)

	_, err := p.Parse(raw)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Len(t, parseErr.Raw, rawPreviewLimit)
}

func TestParse_FirstSuccessWins(t *testing.T) {
	var order []string
	mk := func(name string, err error) Strategy[int] {
		return Strategy[int]{Name: name, Fn: func(string) (int, error) {
			order = append(order, name)
			return len(order), err
		}}
	}
	p := NewWithStrategies(mk("a", errors.New("nope")), mk("b", nil), mk("c", nil))

	res, err := p.Parse("{}")
	require.NoError(t, err)
	assert.Equal(t, "b", res.Strategy)
	assert.Equal(t, 2, res.Value)
	assert.Equal(t, []string{"a", "b"}, order)
}
