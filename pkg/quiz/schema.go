// Package quiz defines the structured output the generation model must produce.
package quiz

import (
	"encoding/json"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "SINGLE_CHOICE"
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueFalse      QuestionType = "TRUE_FALSE"
)

const DefaultPoint = 1.0

type AnswerDraft struct {
	AnswerText string `json:"answer_text" validate:"required"`
	IsCorrect  bool   `json:"is_correct"`
}

type QuestionDraft struct {
	QuestionText string        `json:"question_text" validate:"required"`
	Explanation  *string       `json:"explanation,omitempty"`
	Point        float64       `json:"point" validate:"gt=0"`
	QuestionType QuestionType  `json:"question_type" validate:"oneof=SINGLE_CHOICE MULTIPLE_CHOICE TRUE_FALSE"`
	Answers      []AnswerDraft `json:"answers" validate:"required,min=2,dive"`
}

// UnmarshalJSON fills point and question_type defaults when the model omits them.
func (q *QuestionDraft) UnmarshalJSON(b []byte) error {
	type plain QuestionDraft
	out := plain{
		Point:        DefaultPoint,
		QuestionType: SingleChoice,
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*q = QuestionDraft(out)
	return nil
}

// CorrectCount returns how many answers are flagged correct.
func (q QuestionDraft) CorrectCount() int {
	n := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// Document is the top-level object the model returns: {"data": [...]}.
type Document struct {
	Data []QuestionDraft `json:"data" validate:"required,min=1,dive"`
}
