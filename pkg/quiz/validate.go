package quiz

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(questionShape, QuestionDraft{})
	return v
}

func questionShape(sl validator.StructLevel) {
	q := sl.Current().Interface().(QuestionDraft)
	correct := q.CorrectCount()

	switch q.QuestionType {
	case TrueFalse:
		if len(q.Answers) != 2 {
			sl.ReportError(q.Answers, "Answers", "answers", "true_false_two_answers", "")
		}
		if correct != 1 {
			sl.ReportError(q.Answers, "Answers", "answers", "single_correct", "")
		}
	case SingleChoice:
		if correct != 1 {
			sl.ReportError(q.Answers, "Answers", "answers", "single_correct", "")
		}
	case MultipleChoice:
		if correct < 1 {
			sl.ReportError(q.Answers, "Answers", "answers", "at_least_one_correct", "")
		}
	}
}

// Validate checks field constraints and per-type answer invariants.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("quiz document invalid: %s", describe(verrs))
		}
		return err
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "min":
			msg = "needs at least " + fe.Param() + " items"
		case "gt":
			msg = "must be greater than " + fe.Param()
		case "oneof":
			msg = fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
		case "true_false_two_answers":
			msg = "TRUE_FALSE questions need exactly 2 answers"
		case "single_correct":
			msg = "needs exactly 1 correct answer"
		case "at_least_one_correct":
			msg = "MULTIPLE_CHOICE questions need at least 1 correct answer"
		default:
			msg = "failed " + fe.Tag()
		}
		msgs = append(msgs, fe.Namespace()+" "+msg)
	}
	return strings.Join(msgs, "; ")
}
