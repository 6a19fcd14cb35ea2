package prompt

import (
	"strings"

	"ai-quiz-generator-be/pkg/quiz"
)

// QuizBuilder assembles the single generation prompt for a quiz request.
type QuizBuilder struct {
	instruction string
	passages    []string
	skills      []string
}

func NewQuizBuilder(instruction string, passages, skills []string) *QuizBuilder {
	return &QuizBuilder{
		instruction: instruction,
		passages:    passages,
		skills:      skills,
	}
}

func (b *QuizBuilder) Build() string {
	var prompt strings.Builder

	b.writeRole(&prompt)
	b.writeRequest(&prompt)
	b.writeRules(&prompt)
	b.writeSkills(&prompt)
	b.writeLessonContent(&prompt)
	b.writeOutputFormat(&prompt)

	return prompt.String()
}

func (b *QuizBuilder) writeRole(prompt *strings.Builder) {
	prompt.WriteString("<role>\n")
	prompt.WriteString("You are a university lecturer with a doctorate who writes question sets that test students' understanding.\n")
	prompt.WriteString("</role>\n\n")
}

func (b *QuizBuilder) writeRequest(prompt *strings.Builder) {
	prompt.WriteString("<request>\n")
	prompt.WriteString(strings.TrimSpace(b.instruction))
	prompt.WriteString("\n</request>\n\n")
}

func (b *QuizBuilder) writeRules(prompt *strings.Builder) {
	prompt.WriteString("<rules>\n")
	prompt.WriteString("1. Produce exactly the number of questions requested.\n")
	prompt.WriteString("2. Pick the most suitable type for each question:\n")
	prompt.WriteString("   - SINGLE_CHOICE: 4 options, exactly 1 correct\n")
	prompt.WriteString("   - MULTIPLE_CHOICE: 4 options, 1 or more correct\n")
	prompt.WriteString("   - TRUE_FALSE: exactly 2 options, \"True\" and \"False\", 1 correct\n")
	prompt.WriteString("3. Every question MUST include an explanation of the correct answer.\n")
	prompt.WriteString("4. The default point value is 1.0.\n")
	prompt.WriteString("5. Every question MUST have an \"answers\" array.\n")
	prompt.WriteString("6. Write questions and answers in the language of the request.\n")
	prompt.WriteString("</rules>\n\n")
}

func (b *QuizBuilder) writeSkills(prompt *strings.Builder) {
	if len(b.skills) == 0 {
		return
	}
	prompt.WriteString("<skills>\n")
	prompt.WriteString(strings.Join(b.skills, ", "))
	prompt.WriteString("\n</skills>\n\n")
}

// Without retrieved passages the model works from the request alone.
func (b *QuizBuilder) writeLessonContent(prompt *strings.Builder) {
	if len(b.passages) == 0 {
		return
	}
	prompt.WriteString("<lesson_content>\n")
	prompt.WriteString(strings.Join(b.passages, "\n"))
	prompt.WriteString("\n</lesson_content>\n\n")
}

func (b *QuizBuilder) writeOutputFormat(prompt *strings.Builder) {
	prompt.WriteString("<output_format>\n")
	prompt.WriteString(quiz.FormatInstructions)
	prompt.WriteString("\n\nExample of a correctly formatted output:\n")
	prompt.WriteString(exampleOutput)
	prompt.WriteString("\n</output_format>\n\n")
	prompt.WriteString("RETURN ONLY JSON, NO OTHER TEXT.")
}

const exampleOutput = `{
  "data": [
    {
      "question_text": "Sample question?",
      "explanation": "Why the correct answer is correct",
      "point": 1.0,
      "question_type": "SINGLE_CHOICE",
      "answers": [
        {"answer_text": "Answer A", "is_correct": true},
        {"answer_text": "Answer B", "is_correct": false},
        {"answer_text": "Answer C", "is_correct": false},
        {"answer_text": "Answer D", "is_correct": false}
      ]
    }
  ]
}`
