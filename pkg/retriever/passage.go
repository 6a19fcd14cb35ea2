package retriever

// Passage is one chunk of source material. ID is its position in the passage set.
type Passage struct {
	ID      int
	Content string
}

// NewPassages numbers texts in order, dropping blank entries.
func NewPassages(texts []string) []Passage {
	out := make([]Passage, 0, len(texts))
	for _, t := range texts {
		if isBlank(t) {
			continue
		}
		out = append(out, Passage{ID: len(out), Content: t})
	}
	return out
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			return false
		}
	}
	return true
}
