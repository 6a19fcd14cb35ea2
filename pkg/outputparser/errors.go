package outputparser

import "fmt"

const rawPreviewLimit = 500

// TruncatedOutputError means the model stopped before closing the document.
// Retrying with fewer requested items or a larger output budget usually helps.
type TruncatedOutputError struct {
	Reason string
	Raw    string
}

func (e *TruncatedOutputError) Error() string {
	return fmt.Sprintf("model output was truncated (%s); request fewer questions or raise the output token budget", e.Reason)
}

// ParseError is returned once every strategy has failed. Err is the last strategy's error.
type ParseError struct {
	Strategy string
	Err      error
	Raw      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model output (last strategy %s): %v", e.Strategy, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func preview(raw string) string {
	r := []rune(raw)
	if len(r) <= rawPreviewLimit {
		return raw
	}
	return string(r[:rawPreviewLimit])
}
