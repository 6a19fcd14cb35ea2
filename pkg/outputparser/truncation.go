package outputparser

import (
	"fmt"
	"regexp"
	"strings"
)

var truncationPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"unterminated string value", regexp.MustCompile(`"[A-Za-z_]+":\s*"[^"]*$`)},
	{"trailing comma", regexp.MustCompile(`,\s*$`)},
	{"trailing colon", regexp.MustCompile(`:\s*$`)},
}

// DetectTruncation reports why raw looks cut off, or "" when it looks complete.
func DetectTruncation(raw string) string {
	content := strings.TrimSpace(raw)

	openBraces := strings.Count(content, "{")
	closeBraces := strings.Count(content, "}")
	openBrackets := strings.Count(content, "[")
	closeBrackets := strings.Count(content, "]")

	if openBraces != closeBraces || openBrackets != closeBrackets {
		return fmt.Sprintf("unbalanced JSON: braces %d/%d, brackets %d/%d",
			openBraces, closeBraces, openBrackets, closeBrackets)
	}

	for _, p := range truncationPatterns {
		if p.re.MatchString(content) {
			return p.name
		}
	}
	return ""
}
