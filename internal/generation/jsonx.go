package generation

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// extractResult recovers a Result from free-form model text. Tried in
// order, first success wins: fenced code block, direct parse, then the
// span between the first '{' and the last '}'.
func extractResult(text string) (Result, error) {
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		if res, ok := tryParse(m[1]); ok {
			return res, nil
		}
	}

	if res, ok := tryParse(text); ok {
		return res, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if res, ok := tryParse(text[start : end+1]); ok {
			return res, nil
		}
	}

	return Result{}, &MalformedResponseError{Raw: text}
}

func tryParse(s string) (Result, bool) {
	// IsValid defaults to true: providers omitting the flag are
	// asserting a usable answer, not rejecting the image.
	res := Result{IsValid: true}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &res); err != nil {
		return Result{}, false
	}
	if res.Name == "" {
		return Result{}, false
	}
	return res, true
}
