package ai

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Pre-compiled patterns for stripping code fences from model output.
// Models frequently wrap JSON in ```json ... ``` despite being told not to.
var (
	jsonFenceRegex = regexp.MustCompile("(?s)```json\\s*\n?([\\s\\S]*?)\n?```")
	anyFenceRegex  = regexp.MustCompile("(?s)```\\s*\n?([\\s\\S]*?)\n?```")
)

// ParseResult is the outcome of parsing a model response as JSON. It is a
// tagged variant: either Ok (Success=true, Data populated) or Malformed
// (Success=false, OriginalText preserved for the audit trail). Consumers
// must handle both; a malformed response is never an error, it is "no
// information produced".
type ParseResult[T any] struct {
	Success      bool
	Data         T
	Error        string
	OriginalText string
}

// Parse extracts a JSON payload of type T from a model response.
//
// Strategy sequence:
//  1. Direct JSON parse
//  2. Strip ```json fences and retry
//  3. Strip plain ``` fences and retry
//
// Parse never panics and never returns a Go error: unparseable output
// yields a Malformed result with the zero value of T, so callers always
// have a well-formed (if empty) structure to merge.
func Parse[T any](text string) ParseResult[T] {
	trimmed := strings.TrimSpace(text)

	var data T
	if err := json.Unmarshal([]byte(trimmed), &data); err == nil {
		return ParseResult[T]{Success: true, Data: data, OriginalText: text}
	}

	if m := jsonFenceRegex.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &data); err == nil {
			return ParseResult[T]{Success: true, Data: data, OriginalText: text}
		}
	}

	if m := anyFenceRegex.FindStringSubmatch(trimmed); m != nil {
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &data); err == nil {
			return ParseResult[T]{Success: true, Data: data, OriginalText: text}
		}
	}

	var zero T
	preview := trimmed
	if len(preview) > 200 {
		preview = preview[:200]
	}
	fmt.Fprintf(os.Stderr, "failed to parse JSON from model response: %q\n", preview)
	return ParseResult[T]{
		Success:      false,
		Data:         zero,
		Error:        "response is not valid JSON (direct parse and fence extraction both failed)",
		OriginalText: text,
	}
}
