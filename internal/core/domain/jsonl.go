package domain

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
)

const maxJSONLLine = 16 << 20

// LineError describes a problem found on one line of a training file.
type LineError struct {
	Line int
	Msg  string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// JSONLReport summarises a training file check.
type JSONLReport struct {
	TotalLines    int   `json:"totalLines"`
	ValidExamples int   `json:"validExamples"`
	Err           error `json:"-"`
}

// Valid reports whether no line produced an error.
func (r *JSONLReport) Valid() bool {
	return r.Err == nil
}

// Problems lists every line error in file order.
func (r *JSONLReport) Problems() []string {
	errs := multierr.Errors(r.Err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

// ValidateJSONL checks chat-format training data: every non-blank line is a
// JSON object with a "messages" array of at least two entries, each entry has
// a role and a content, and both a user and an assistant turn are present.
// The returned error is only for read failures; data problems are in the
// report.
func ValidateJSONL(r io.Reader) (*JSONLReport, error) {
	report := &JSONLReport{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)

	for scanner.Scan() {
		report.TotalLines++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lineErrs := validateExample(report.TotalLines, line)
		if len(lineErrs) == 0 {
			report.ValidExamples++
			continue
		}
		report.Err = multierr.Append(report.Err, multierr.Combine(lineErrs...))
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("read jsonl: %w", err)
	}
	return report, nil
}

func validateExample(n int, line []byte) []error {
	lineErr := func(format string, args ...any) error {
		return &LineError{Line: n, Msg: fmt.Sprintf(format, args...)}
	}

	var record map[string]json.RawMessage
	if err := json.Unmarshal(line, &record); err != nil {
		return []error{lineErr("invalid JSON - %v", err)}
	}

	var messages []map[string]json.RawMessage
	raw, ok := record["messages"]
	if !ok || json.Unmarshal(raw, &messages) != nil || messages == nil {
		return []error{lineErr("missing or invalid 'messages' array")}
	}
	if len(messages) < 2 {
		return []error{lineErr("'messages' array should have at least 2 entries (user and assistant)")}
	}

	var errs []error
	var hasUser, hasAssistant bool
	for _, msg := range messages {
		var role string
		if rawRole, ok := msg["role"]; !ok || json.Unmarshal(rawRole, &role) != nil || role == "" {
			errs = append(errs, lineErr("message missing 'role' field"))
			continue
		}
		if content, ok := msg["content"]; !ok || string(bytes.TrimSpace(content)) == "null" {
			errs = append(errs, lineErr("message missing 'content' field"))
			continue
		}
		switch strings.ToLower(role) {
		case "user":
			hasUser = true
		case "assistant":
			hasAssistant = true
		case "system":
		default:
			errs = append(errs, lineErr("invalid role '%s'. Must be 'system', 'user' or 'assistant'", role))
		}
	}
	if !hasUser {
		errs = append(errs, lineErr("missing 'user' message"))
	}
	if !hasAssistant {
		errs = append(errs, lineErr("missing 'assistant' message"))
	}
	return errs
}
