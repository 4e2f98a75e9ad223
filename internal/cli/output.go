package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case AuthResult:
		o.printAuthResult(v)
	case Evaluation:
		o.printEvaluation(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// AuthResult response type (matches API)
type AuthResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	SessionToken string `json:"session_token,omitempty"`
}

// Evaluation is the normalized evaluator output for one upload
type Evaluation map[string]any

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

func (o *Output) printAuthResult(a AuthResult) {
	fmt.Fprintln(o.w, a.Message)
	if a.SessionToken != "" {
		fmt.Fprintf(o.w, "Token: %s\n", a.SessionToken)
	}
}

// printEvaluation lists scalar fields sorted by name, then the terminal output
func (o *Output) printEvaluation(e Evaluation) {
	for _, k := range slices.Sorted(maps.Keys(e)) {
		if k == "terminal" {
			continue
		}
		fmt.Fprintf(o.w, "%s: %s\n", k, formatValue(e[k]))
	}

	if terminal, ok := e["terminal"]; ok {
		if s, ok := terminal.(string); ok {
			fmt.Fprintln(o.w, "Output:")
			fmt.Fprintln(o.w, strings.TrimRight(s, "\n"))
		} else {
			fmt.Fprintf(o.w, "terminal: %s\n", formatValue(terminal))
		}
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprint(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
}
