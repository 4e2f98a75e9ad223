// Package result turns raw evaluator stdout into the JSON document returned to clients.
package result

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/mcoot/fiteval/internal/model"
)

const (
	terminalKey = "terminal"
	videoKey    = "video"
)

// Normalize never fails. A JSON object on stdout becomes the result base;
// anything else yields {"terminal": stdout}. The terminal field falls back
// to the raw stdout when it is missing or falsy, and a string video path
// has its backslashes converted to forward slashes.
func Normalize(stdout string) model.EvaluationResult {
	obj, ok := decodeObject(stdout)
	if !ok {
		return model.EvaluationResult{terminalKey: stdout}
	}

	res := model.EvaluationResult(obj)
	if !truthy(res[terminalKey]) {
		res[terminalKey] = stdout
	}
	if v, ok := res[videoKey].(string); ok {
		res[videoKey] = strings.ReplaceAll(v, `\`, "/")
	}
	return res
}

// decodeObject parses s as exactly one JSON object, keeping numbers as json.Number
func decodeObject(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	// Trailing data means stdout was not a single JSON document
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}

	obj, ok := v.(map[string]any)
	return obj, ok
}

// truthy reports whether v would be truthy in a JavaScript boolean context
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			// Out of float range, still a non-zero literal
			return true
		}
		return f != 0
	default:
		// Objects and arrays, including empty ones
		return true
	}
}
