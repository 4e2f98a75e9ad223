package model

import "time"

// UploadedAsset is a video written to the upload directory for a single request.
// Path is always server-generated and the file is removed once evaluation ends.
type UploadedAsset struct {
	Path         string
	TestType     string // lower-cased
	OriginalName string
	ContentType  string
	Size         int64
}

// RawOutput is what the evaluator process produced
type RawOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// EvaluationResult is the normalized evaluator output returned to the client.
// It always carries a "terminal" key.
type EvaluationResult map[string]any

// Terminal returns the terminal field, or "" if it is not a string
func (r EvaluationResult) Terminal() string {
	s, _ := r["terminal"].(string)
	return s
}
