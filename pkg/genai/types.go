package genai

import (
	"context"
	"errors"
)

// AnalysisInput carries the artefacts the critic compares: the teacher's
// task description and the student's submitted answer.
type AnalysisInput struct {
	TaskDescription string
	StudentAnswer   string
}

// Failure reasons surfaced to callers. HTTP 401/402/404 from the provider
// are business conditions, not transport noise, and map to distinct errors.
var (
	ErrInvalidToken        = errors.New("genai: invalid api token")
	ErrInsufficientBalance = errors.New("genai: insufficient balance")
	ErrModelNotFound       = errors.New("genai: model not found")
	ErrTimeout             = errors.New("genai: provider did not answer in time")
	ErrUpstream            = errors.New("genai: provider request failed")
)

// Critic produces a short automated critique of a student's answer. An empty
// result with a nil error means the provider answered but no usable text
// could be extracted.
type Critic interface {
	Critique(ctx context.Context, input AnalysisInput) (string, error)
}
