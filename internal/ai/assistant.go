// Package ai holds the boundary types shared by the text-generation backends.
package ai

import (
	"context"
	"errors"
)

// NoIdealAnswer replaces the ideal answer whenever generation fails.
const NoIdealAnswer = "No ideal answer generated."

// ErrEmptyResponse is returned by backends that answered with no usable text.
var ErrEmptyResponse = errors.New("model returned empty response")

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Model is implemented by backends that can describe themselves in logs.
type Model interface {
	Provider() string
	Model() string
}

// IdealAnswer is the outcome of asking a generator for a reference answer.
// Err is set whenever Text must not be trusted.
type IdealAnswer struct {
	Text string
	Err  error
}

// OK reports whether generation succeeded with non-empty text.
func (a IdealAnswer) OK() bool {
	return a.Err == nil && a.Text != ""
}

// TextOrSentinel returns the generated text or NoIdealAnswer on failure.
func (a IdealAnswer) TextOrSentinel() string {
	if !a.OK() {
		return NoIdealAnswer
	}
	return a.Text
}

// Describe returns provider and model of v when it implements Model.
func Describe(v any) (provider, model string) {
	if m, ok := v.(Model); ok {
		return m.Provider(), m.Model()
	}
	return "", ""
}
