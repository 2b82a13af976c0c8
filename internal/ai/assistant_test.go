package ai

import (
	"errors"
	"testing"
)

func TestIdealAnswer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		answer IdealAnswer
		ok     bool
		text   string
	}{
		{name: "success", answer: IdealAnswer{Text: "Goroutines are cheap."}, ok: true, text: "Goroutines are cheap."},
		{name: "error", answer: IdealAnswer{Text: "partial", Err: errors.New("timeout")}, ok: false, text: NoIdealAnswer},
		{name: "empty", answer: IdealAnswer{}, ok: false, text: NoIdealAnswer},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.answer.OK(); got != tt.ok {
				t.Fatalf("OK() = %v, want %v", got, tt.ok)
			}
			if got := tt.answer.TextOrSentinel(); got != tt.text {
				t.Fatalf("TextOrSentinel() = %q, want %q", got, tt.text)
			}
		})
	}
}

type described struct{}

func (described) Provider() string { return "gemini" }
func (described) Model() string    { return "m1" }

func TestDescribe(t *testing.T) {
	t.Parallel()

	if p, m := Describe(described{}); p != "gemini" || m != "m1" {
		t.Fatalf("unexpected description %q %q", p, m)
	}
	if p, m := Describe(struct{}{}); p != "" || m != "" {
		t.Fatalf("expected empty description, got %q %q", p, m)
	}
}
