package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	t.Setenv("ANSWER_GRADER_TEST_KEY", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{Name: "key", File: keyFile, Value: "inline"}, want: "from-file"},
		{name: "inline value", src: Source{Value: " inline ", Env: []string{"ANSWER_GRADER_TEST_KEY"}}, want: "inline"},
		{name: "env fallback", src: Source{Env: []string{"ANSWER_GRADER_UNSET_KEY", "ANSWER_GRADER_TEST_KEY"}}, want: "from-env"},
		{name: "empty file", src: Source{Name: "key", File: emptyFile}, wantErr: "is empty"},
		{name: "missing file", src: Source{Name: "key", File: filepath.Join(dir, "nope")}, wantErr: "reading key"},
		{name: "nothing configured", src: Source{Name: "groq api key", Env: []string{"ANSWER_GRADER_UNSET_KEY"}}, wantErr: "checked ANSWER_GRADER_UNSET_KEY"},
		{name: "default name", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Env: []string{"ANSWER_GRADER_UNSET_KEY"}})
	if err != nil || got != "" {
		t.Fatalf("expected empty secret without error, got %q, %v", got, err)
	}

	if _, err := Optional(Source{File: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}
