package wiki

import (
	"encoding/json"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"plain text untouched",
			`{"key": "value"}`,
			`{"key": "value"}`,
		},
		{
			"literal newline inside string",
			"{\"content\": \"line1\nline2\"}",
			`{"content": "line1\nline2"}`,
		},
		{
			"literal tab inside string",
			"{\"content\": \"a\tb\"}",
			`{"content": "a\tb"}`,
		},
		{
			"newline outside strings untouched",
			"{\n\"key\": \"value\"\n}",
			"{\n\"key\": \"value\"\n}",
		},
		{
			"already escaped sequences untouched",
			`{"content": "line1\nline2"}`,
			`{"content": "line1\nline2"}`,
		},
		{
			"escaped quote does not end the string",
			"{\"content\": \"say \\\"hi\\\"\nbye\"}",
			`{"content": "say \"hi\"\nbye"}`,
		},
		{
			"escaped backslash before quote",
			`{"path": "C:\\"}`,
			`{"path": "C:\\"}`,
		},
		{
			"empty input",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	input := "{\"content\": \"a\nb\tc\", \"other\": \"plain\"}"
	once := Sanitize(input)
	twice := Sanitize(once)
	if once != twice {
		t.Errorf("not idempotent: %q vs %q", once, twice)
	}
}

func TestSanitizeMakesOutputParseable(t *testing.T) {
	input := "{\"content\": \"# Title\nSome text\twith a tab\"}"
	var out map[string]string
	if err := json.Unmarshal([]byte(input), &out); err == nil {
		t.Fatal("fixture should not parse before sanitizing")
	}
	if err := json.Unmarshal([]byte(Sanitize(input)), &out); err != nil {
		t.Fatalf("sanitized output does not parse: %v", err)
	}
	if out["content"] != "# Title\nSome text\twith a tab" {
		t.Errorf("unexpected decoded content: %q", out["content"])
	}
}
