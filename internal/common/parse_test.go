package common

import "testing"

func TestToLowerWithTrim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "already lowercase", input: "debug", want: "debug"},
		{name: "uppercase", input: "DEBUG", want: "debug"},
		{name: "leading and trailing whitespace", input: "  Warn\n", want: "warn"},
		{name: "empty string", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToLowerWithTrim(tt.input); got != tt.want {
				t.Errorf("ToLowerWithTrim(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
