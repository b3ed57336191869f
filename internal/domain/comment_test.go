package domain

import "testing"

func TestSanitizeCommentField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "hello there", "hello there"},
		{"separator", "a/MySQLSep/b", "a b"},
		{"terminator", "a/MySQLNewLine/b", "a b"},
		{"trailing separator fragment", "name/MySQLSep", "name MySQLSep"},
		{"trailing terminator fragment", "text/MySQLNewLine", "text MySQLNewLine"},
		{"leading separator fragment", "MySQLSep/text", "MySQLSep text"},
		{"leading terminator fragment", "MySQLNewLine/text", "MySQLNewLine text"},
		{"nested tokens", "/MySQLNewLine/MySQLSep/", "/MySQLNewLine "},
		{"slashes alone", "a/b/c", "a/b/c"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeCommentField(tt.in)
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if again := SanitizeCommentField(got); again != got {
				t.Errorf("expected idempotent result, got %q then %q", got, again)
			}
		})
	}
}
