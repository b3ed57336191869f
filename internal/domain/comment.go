package domain

import "strings"

// Reserved delimiters of the persisted comment log.
const (
	CommentSeparator  = "/MySQLSep/"
	CommentTerminator = "/MySQLNewLine/"
)

var reservedTokens = []string{CommentSeparator, CommentTerminator}

// SanitizeCommentField removes every reserved delimiter from s, including
// the partial forms at either edge that would fuse with a neighbouring
// delimiter once encoded. The result round-trips through the comment codec.
func SanitizeCommentField(s string) string {
	for {
		before := s
		for _, token := range reservedTokens {
			s = strings.ReplaceAll(s, token, " ")
			body := strings.Trim(token, "/")
			if strings.HasSuffix(s, "/"+body) {
				s = s[:len(s)-len(body)-1] + " " + body
			}
			if strings.HasPrefix(s, body+"/") {
				s = body + " " + s[len(body)+1:]
			}
		}
		if s == before {
			return s
		}
	}
}
