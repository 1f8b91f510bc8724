package rewriter

import (
	"fmt"
	"strings"

	"github.com/starford/schemasync/internal/apperr"
)

// scanner walks PHP-ish source text, skipping string literals, heredocs and
// comments, so that markers and delimiters are only recognised in code.
type scanner struct {
	src string
}

// nextMarker returns the offset of the next occurrence of marker at or after
// from that sits in code and is not part of a longer identifier.
// It returns -1 when there is none.
func (s *scanner) nextMarker(from int, marker string) int {
	i := from
	for i < len(s.src) {
		if next, what, found := s.skip(i); found {
			if what != "" {
				return -1
			}
			i = next
			continue
		}
		if strings.HasPrefix(s.src[i:], marker) && s.boundaryAt(i, i+len(marker)) {
			return i
		}
		i++
	}
	return -1
}

// call scans a marker call whose name ends at offset i. It reports the end
// of the statement (just past the terminating semicolon), whether the
// argument list holds a definition block, and whether a call was present at
// all.
func (s *scanner) call(i int) (end int, hasBlock, isCall bool, err error) {
	j := s.skipSpace(i)
	if j >= len(s.src) || s.src[j] != '(' {
		return i, false, false, nil
	}

	stack := []byte{')'}
	for j++; j < len(s.src); {
		if next, what, found := s.skip(j); found {
			if what != "" {
				return 0, false, true, fmt.Errorf("%w: unterminated %s at offset %d", apperr.ErrMalformedConstruct, what, j)
			}
			j = next
			continue
		}
		switch c := s.src[j]; c {
		case '(':
			stack = append(stack, ')')
		case '[':
			stack = append(stack, ']')
		case '{':
			if len(stack) == 1 {
				hasBlock = true
			}
			stack = append(stack, '}')
		case ')', ']', '}':
			if top := stack[len(stack)-1]; top != c {
				return 0, false, true, fmt.Errorf("%w: unexpected %q at offset %d, want %q", apperr.ErrMalformedConstruct, c, j, top)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				k := s.skipSpace(j + 1)
				if k >= len(s.src) || s.src[k] != ';' {
					return 0, false, true, fmt.Errorf("%w: missing ';' after offset %d", apperr.ErrMalformedConstruct, j)
				}
				return k + 1, hasBlock, true, nil
			}
		}
		j++
	}
	return 0, false, true, fmt.Errorf("%w: %d unclosed delimiter(s) at end of input", apperr.ErrMalformedConstruct, len(stack))
}

// skip reports whether a literal or comment opens at i. When one does, next
// is the offset just past it; unterminated names what was left open.
func (s *scanner) skip(i int) (next int, unterminated string, found bool) {
	switch c := s.src[i]; {
	case c == '\'' || c == '"' || c == '`':
		if next, ok := s.skipString(i); ok {
			return next, "", true
		}
		return len(s.src), "string", true
	case strings.HasPrefix(s.src[i:], "<<<"):
		next, ok, isDoc := s.skipHeredoc(i)
		if !isDoc {
			return 0, "", false
		}
		if ok {
			return next, "", true
		}
		return len(s.src), "heredoc", true
	case s.isCommentStart(i):
		if next, ok := s.skipComment(i); ok {
			return next, "", true
		}
		return len(s.src), "comment", true
	}
	return 0, "", false
}

// skipString returns the offset just past the string literal opening at i.
func (s *scanner) skipString(i int) (int, bool) {
	quote := s.src[i]
	for j := i + 1; j < len(s.src); j++ {
		switch s.src[j] {
		case '\\':
			j++
		case quote:
			return j + 1, true
		}
	}
	return len(s.src), false
}

// skipHeredoc handles <<<ID, <<<"ID" and <<<'ID' (nowdoc). The closing
// identifier may be indented and must not be followed by an identifier
// character. isDoc is false when i does not open a heredoc.
func (s *scanner) skipHeredoc(i int) (next int, ok, isDoc bool) {
	j := i + 3
	for j < len(s.src) && (s.src[j] == ' ' || s.src[j] == '\t') {
		j++
	}
	var quote byte
	if j < len(s.src) && (s.src[j] == '\'' || s.src[j] == '"') {
		quote = s.src[j]
		j++
	}
	start := j
	for j < len(s.src) && isIdent(s.src[j]) && s.src[j] != '$' {
		j++
	}
	id := s.src[start:j]
	if id == "" || ('0' <= id[0] && id[0] <= '9') {
		return 0, false, false
	}
	if quote != 0 {
		if j >= len(s.src) || s.src[j] != quote {
			return 0, false, false
		}
		j++
	}
	if j < len(s.src) && s.src[j] == '\r' {
		j++
	}
	if j >= len(s.src) || s.src[j] != '\n' {
		return 0, false, false
	}

	for line := j + 1; line < len(s.src); {
		k := line
		for k < len(s.src) && (s.src[k] == ' ' || s.src[k] == '\t') {
			k++
		}
		if strings.HasPrefix(s.src[k:], id) {
			end := k + len(id)
			if end >= len(s.src) || !isIdent(s.src[end]) {
				return end, true, true
			}
		}
		nl := strings.IndexByte(s.src[line:], '\n')
		if nl < 0 {
			break
		}
		line += nl + 1
	}
	return len(s.src), false, true
}

func (s *scanner) isCommentStart(i int) bool {
	switch s.src[i] {
	case '#':
		// #[...] is an attribute, not a comment.
		return i+1 >= len(s.src) || s.src[i+1] != '['
	case '/':
		return i+1 < len(s.src) && (s.src[i+1] == '/' || s.src[i+1] == '*')
	}
	return false
}

// skipComment returns the offset just past the comment opening at i.
// Line comments may run to end of input; block comments must be closed.
func (s *scanner) skipComment(i int) (int, bool) {
	if strings.HasPrefix(s.src[i:], "/*") {
		idx := strings.Index(s.src[i+2:], "*/")
		if idx < 0 {
			return len(s.src), false
		}
		return i + 2 + idx + 2, true
	}
	idx := strings.IndexByte(s.src[i:], '\n')
	if idx < 0 {
		return len(s.src), true
	}
	return i + idx + 1, true
}

func (s *scanner) skipSpace(i int) int {
	for i < len(s.src) && isSpace(s.src[i]) {
		i++
	}
	return i
}

// boundaryAt reports whether src[start:end] is not glued to identifier
// characters on either side.
func (s *scanner) boundaryAt(start, end int) bool {
	if start > 0 && isIdent(s.src[start-1]) {
		return false
	}
	return end >= len(s.src) || !isIdent(s.src[end])
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
