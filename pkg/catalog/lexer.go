package catalog

import (
	"bufio"
	"io"
	"strings"
)

// sqlValue is one literal of an INSERT tuple.
type sqlValue struct {
	text string
	null bool
}

// statementScanner yields one SQL statement at a time with comments already
// stripped. It is quote-aware: separators and comment openers inside string
// literals are plain data.
type statementScanner struct {
	r   *bufio.Reader
	buf strings.Builder
}

func newStatementScanner(r io.Reader) *statementScanner {
	return &statementScanner{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next non-empty statement, or io.EOF.
func (s *statementScanner) Next() (string, error) {
	s.buf.Reset()
	var quote byte // active string delimiter, 0 when outside literals

	for {
		b, err := s.r.ReadByte()
		if err == io.EOF {
			stmt := strings.TrimSpace(s.buf.String())
			if stmt != "" {
				s.buf.Reset()
				return stmt, nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}

		if quote != 0 {
			s.buf.WriteByte(b)
			if b == '\\' {
				// Escaped char inside literal, consume blindly.
				if nb, err := s.r.ReadByte(); err == nil {
					s.buf.WriteByte(nb)
				}
				continue
			}
			if b == quote {
				// Doubled quote ('') is an escape, not a terminator.
				if peek, err := s.r.Peek(1); err == nil && peek[0] == quote {
					nb, _ := s.r.ReadByte()
					s.buf.WriteByte(nb)
					continue
				}
				quote = 0
			}
			continue
		}

		switch b {
		case '\'', '"':
			quote = b
			s.buf.WriteByte(b)
		case ';':
			stmt := strings.TrimSpace(s.buf.String())
			s.buf.Reset()
			if stmt != "" {
				return stmt, nil
			}
		case '-':
			if peek, err := s.r.Peek(1); err == nil && peek[0] == '-' {
				s.skipLine()
				s.buf.WriteByte(' ')
				continue
			}
			s.buf.WriteByte(b)
		case '#':
			s.skipLine()
			s.buf.WriteByte(' ')
		case '/':
			if peek, err := s.r.Peek(1); err == nil && peek[0] == '*' {
				s.skipBlockComment()
				s.buf.WriteByte(' ')
				continue
			}
			s.buf.WriteByte(b)
		default:
			s.buf.WriteByte(b)
		}
	}
}

func (s *statementScanner) skipLine() {
	for {
		b, err := s.r.ReadByte()
		if err != nil || b == '\n' {
			return
		}
	}
}

// skipBlockComment consumes through the matching "*/". MySQL conditional
// comments (/*!40101 ... */) are dropped wholesale; dumps guard only
// session settings with them, never data.
func (s *statementScanner) skipBlockComment() {
	s.r.ReadByte() // the '*'
	var prev byte
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return
		}
		if prev == '*' && b == '/' {
			return
		}
		prev = b
	}
}

// splitTopLevel splits on commas that sit outside parentheses and string
// literals, so nested delimiters inside values never corrupt the split.
func splitTopLevel(s string) []string {
	var parts []string
	var depth int
	var quote byte
	start := 0

	for i := 0; i < len(s); i++ {
		b := s[i]
		if quote != 0 {
			if b == '\\' {
				i++
				continue
			}
			if b == quote {
				if i+1 < len(s) && s[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch b {
		case '\'', '"', '`':
			quote = b
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if strings.TrimSpace(s[start:]) != "" {
		parts = append(parts, s[start:])
	}
	return parts
}

// indexWordOutsideQuotes finds a keyword outside string literals and parens,
// case-insensitively.
func indexWordOutsideQuotes(s, word string) int {
	upper := strings.ToUpper(s)
	word = strings.ToUpper(word)
	var quote byte
	var depth int
	for i := 0; i < len(s); i++ {
		b := s[i]
		if quote != 0 {
			if b == '\\' {
				i++
			} else if b == quote {
				quote = 0
			}
			continue
		}
		switch b {
		case '\'', '"', '`':
			quote = b
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth == 0 && strings.HasPrefix(upper[i:], word) {
				return i
			}
		}
	}
	return -1
}

// parseTuples reads "(v, v, ...), (v, v, ...)" and returns one value slice
// per tuple. ok is false when the trailing tuple is unterminated; complete
// tuples before the corruption are still returned so one bad row never
// poisons its neighbours.
func parseTuples(s string) ([][]sqlValue, bool) {
	var tuples [][]sqlValue
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == ',') {
			i++
		}
		if i >= len(s) {
			break
		}
		if s[i] != '(' {
			return tuples, false
		}
		values, next, ok := parseTuple(s, i+1)
		if !ok {
			return tuples, false
		}
		tuples = append(tuples, values)
		i = next
	}
	return tuples, true
}

// parseTuple parses one parenthesized value list starting just after '('.
// Returns the values, the index past the closing ')', and ok.
func parseTuple(s string, i int) ([]sqlValue, int, bool) {
	var values []sqlValue
	var cur strings.Builder
	var quote byte
	quoted := false

	flush := func() {
		raw := strings.TrimSpace(cur.String())
		cur.Reset()
		if !quoted && strings.EqualFold(raw, "NULL") {
			values = append(values, sqlValue{null: true})
		} else {
			values = append(values, sqlValue{text: raw})
		}
		quoted = false
	}

	for {
		if i >= len(s) {
			return nil, i, false
		}
		b := s[i]
		if quote != 0 {
			switch {
			case b == '\\' && i+1 < len(s):
				cur.WriteByte(unescape(s[i+1]))
				i += 2
			case b == quote && i+1 < len(s) && s[i+1] == quote:
				cur.WriteByte(quote)
				i += 2
			case b == quote:
				quote = 0
				i++
			default:
				cur.WriteByte(b)
				i++
			}
			continue
		}
		switch b {
		case '\'', '"':
			quote = b
			quoted = true
			i++
		case ',':
			flush()
			i++
		case ')':
			flush()
			return values, i + 1, true
		default:
			cur.WriteByte(b)
			i++
		}
	}
}

func unescape(b byte) byte {
	switch b {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return b
	}
}
