package settings

import (
	"errors"
	"regexp"
	"strings"
)

var errUnbalanced = errors.New("unbalanced glob")

// compileGlob turns a forward-slash glob into a regular expression anchored
// at the start of the input. The end is left open so the match is a prefix.
//
// Supported syntax: ** (any characters), * (any characters but /),
// ? (one character but /), {a,b} alternation and [...] character classes.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	if caseInsensitiveFS() {
		b.WriteString("(?i)")
	}

	depth := 0
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '{':
			depth++
			b.WriteString("(?:")
		case '}':
			if depth == 0 {
				return nil, errUnbalanced
			}
			depth--
			b.WriteString(")")
		case ',':
			if depth > 0 {
				b.WriteString("|")
			} else {
				b.WriteString(",")
			}
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				return nil, errUnbalanced
			}
			class := pattern[i+1 : i+1+end]
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			}
			b.WriteString("[")
			b.WriteString(strings.ReplaceAll(class, `\`, `\\`))
			b.WriteString("]")
			i += end + 1
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if depth != 0 {
		return nil, errUnbalanced
	}
	return regexp.Compile(b.String())
}
