package cypher

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\$([a-zA-Z_][a-zA-Z0-9_]*)`)

// Placeholders returns the distinct parameter names referenced in a query
// text, in order of first appearance.
func Placeholders(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, match := range placeholderRe.FindAllStringSubmatch(text, -1) {
		name := match[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// Validate checks a QuerySpec for structural well-formedness before it may
// be executed: balanced pattern delimiters, a MATCH and a RETURN clause, and
// an exact correspondence between placeholders and bound parameters.
func Validate(spec *QuerySpec) error {
	if spec == nil || strings.TrimSpace(spec.Text) == "" {
		return fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}

	upper := strings.ToUpper(spec.Text)
	if !strings.Contains(upper, "MATCH") {
		return fmt.Errorf("%w: missing MATCH clause", ErrInvalidQuery)
	}
	if !strings.Contains(upper, "RETURN") {
		return fmt.Errorf("%w: missing RETURN clause", ErrInvalidQuery)
	}

	if err := checkBalanced(spec.Text); err != nil {
		return err
	}

	placeholders := Placeholders(spec.Text)
	for _, name := range placeholders {
		if _, bound := spec.Parameters[name]; !bound {
			return fmt.Errorf("%w: placeholder $%s is not bound", ErrInvalidQuery, name)
		}
	}
	if len(spec.Parameters) != len(placeholders) {
		return fmt.Errorf("%w: %d parameters bound but %d placeholders referenced",
			ErrInvalidQuery, len(spec.Parameters), len(placeholders))
	}

	return nil
}

func checkBalanced(text string) error {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}

	inString := false
	var quote rune

	for _, ch := range text {
		if inString {
			if ch == quote {
				inString = false
			}
			continue
		}
		switch ch {
		case '\'', '"':
			inString = true
			quote = ch
		case '(', '[', '{':
			stack = append(stack, ch)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
				return fmt.Errorf("%w: unbalanced %q", ErrInvalidQuery, string(ch))
			}
			stack = stack[:len(stack)-1]
		}
	}

	if inString {
		return fmt.Errorf("%w: unterminated string literal", ErrInvalidQuery)
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: unclosed %q", ErrInvalidQuery, string(stack[len(stack)-1]))
	}
	return nil
}
