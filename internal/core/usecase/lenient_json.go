package usecase

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

var errNotObject = errors.New("span is not an object")

// parseYAMLFlowObject reads the span as a YAML flow mapping, which already
// accepts unquoted keys, single-quoted strings and trailing commas.
func parseYAMLFlowObject(span string) (map[string]any, error) {
	if !strings.HasPrefix(span, "{") {
		return nil, errNotObject
	}
	var fields map[string]any
	if err := yaml.Unmarshal([]byte(span), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errNotObject
	}
	return normalizeKeys(fields), nil
}

func parseRepairedObject(span string) (map[string]any, error) {
	if !strings.HasPrefix(span, "{") {
		return nil, errNotObject
	}
	return parseStrictObject(repairJSON(span))
}

// repairJSON rewrites near-JSON into JSON. It quotes bare keys and bare
// words, converts single-quoted strings, escapes stray inner quotes, drops
// trailing commas and closes whatever is left open at the end of input.
func repairJSON(src string) string {
	runes := []rune(src)
	var out strings.Builder
	out.Grow(len(src) + 16)

	var closers []rune
	expectKey := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			i = copyString(runes, i, &out)
			expectKey = false
		case r == '{':
			out.WriteRune(r)
			closers = append(closers, '}')
			expectKey = true
		case r == '[':
			out.WriteRune(r)
			closers = append(closers, ']')
			expectKey = false
		case r == '}' || r == ']':
			trimTrailingComma(&out)
			if len(closers) > 0 {
				closers = closers[:len(closers)-1]
			}
			out.WriteRune(r)
			expectKey = false
		case r == ',':
			next := skipSpace(runes, i+1)
			if next >= len(runes) || runes[next] == '}' || runes[next] == ']' {
				continue
			}
			out.WriteRune(r)
			expectKey = len(closers) > 0 && closers[len(closers)-1] == '}'
		case r == ':':
			out.WriteRune(r)
			expectKey = false
		case unicode.IsSpace(r):
			out.WriteRune(r)
		case expectKey && isIdentStart(r):
			end := i
			for end < len(runes) && isIdentPart(runes[end]) {
				end++
			}
			out.WriteString(quote(string(runes[i:end])))
			i = end - 1
			expectKey = false
		case isIdentStart(r):
			end := bareValueEnd(runes, i)
			out.WriteString(bareValue(strings.TrimSpace(string(runes[i:end]))))
			i = end - 1
		default:
			out.WriteRune(r)
		}
	}

	trimTrailingComma(&out)
	if strings.HasSuffix(strings.TrimRightFunc(out.String(), unicode.IsSpace), ":") {
		out.WriteString("null")
	}
	for j := len(closers) - 1; j >= 0; j-- {
		out.WriteRune(closers[j])
	}
	return out.String()
}

// copyString writes the string literal starting at runes[start] as a JSON
// string and returns the index of its last consumed rune.
func copyString(runes []rune, start int, out *strings.Builder) int {
	delim := runes[start]
	out.WriteRune('"')
	i := start + 1
	for ; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\':
			if i+1 >= len(runes) {
				out.WriteString(`\\`)
				continue
			}
			next := runes[i+1]
			switch {
			case next == '\'':
				out.WriteRune('\'')
			case strings.ContainsRune(`"\/bfnrtu`, next):
				out.WriteRune('\\')
				out.WriteRune(next)
			default:
				out.WriteString(`\\`)
				out.WriteRune(next)
			}
			i++
		case r == delim:
			if closesString(runes, i) {
				out.WriteRune('"')
				return i
			}
			if delim == '"' {
				out.WriteString(`\"`)
			} else {
				out.WriteRune(r)
			}
		case r == '"':
			out.WriteString(`\"`)
		case r == '\n':
			out.WriteString(`\n`)
		case r == '\t':
			out.WriteString(`\t`)
		case r < 0x20:
			out.WriteRune(' ')
		default:
			out.WriteRune(r)
		}
	}
	out.WriteRune('"')
	return i
}

// closesString decides whether a delimiter ends the literal or is a stray
// quote inside it, by looking at what follows.
func closesString(runes []rune, i int) bool {
	j := skipSpace(runes, i+1)
	if j >= len(runes) {
		return true
	}
	switch runes[j] {
	case '}', ']', ':':
		return true
	case ',':
		k := skipSpace(runes, j+1)
		if k >= len(runes) {
			return true
		}
		next := runes[k]
		if next == '"' || next == '\'' || next == '}' || next == ']' || next == '{' || next == '[' {
			return true
		}
		if isIdentStart(next) {
			end := k
			for end < len(runes) && isIdentPart(runes[end]) {
				end++
			}
			end = skipSpace(runes, end)
			return end < len(runes) && runes[end] == ':'
		}
		return unicode.IsDigit(next) || next == '-'
	default:
		return false
	}
}

func bareValueEnd(runes []rune, start int) int {
	i := start
	for i < len(runes) && runes[i] != ',' && runes[i] != '}' && runes[i] != ']' {
		i++
	}
	return i
}

func bareValue(word string) string {
	switch word {
	case "true", "True", "TRUE":
		return "true"
	case "false", "False", "FALSE":
		return "false"
	case "null", "None", "nil", "NULL":
		return "null"
	}
	return quote(word)
}

func quote(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(encoded)
}

func trimTrailingComma(out *strings.Builder) {
	current := out.String()
	trimmed := strings.TrimRightFunc(current, unicode.IsSpace)
	if !strings.HasSuffix(trimmed, ",") {
		return
	}
	trimmed = strings.TrimSuffix(trimmed, ",")
	out.Reset()
	out.WriteString(trimmed)
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || r == '-'
}
