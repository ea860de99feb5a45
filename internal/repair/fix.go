package repair

import (
	"encoding/json"
	"strings"
)

// maxCommaCuts bounds how many trailing items the repair strategy discards
// while looking for a decodable prefix.
const maxCommaCuts = 30

// sanitize applies the textual fixes needed to turn near-JSON into JSON in a
// single string-aware pass: comments are dropped, single-quoted strings become
// double-quoted, raw control characters inside strings become spaces, trailing
// and duplicate commas are removed, missing commas between adjacent values are
// inserted and bare object keys are quoted.
func sanitize(s string) string {
	out := make([]byte, 0, len(s)+16)

	var (
		inStr    bool
		quote    byte
		last     byte // last significant byte written outside strings
		lastComa = -1 // position in out of the last comma written
	)

	valueEnded := func() bool {
		return last == '}' || last == ']' || last == '"' || last == 'v'
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inStr {
			switch {
			case c == '\\':
				if i+1 >= len(s) {
					continue
				}
				next := s[i+1]
				i++
				if next == '\'' {
					out = append(out, '\'')
					continue
				}
				out = append(out, '\\', next)
			case c == quote:
				out = append(out, '"')
				inStr = false
				last = '"'
			case c == '"':
				out = append(out, '\\', '"')
			case c < 0x20:
				out = append(out, ' ')
			default:
				out = append(out, c)
			}
			continue
		}

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			out = append(out, c)

		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			i--

		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end == -1 {
				i = len(s)
			} else {
				i += end + 3
			}

		case c == '"' || c == '\'':
			if valueEnded() {
				out = append(out, ',')
			}
			out = append(out, '"')
			inStr, quote = true, c

		case c == '{' || c == '[':
			if valueEnded() {
				out = append(out, ',')
			}
			out = append(out, c)
			last = c

		case c == '}' || c == ']':
			if last == ',' && lastComa >= 0 {
				out = append(out[:lastComa], out[lastComa+1:]...)
			}
			out = append(out, c)
			last = c

		case c == ',':
			switch last {
			case 0, ',', '{', '[':
				continue
			case ':':
				out = append(out, "null"...)
			}
			lastComa = len(out)
			out = append(out, ',')
			last = ','

		case c == ':':
			out = append(out, ':')
			last = ':'

		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			word := s[i:j]
			i = j - 1

			if valueEnded() {
				out = append(out, ',')
			}
			if nextSignificant(s, j) == ':' && !isNumeric(word) {
				out = append(out, '"')
				out = append(out, word...)
				out = append(out, '"')
				last = '"'
				continue
			}
			out = append(out, literal(word)...)
			last = 'v'

		default:
			out = append(out, c)
		}
	}

	// An unterminated literal is left open for closeOpen.
	return string(out)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '-' || c == '+' || c == '.' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isNumeric(word string) bool {
	c := word[0]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func nextSignificant(s string, from int) byte {
	for i := from; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return s[i]
	}
	return 0
}

// literal maps bare words to JSON literals. Words that are not numbers or
// known constants are quoted so prose left between values stays decodable.
func literal(word string) string {
	switch strings.ToLower(word) {
	case "true":
		return "true"
	case "false":
		return "false"
	case "null", "none", "nil", "undefined":
		return "null"
	}
	if isNumeric(word) {
		return word
	}
	return `"` + word + `"`
}

// repairCandidate sanitizes s, closes whatever is left open and decodes it.
// When the repaired text still fails it drops trailing items one comma at a
// time, keeping the longest decodable prefix.
func repairCandidate(s string) ([]json.RawMessage, bool) {
	fixed := sanitize(s)
	if qs, ok := decodePayload(closeOpen(fixed)); ok {
		return qs, true
	}

	commas := commaPositions(fixed)
	for n := 0; n < maxCommaCuts && n < len(commas); n++ {
		cut := commas[len(commas)-1-n]
		if qs, ok := decodePayload(closeOpen(fixed[:cut])); ok {
			return qs, true
		}
	}
	return nil, false
}
