package bundle

import (
	"strconv"
	"strings"

	"mxc/report"
)

// Entry is a key/value pair of a properties file.
type Entry struct {
	Key, Value string

	// Line is the line the entry starts on.
	Line int
}

// Position returns the position of the entry's key.
func (e *Entry) Position() *report.TextPosition {
	return &report.TextPosition{StartLn: e.Line, EndLn: e.Line, EndCol: len(e.Key)}
}

// ParseProperties parses the text of a properties file.  Lines starting with
// `#` or `!` are comments; a key ends at the first unescaped `=`, `:` or
// whitespace; a line ending in an odd number of backslashes continues on the
// next line.  Entries are returned in file order, duplicates included.
func ParseProperties(text string) ([]*Entry, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var entries []*Entry
	for i := 0; i < len(lines); i++ {
		start := i + 1

		line := strings.TrimLeft(lines[i], " \t\f")
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}

		logical := line
		for continues(logical) && i+1 < len(lines) {
			i++
			logical = logical[:len(logical)-1] + strings.TrimLeft(lines[i], " \t\f")
		}

		if continues(logical) {
			logical = logical[:len(logical)-1]
		}

		rawKey, rawValue := splitEntry(logical)

		key, err := unescape(rawKey, start)
		if err != nil {
			return nil, err
		}

		value, err := unescape(rawValue, start)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &Entry{Key: key, Value: value, Line: start})
	}

	return entries, nil
}

// continues returns whether a line ends in an unescaped backslash.
func continues(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}

	return n%2 == 1
}

// splitEntry splits a logical line into its raw key and raw value.
func splitEntry(line string) (string, string) {
	end := len(line)
	for i := 0; i < len(line); i++ {
		if line[i] == '\\' {
			i++
			continue
		}

		if strings.IndexByte("=: \t\f", line[i]) >= 0 {
			end = i
			break
		}
	}

	key, rest := line[:end], line[end:]

	// the separator is optional whitespace around at most one `=` or `:`
	rest = strings.TrimLeft(rest, " \t\f")
	if rest != "" && (rest[0] == '=' || rest[0] == ':') {
		rest = strings.TrimLeft(rest[1:], " \t\f")
	}

	return key, rest
}

// unescape processes the escape sequences of a key or value.
func unescape(s string, line int) (string, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}

		i++
		switch s[i] {
		case 't':
			sb.WriteByte('\t')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 'f':
			sb.WriteByte('\f')
		case 'u':
			if i+5 > len(s) {
				return "", report.Raise(report.MKSyntax, &report.TextPosition{StartLn: line, EndLn: line}, "malformed \\u escape")
			}

			r, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
			if err != nil {
				return "", report.Raise(report.MKSyntax, &report.TextPosition{StartLn: line, EndLn: line}, "malformed \\u escape `\\u%s`", s[i+1:i+5])
			}

			sb.WriteRune(rune(r))
			i += 4
		default:
			sb.WriteByte(s[i])
		}
	}

	return sb.String(), nil
}
