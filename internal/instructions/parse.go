// Package instructions reads folding instructions: one line per page listing
// the centimeter offsets of that page's marks.
//
//	# comment
//	1: 2.5, 4, 7.25
//	Page 3: 1.1, 2.2
//	4 3.5, 9
//
// A line without a page number continues from the previous page. The result
// is indexed by page number; pages that are not listed are empty.
package instructions

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"bookfold/internal/marks"
)

// MaxPage bounds the page numbers accepted from a file.
const MaxPage = 5000

// LineError describes a line that was skipped.
type LineError struct {
	Line   int
	Reason string
}

func (e LineError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Reason) }

// Parse converts instruction text to per-page mark strings. Each entry is a
// normalized comma-separated list; malformed numbers are dropped.
func Parse(text string) []string {
	entries, _ := ParseWithErrors(text)
	return entries
}

// ParseWithErrors is Parse that also reports the lines it skipped.
func ParseWithErrors(text string) ([]string, []LineError) {
	var (
		entries []string
		errs    []LineError
		next    = 1
	)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		page, rest, ok := splitPage(line)
		if !ok {
			page = next
		}
		if page < 0 || page > MaxPage {
			errs = append(errs, LineError{Line: lineNo, Reason: fmt.Sprintf("page %d out of range", page)})
			continue
		}
		values := marks.Parse(rest)
		if len(values) == 0 {
			errs = append(errs, LineError{Line: lineNo, Reason: "no measurements"})
			next = page + 1
			continue
		}
		for len(entries) <= page {
			entries = append(entries, "")
		}
		entries[page] = format(values)
		next = page + 1
	}
	return entries, errs
}

// splitPage separates an optional "Page N:" / "N:" / "N " prefix.
func splitPage(line string) (int, string, bool) {
	s := line
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "page"):
		s = strings.TrimSpace(s[len("page"):])
	case strings.HasPrefix(lower, "p") && len(s) > 1 && unicode.IsDigit(rune(s[1])):
		s = s[1:]
	}

	if i := strings.IndexByte(s, ':'); i >= 0 {
		n, err := strconv.Atoi(strings.TrimSpace(s[:i]))
		if err != nil {
			return 0, line, false
		}
		return n, s[i+1:], true
	}
	// "4 3.5, 9": a bare integer followed by whitespace.
	if i := strings.IndexFunc(s, unicode.IsSpace); i > 0 {
		head := s[:i]
		if !strings.ContainsAny(head, ".,") {
			if n, err := strconv.Atoi(head); err == nil {
				return n, s[i:], true
			}
		}
	}
	return 0, line, false
}

func format(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}
