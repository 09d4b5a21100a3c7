package navigation

import "strings"

// HasMarks reports whether an instruction entry contains anything.
func HasMarks(entry string) bool { return strings.TrimSpace(entry) != "" }

// NextPage returns the next index after current whose entry is non-empty.
// At the last such page it returns current, false and a boundary status.
func NextPage(entries []string, current int) (int, bool, string) {
	for i := current + 1; i < len(entries); i++ {
		if HasMarks(entries[i]) {
			return i, true, ""
		}
	}
	return current, false, StatusLastPage
}

// PrevPage returns the previous index before current whose entry is non-empty.
func PrevPage(entries []string, current int) (int, bool, string) {
	if current > len(entries) {
		current = len(entries)
	}
	for i := current - 1; i >= 0; i-- {
		if HasMarks(entries[i]) {
			return i, true, ""
		}
	}
	return current, false, StatusFirstPage
}

// FirstWithMarks returns the first index with a non-empty entry, or 0.
func FirstWithMarks(entries []string) int {
	for i, e := range entries {
		if HasMarks(e) {
			return i
		}
	}
	return 0
}

// Nearest returns current when its entry is non-empty, else the first page
// with marks, else 0.
func Nearest(entries []string, current int) int {
	if current >= 0 && current < len(entries) && HasMarks(entries[current]) {
		return current
	}
	return FirstWithMarks(entries)
}
