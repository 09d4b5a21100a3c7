package navigation

import "testing"

func TestNextWrapsAndLeavesShowAll(t *testing.T) {
	m := Marks{ShowAll: true, Current: 2}
	if status := m.Next(3); status != StatusCycling {
		t.Fatalf("status = %q", status)
	}
	if m.Current != 0 || m.ShowAll {
		t.Fatalf("state = %+v, want {false 0}", m)
	}
	if status := m.Next(3); status != "" || m.Current != 1 {
		t.Fatalf("state = %+v status %q", m, status)
	}
}

func TestPrevWrapsToEnd(t *testing.T) {
	m := Initial()
	m.Prev(4)
	if m.Current != 3 || !m.ShowAll {
		t.Fatalf("state = %+v", m)
	}
}

func TestToggleAllKeepsIndex(t *testing.T) {
	m := Marks{ShowAll: false, Current: 2}
	m.ToggleAll()
	if !m.ShowAll || m.Current != 2 {
		t.Fatalf("state = %+v", m)
	}
}

func TestEmptyMarkList(t *testing.T) {
	m := Marks{Current: 5}
	if m.Next(0) != StatusNoMarks || m.Current != 0 {
		t.Fatalf("state = %+v", m)
	}
	m.Current = 5
	if m.Prev(0) != StatusNoMarks || m.Current != 0 {
		t.Fatalf("state = %+v", m)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		current, n, want int
	}{
		{current: 7, n: 3, want: 2},
		{current: -1, n: 3, want: 0},
		{current: 1, n: 3, want: 1},
		{current: 4, n: 0, want: 0},
	}
	for _, tt := range tests {
		m := Marks{Current: tt.current}
		m.Clamp(tt.n)
		if m.Current != tt.want {
			t.Errorf("Clamp(%d) from %d = %d, want %d", tt.n, tt.current, m.Current, tt.want)
		}
	}
}

func TestResetAndDescribe(t *testing.T) {
	m := Marks{Current: 1}
	if got := m.Describe([]float64{2, 4.5}); got != "Mark 2 of 2: 4.5 cm" {
		t.Fatalf("describe = %q", got)
	}
	m.Reset()
	if m != Initial() {
		t.Fatalf("reset gave %+v", m)
	}
	if got := m.Describe([]float64{1, 2}); got != "Showing all 2 marks" {
		t.Fatalf("describe = %q", got)
	}
}

func TestPageNavigationSkipsEmpty(t *testing.T) {
	entries := []string{"", "1,2", "", " ", "3"}
	next, ok, _ := NextPage(entries, 1)
	if !ok || next != 4 {
		t.Fatalf("next = %d ok=%v", next, ok)
	}
	prev, ok, _ := PrevPage(entries, 4)
	if !ok || prev != 1 {
		t.Fatalf("prev = %d ok=%v", prev, ok)
	}
}

func TestPageBoundaryIsNoOp(t *testing.T) {
	entries := []string{"", "1,2", "", "3"}
	got, ok, status := PrevPage(entries, 1)
	if ok || got != 1 || status != StatusFirstPage {
		t.Fatalf("prev at first = %d %v %q", got, ok, status)
	}
	got, ok, status = NextPage(entries, 3)
	if ok || got != 3 || status != StatusLastPage {
		t.Fatalf("next at last = %d %v %q", got, ok, status)
	}
}

func TestFirstWithMarksAndNearest(t *testing.T) {
	if got := FirstWithMarks([]string{"", "", "5"}); got != 2 {
		t.Fatalf("first = %d", got)
	}
	if got := FirstWithMarks(nil); got != 0 {
		t.Fatalf("first of none = %d", got)
	}
	entries := []string{"", "1", "", "2"}
	if got := Nearest(entries, 3); got != 3 {
		t.Fatalf("nearest keeps valid page, got %d", got)
	}
	if got := Nearest(entries, 2); got != 1 {
		t.Fatalf("nearest = %d, want 1", got)
	}
	if got := Nearest(entries, 10); got != 1 {
		t.Fatalf("nearest out of range = %d, want 1", got)
	}
}
