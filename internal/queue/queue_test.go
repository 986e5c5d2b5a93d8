package queue

import "testing"

// --- Queue Tests ---

func TestPopOrderByLevel(t *testing.T) {
	q := New(3)
	q.Push("https://a.in/archive", 3, 0, "")
	q.Push("https://a.in/about", 2, 0, "")
	q.Push("https://a.in/prices", 0, 0, "")
	q.Push("https://a.in/daily", 1, 0, "")

	var levels []int
	for !q.IsEmpty() {
		levels = append(levels, q.Pop().Level)
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] < levels[i-1] {
			t.Fatalf("pop levels not non-decreasing: %v", levels)
		}
	}
}

func TestFIFOWithinLevel(t *testing.T) {
	q := New(3)
	q.Push("https://a.in/one", 2, 0, "")
	q.Push("https://a.in/two", 2, 0, "")
	q.Push("https://a.in/three", 2, 0, "")

	want := []string{"https://a.in/one", "https://a.in/two", "https://a.in/three"}
	for _, w := range want {
		got := q.Pop()
		if got == nil || got.URL != w {
			t.Fatalf("Pop() = %v, want %s", got, w)
		}
	}
}

func TestDuplicateRejected(t *testing.T) {
	q := New(3)
	if !q.Push("https://a.in/x", 2, 0, "") {
		t.Fatal("first push rejected")
	}
	if q.Push("https://a.in/x", 0, 0, "") {
		t.Error("duplicate push at better level should be rejected")
	}
	if q.Size() != 1 {
		t.Errorf("Size() = %d, want 1", q.Size())
	}
}

func TestDepthCapRejected(t *testing.T) {
	q := New(2)
	if q.Push("https://a.in/deep", 0, 3, "") {
		t.Error("push beyond depth cap accepted")
	}
	if q.IsSeen("https://a.in/deep") {
		t.Error("rejected URL marked seen")
	}
}

func TestLevelClamp(t *testing.T) {
	q := New(3)
	q.Push("https://a.in/neg", -1, 0, "")
	q.Push("https://a.in/big", 7, 0, "")

	first := q.Pop()
	if first.Level != 0 {
		t.Errorf("clamped low level = %d, want 0", first.Level)
	}
	second := q.Pop()
	if second.Level != 3 {
		t.Errorf("clamped high level = %d, want 3", second.Level)
	}
}

func TestPopEmptyReturnsNil(t *testing.T) {
	q := New(3)
	if q.Pop() != nil {
		t.Error("Pop() on empty queue should be nil")
	}
}

func TestMarkSeenBlocksPush(t *testing.T) {
	q := New(3)
	q.MarkSeen("https://a.in/seen")
	if q.Push("https://a.in/seen", 0, 0, "") {
		t.Error("push of marked-seen URL accepted")
	}
}

func TestStats(t *testing.T) {
	q := New(3)
	q.Push("https://a.in/p", 0, 0, "")
	q.Push("https://a.in/q", 2, 1, "https://a.in/p")
	q.Pop()

	s := q.Stats()
	if s.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", s.Remaining)
	}
	if s.TotalSeen != 2 {
		t.Errorf("TotalSeen = %d, want 2", s.TotalSeen)
	}
	if s.LevelCounts[0] != 1 || s.LevelCounts[2] != 1 {
		t.Errorf("LevelCounts = %v", s.LevelCounts)
	}
}

func TestItemCarriesProvenance(t *testing.T) {
	q := New(3)
	q.Push("https://a.in/child", 1, 2, "https://a.in/parent")
	it := q.Pop()
	if it.Depth != 2 || it.ParentURL != "https://a.in/parent" {
		t.Errorf("item = %+v", it)
	}
}
