package hashset

import (
	"slices"
	"testing"
)

func TestSetOperations(t *testing.T) {
	s := New[string]()
	if s.Len() != 0 {
		t.Fatalf("expected empty set, got len %d", s.Len())
	}

	s.Add("a")
	s.Add("b")
	s.Add("a") // duplicate
	if s.Len() != 2 {
		t.Errorf("expected len 2, got %d", s.Len())
	}
	if !s.Has("a") || !s.Has("b") {
		t.Error("expected a and b to be members")
	}

	s.Delete("a")
	if s.Has("a") {
		t.Error("expected a to be removed")
	}
	s.Delete("missing")
	if s.Len() != 1 {
		t.Errorf("expected len 1, got %d", s.Len())
	}
}

func TestFromSliceAndAsSlice(t *testing.T) {
	s := FromSlice([]int{3, 1, 3, 2})
	if s.Len() != 3 {
		t.Fatalf("expected 3 distinct members, got %d", s.Len())
	}

	out := s.AsSlice()
	slices.Sort(out)
	if !slices.Equal(out, []int{1, 2, 3}) {
		t.Errorf("expected [1 2 3], got %v", out)
	}
}
