package queue

import (
	"reflect"
	"testing"
)

func TestSelectionSet_Toggle(t *testing.T) {
	t.Parallel()

	s := NewSelectionSet()
	if !s.Toggle(7) {
		t.Error("first Toggle(7) = false, want true (now selected)")
	}
	if !s.Has(7) {
		t.Error("Has(7) = false after select")
	}
	if s.Toggle(7) {
		t.Error("second Toggle(7) = true, want false (now unselected)")
	}
	if s.Has(7) {
		t.Error("Has(7) = true after unselect")
	}
}

func TestSelectionSet_SelectAllReplaces(t *testing.T) {
	t.Parallel()

	s := NewSelectionSet()
	s.Toggle(1)
	s.Toggle(99)

	s.SelectAll([]int64{3, 1, 2})

	if s.Size() != 3 {
		t.Errorf("Size() = %d, want 3", s.Size())
	}
	if s.Has(99) {
		t.Error("SelectAll must replace the previous selection, 99 still present")
	}
	if got, want := s.IDs(), []int64{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v (ascending)", got, want)
	}
}

func TestSelectionSet_RemoveAndClear(t *testing.T) {
	t.Parallel()

	s := NewSelectionSet()
	s.SelectAll([]int64{1, 2, 3})

	s.Remove(2)
	if s.Size() != 2 || s.Has(2) {
		t.Errorf("after Remove(2): size=%d has=%v, want 2 and false", s.Size(), s.Has(2))
	}

	s.Clear()
	if s.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", s.Size())
	}
	if got := s.IDs(); len(got) != 0 {
		t.Errorf("IDs() after Clear = %v, want empty", got)
	}
}
