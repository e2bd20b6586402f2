// internal/ordering/ordering.go
package ordering

import (
	"github.com/google/uuid"

	"github.com/gurkanbulca/kanboard/internal/apperror"
)

// Append is the index value that places an id at the end of a list.
const Append = -1

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []uuid.UUID, id uuid.UUID) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is in list.
func Contains(list []uuid.UUID, id uuid.UUID) bool {
	return IndexOf(list, id) >= 0
}

// Insert returns a copy of list with id placed at index. Append adds it at
// the end; any other index must lie in [0, len(list)].
func Insert(list []uuid.UUID, id uuid.UUID, index int) ([]uuid.UUID, int, error) {
	if Contains(list, id) {
		return nil, 0, apperror.NewValidation("ordering.Insert", "id", "already present in list")
	}
	if index == Append {
		index = len(list)
	}
	if index < 0 || index > len(list) {
		return nil, 0, apperror.New(apperror.KindIndexOutOfRange, "ordering.Insert",
			"index %d outside [0, %d]", index, len(list))
	}
	out := make([]uuid.UUID, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, id)
	out = append(out, list[index:]...)
	return out, index, nil
}

// Remove returns a copy of list without id and the index it occupied.
func Remove(list []uuid.UUID, id uuid.UUID) ([]uuid.UUID, int, error) {
	i := IndexOf(list, id)
	if i < 0 {
		return nil, 0, apperror.New(apperror.KindNotInList, "ordering.Remove", "%s not in list", id)
	}
	out := make([]uuid.UUID, 0, len(list)-1)
	out = append(out, list[:i]...)
	out = append(out, list[i+1:]...)
	return out, i, nil
}

// Reorder moves id to newIndex, clamped to [0, len(list)-1]. It returns the
// new list plus the old and new positions.
func Reorder(list []uuid.UUID, id uuid.UUID, newIndex int) ([]uuid.UUID, int, int, error) {
	rest, from, err := Remove(list, id)
	if err != nil {
		return nil, 0, 0, apperror.New(apperror.KindNotInList, "ordering.Reorder", "%s not in list", id)
	}
	to := clamp(newIndex, 0, len(rest))
	out, _, err := Insert(rest, id, to)
	if err != nil {
		return nil, 0, 0, err
	}
	return out, from, to, nil
}

// MoveIndex resolves a requested move index against a destination of n
// slots: Append and anything past n land at n, other negatives are invalid.
func MoveIndex(index, n int) (int, error) {
	switch {
	case index == Append:
		return n, nil
	case index < 0:
		return 0, apperror.New(apperror.KindIndexOutOfRange, "ordering.MoveIndex", "index %d is negative", index)
	case index > n:
		return n, nil
	}
	return index, nil
}

// Move transfers id from src to dst at index (see MoveIndex). It returns the
// new lists plus the old and new positions.
func Move(src, dst []uuid.UUID, id uuid.UUID, index int) ([]uuid.UUID, []uuid.UUID, int, int, error) {
	newSrc, from, err := Remove(src, id)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	to, err := MoveIndex(index, len(dst))
	if err != nil {
		return nil, nil, 0, 0, err
	}
	newDst, _, err := Insert(dst, id, to)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	return newSrc, newDst, from, to, nil
}

// Duplicates returns the ids that occur more than once in list.
func Duplicates(list []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]int, len(list))
	var dups []uuid.UUID
	for _, id := range list {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
