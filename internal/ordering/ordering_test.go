// internal/ordering/ordering_test.go
package ordering

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/kanboard/internal/apperror"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestInsert(t *testing.T) {
	a := ids(3)
	x := uuid.New()

	tests := []struct {
		name    string
		index   int
		want    []uuid.UUID
		wantPos int
		wantErr *apperror.Error
	}{
		{name: "append", index: Append, want: []uuid.UUID{a[0], a[1], a[2], x}, wantPos: 3},
		{name: "front", index: 0, want: []uuid.UUID{x, a[0], a[1], a[2]}, wantPos: 0},
		{name: "at len", index: 3, want: []uuid.UUID{a[0], a[1], a[2], x}, wantPos: 3},
		{name: "middle", index: 1, want: []uuid.UUID{a[0], x, a[1], a[2]}, wantPos: 1},
		{name: "past len", index: 4, wantErr: apperror.IndexOutOfRange},
		{name: "negative", index: -2, wantErr: apperror.IndexOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, pos, err := Insert(a, x, tt.index)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPos, pos)
			assert.Len(t, a, 3, "input must not be modified")
		})
	}
}

func TestInsertDuplicateRejected(t *testing.T) {
	a := ids(2)
	_, _, err := Insert(a, a[1], Append)
	assert.True(t, errors.Is(err, apperror.Validation))
}

func TestInsertIntoEmpty(t *testing.T) {
	x := uuid.New()
	got, pos, err := Insert(nil, x, 0)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{x}, got)
	assert.Equal(t, 0, pos)
}

func TestRemove(t *testing.T) {
	a := ids(3)
	got, pos, err := Remove(a, a[1])
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a[0], a[2]}, got)
	assert.Equal(t, 1, pos)

	got, _, err = Remove([]uuid.UUID{a[0]}, a[0])
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, _, err = Remove(a, uuid.New())
	assert.True(t, errors.Is(err, apperror.NotInList))
}

func TestReorder(t *testing.T) {
	a := ids(3)

	tests := []struct {
		name     string
		id       uuid.UUID
		index    int
		want     []uuid.UUID
		from, to int
	}{
		{name: "last to front", id: a[2], index: 0, want: []uuid.UUID{a[2], a[0], a[1]}, from: 2, to: 0},
		{name: "front to end", id: a[0], index: 2, want: []uuid.UUID{a[1], a[2], a[0]}, from: 0, to: 2},
		{name: "same position", id: a[1], index: 1, want: []uuid.UUID{a[0], a[1], a[2]}, from: 1, to: 1},
		{name: "clamped high", id: a[0], index: 99, want: []uuid.UUID{a[1], a[2], a[0]}, from: 0, to: 2},
		{name: "clamped low", id: a[2], index: -5, want: []uuid.UUID{a[2], a[0], a[1]}, from: 2, to: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, from, to, err := Reorder(a, tt.id, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.from, from)
			assert.Equal(t, tt.to, to)
		})
	}

	_, _, _, err := Reorder(a, uuid.New(), 0)
	assert.True(t, errors.Is(err, apperror.NotInList))
}

func TestMove(t *testing.T) {
	src := ids(2)
	dst := ids(2)

	newSrc, newDst, from, to, err := Move(src, dst, src[0], 99)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{src[1]}, newSrc)
	assert.Equal(t, []uuid.UUID{dst[0], dst[1], src[0]}, newDst)
	assert.Equal(t, 0, from)
	assert.Equal(t, 2, to)

	// moving back to the recorded origin restores both lists
	backDst, backSrc, _, _, err := Move(newDst, newSrc, src[0], from)
	require.NoError(t, err)
	assert.Equal(t, src, backSrc)
	assert.Equal(t, dst, backDst)

	_, _, _, _, err = Move(src, dst, src[0], -3)
	assert.True(t, errors.Is(err, apperror.IndexOutOfRange))

	_, _, _, _, err = Move(src, dst, dst[0], 0)
	assert.True(t, errors.Is(err, apperror.NotInList))
}

func TestMoveIndex(t *testing.T) {
	tests := []struct {
		index, n, want int
		wantErr        bool
	}{
		{index: Append, n: 2, want: 2},
		{index: 0, n: 2, want: 0},
		{index: 2, n: 2, want: 2},
		{index: 99, n: 2, want: 2},
		{index: -2, n: 2, wantErr: true},
	}
	for _, tt := range tests {
		got, err := MoveIndex(tt.index, tt.n)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDuplicates(t *testing.T) {
	a := ids(2)
	assert.Empty(t, Duplicates(a))
	assert.Equal(t, []uuid.UUID{a[0]}, Duplicates([]uuid.UUID{a[0], a[1], a[0], a[0]}))
}
