package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", CodeOf(ErrNotFound))
	assert.Equal(t, "NOT_FOUND", CodeOf(fmt.Errorf("load batch: %w", ErrNotFound)))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	d := DateOf(time.Date(2024, 6, 15, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), d)

	assert.Nil(t, DatePtr(nil))
	a := time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC)
	b := time.Date(2024, 6, 15, 22, 0, 0, 0, time.UTC)
	assert.True(t, SameDate(&a, &b))
	assert.True(t, SameDate(nil, nil))
	assert.False(t, SameDate(&a, nil))
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{OrderDir: "sideways"}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.PageSize)
	assert.Equal(t, "created_at", f.OrderBy)
	assert.Equal(t, "desc", f.OrderDir)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 10, OrderDir: "asc"}.Normalize()
	assert.Equal(t, 20, f.Offset())
	assert.Equal(t, "asc", f.OrderDir)
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2}, 21, 1, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 0, NewPaginated[int](nil, 5, 1, 0).TotalPages)
}
