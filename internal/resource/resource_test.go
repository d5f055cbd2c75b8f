package resource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDate(t *testing.T) {
	assert.Equal(t, "07-03-2024", Date(time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "", Date(time.Time{}))
}

func TestHuman(t *testing.T) {
	now := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)
	Clock = func() time.Time { return now }
	defer func() { Clock = time.Now }()

	assert.Equal(t, "2 hours ago", Human(now.Add(-2*time.Hour)))
	assert.Equal(t, "", Human(time.Time{}))
}

func TestPaginate(t *testing.T) {
	p := Paginate([]int{1, 2}, 2, 50, 101)
	assert.Equal(t, 3, p.Meta.LastPage)
	assert.Equal(t, 2, p.Meta.CurrentPage)

	empty := Paginate[int](nil, 1, 50, 0)
	assert.NotNil(t, empty.Data)
	assert.Equal(t, 1, empty.Meta.LastPage)
}
