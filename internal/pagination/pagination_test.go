package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		page       int
		perPage    int
		wantNumber int
		wantPages  int
		wantOffset int
		hasPrev    bool
		hasNext    bool
	}{
		{"first page", 20, 1, 9, 1, 3, 0, false, true},
		{"middle page", 20, 2, 9, 2, 3, 9, true, true},
		{"last page", 20, 3, 9, 3, 3, 18, true, false},
		{"beyond last clamps", 20, 99, 9, 3, 3, 18, true, false},
		{"zero clamps to first", 20, 0, 9, 1, 3, 0, false, true},
		{"negative clamps to first", 20, -4, 12, 1, 2, 0, false, true},
		{"empty listing has one page", 0, 5, 12, 1, 1, 0, false, false},
		{"exact multiple", 24, 2, 12, 2, 2, 12, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(tt.total, tt.page, tt.perPage)
			assert.Equal(t, tt.wantNumber, p.Number)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantOffset, p.Offset())
			assert.Equal(t, tt.perPage, p.Limit())
			assert.Equal(t, tt.hasPrev, p.HasPrevious)
			assert.Equal(t, tt.hasNext, p.HasNext)
		})
	}
}

func TestPaginate_NeighbourNumbers(t *testing.T) {
	p := Paginate(30, 2, 12)
	assert.Equal(t, 1, p.Previous)
	assert.Equal(t, 3, p.Next)
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("abc"))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 1, ParsePage("-3"))
	assert.Equal(t, 1, ParsePage("1.5"))
	assert.Equal(t, 7, ParsePage("7"))
}
