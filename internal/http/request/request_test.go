package request

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

func TestPagination(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.Pagination
	}{
		{"defaults", "", models.Pagination{Page: 1, Size: 20}},
		{"explicit", "?page=3&size=5", models.Pagination{Page: 3, Size: 5}},
		{"garbage", "?page=x&size=-1", models.Pagination{Page: 1, Size: 20}},
		{"size capped", "?size=1000", models.Pagination{Page: 1, Size: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/list"+tt.query, nil)
			got := Pagination(r)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, (got.Page-1)*got.Size, got.Offset())
		})
	}
}
