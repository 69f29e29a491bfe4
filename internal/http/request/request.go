// Package request содержит разбор общих параметров запроса.
package request

import (
	"net/http"
	"strconv"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

const (
	defaultPage = 1
	defaultSize = 20
	maxSize     = 100
)

// Pagination читает page и size из query-строки. Некорректные значения
// заменяются значениями по умолчанию, size ограничен сверху.
func Pagination(r *http.Request) models.Pagination {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = defaultPage
	}
	size, err := strconv.Atoi(q.Get("size"))
	if err != nil || size < 1 {
		size = defaultSize
	}
	return models.Pagination{Page: page, Size: min(size, maxSize)}
}
