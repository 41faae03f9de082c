package utils

import (
	"net/url"
	"strconv"

	"production-system/pkg/types"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

func ParsePaginationParams(values url.Values) (limit uint64, offset uint64, page uint64) {
	// Значения по умолчанию
	limit = DefaultLimit
	page = 1

	if limitStr := values.Get("limit"); limitStr != "" {
		if l, err := strconv.ParseUint(limitStr, 10, 64); err == nil && l > 0 {
			if l > MaxLimit {
				limit = MaxLimit
			} else {
				limit = l
			}
		}
	}

	if pageStr := values.Get("page"); pageStr != "" {
		if p, err := strconv.ParseUint(pageStr, 10, 64); err == nil && p > 0 {
			page = p
		}
	}

	// offset считается на основе страницы
	offset = (page - 1) * limit

	return
}

// ParseFilterFromQuery собирает фильтр списка из query-параметров. В карту
// фильтров попадают только явно перечисленные ключи, допустимость колонок
// дополнительно проверяет репозиторий.
func ParseFilterFromQuery(values url.Values, filterKeys ...string) types.Filter {
	limit, offset, page := ParsePaginationParams(values)

	filter := types.Filter{
		Search:         values.Get("search"),
		Filter:         make(map[string]interface{}),
		Sort:           make(map[string]string),
		Limit:          int(limit),
		Offset:         int(offset),
		Page:           int(page),
		WithPagination: true,
	}
	for _, key := range filterKeys {
		if v := values.Get(key); v != "" {
			filter.Filter[key] = v
		}
	}
	if sortBy := values.Get("sort_by"); sortBy != "" {
		dir := values.Get("sort_dir")
		if dir != "desc" {
			dir = "asc"
		}
		filter.Sort[sortBy] = dir
	}
	return filter
}
