package utils

import (
	"fmt"

	"gorm.io/gorm"
)

type PaginatedResult struct {
	NumPages    int64
	CurrentPage int64
	NextPage    int64
}

func buildQuery(opts []QueryOption) Query {
	q := Query{
		Limit:  0,
		Offset: 0,
		SortBy: "id",
		Order:  OrderAsc,
	}

	for _, opt := range opts {
		opt.Apply(&q)
	}

	return q
}

// Paginate applies the query options to a query. When res is non-nil it is
// filled with the page bookkeeping for a result set of count rows.
func Paginate(opts []QueryOption, count int64, res *PaginatedResult) func(db *gorm.DB) *gorm.DB {
	q := buildQuery(opts)

	if res != nil {
		res.NumPages = 1

		if q.Limit > 0 {
			res.NumPages = (count + int64(q.Limit) - 1) / int64(q.Limit)
			res.CurrentPage = int64(q.Offset / q.Limit)
		}

		res.NextPage = res.CurrentPage

		if res.CurrentPage+1 < res.NumPages {
			res.NextPage = res.CurrentPage + 1
		}
	}

	return func(db *gorm.DB) *gorm.DB {
		db = db.Order(fmt.Sprintf("%s %s", q.SortBy, q.Order)).Offset(q.Offset)

		if q.Limit > 0 {
			db = db.Limit(q.Limit)
		}

		return db
	}
}
