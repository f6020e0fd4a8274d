package query

type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Pagination carries the browse hints included in listing envelopes.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// Window is the result slice to fetch plus its next/prev descriptors.
type Window struct {
	Offset int
	Limit  int
	Next   *PageRef
	Prev   *PageRef
}

// Paginate computes the window for one page. total must be the count of rows
// matching the same filter the page is fetched with — counting the whole
// collection instead silently breaks Next once search narrows the result set.
func Paginate(total, page, limit int) Window {
	if page < 1 {
		page = 1
	}

	if limit < 1 {
		limit = 10
	}

	offset := (page - 1) * limit

	w := Window{Offset: offset, Limit: limit}

	if offset+limit < total {
		w.Next = &PageRef{Page: page + 1, Limit: limit}
	}

	if offset > 0 {
		w.Prev = &PageRef{Page: page - 1, Limit: limit}
	}

	return w
}

func (w Window) Pagination() Pagination {
	return Pagination{Next: w.Next, Prev: w.Prev}
}
