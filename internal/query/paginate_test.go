package query

import "testing"

func TestPaginate(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		page       int
		limit      int
		wantOffset int
		wantLimit  int
		wantNext   *PageRef
		wantPrev   *PageRef
	}{
		{
			name:  "first page with more results",
			total: 25, page: 1, limit: 10,
			wantOffset: 0, wantLimit: 10,
			wantNext: &PageRef{Page: 2, Limit: 10},
		},
		{
			name:  "middle page has both hints",
			total: 12, page: 2, limit: 5,
			wantOffset: 5, wantLimit: 5,
			wantNext: &PageRef{Page: 3, Limit: 5},
			wantPrev: &PageRef{Page: 1, Limit: 5},
		},
		{
			name:  "last page only has prev",
			total: 12, page: 3, limit: 5,
			wantOffset: 10, wantLimit: 5,
			wantPrev: &PageRef{Page: 2, Limit: 5},
		},
		{
			name:  "single page has neither",
			total: 7, page: 1, limit: 10,
			wantOffset: 0, wantLimit: 10,
		},
		{
			name:  "exact fit has no next",
			total: 10, page: 1, limit: 10,
			wantOffset: 0, wantLimit: 10,
		},
		{
			name:  "non-positive inputs fall back to defaults",
			total: 30, page: 0, limit: -3,
			wantOffset: 0, wantLimit: 10,
			wantNext: &PageRef{Page: 2, Limit: 10},
		},
		{
			name:  "page past the end still never goes negative",
			total: 3, page: 9, limit: 10,
			wantOffset: 80, wantLimit: 10,
			wantPrev: &PageRef{Page: 8, Limit: 10},
		},
		{
			name:  "empty result set",
			total: 0, page: 1, limit: 10,
			wantOffset: 0, wantLimit: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Paginate(tt.total, tt.page, tt.limit)

			if w.Offset != tt.wantOffset || w.Limit != tt.wantLimit {
				t.Fatalf("window = (%d,%d), want (%d,%d)", w.Offset, w.Limit, tt.wantOffset, tt.wantLimit)
			}

			checkRef(t, "next", w.Next, tt.wantNext)
			checkRef(t, "prev", w.Prev, tt.wantPrev)
		})
	}
}

// the invariants of spec'd behavior: offset is never negative, next is
// present exactly when the window ends before total, prev exactly when the
// window does not start at zero
func TestPaginateInvariants(t *testing.T) {
	for total := 0; total <= 40; total += 7 {
		for page := -1; page <= 6; page++ {
			for _, limit := range []int{-1, 0, 1, 3, 10} {
				w := Paginate(total, page, limit)

				if w.Offset < 0 {
					t.Fatalf("Paginate(%d,%d,%d) produced negative offset %d", total, page, limit, w.Offset)
				}

				if gotNext := w.Next != nil; gotNext != (w.Offset+w.Limit < total) {
					t.Fatalf("Paginate(%d,%d,%d) next presence = %v, offset=%d limit=%d", total, page, limit, gotNext, w.Offset, w.Limit)
				}

				if gotPrev := w.Prev != nil; gotPrev != (w.Offset > 0) {
					t.Fatalf("Paginate(%d,%d,%d) prev presence = %v, offset=%d", total, page, limit, gotPrev, w.Offset)
				}
			}
		}
	}
}

func checkRef(t *testing.T, label string, got, want *PageRef) {
	t.Helper()

	if (got == nil) != (want == nil) {
		t.Fatalf("%s = %+v, want %+v", label, got, want)
	}

	if got != nil && *got != *want {
		t.Fatalf("%s = %+v, want %+v", label, *got, *want)
	}
}
