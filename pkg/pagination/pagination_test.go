package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContextDefaults(t *testing.T) {
	p := FromContext(ctxWithQuery(""))
	if p.Page != 1 {
		t.Errorf("default page = %d, want 1", p.Page)
	}
	if p.Limit != DefaultLimit {
		t.Errorf("default limit = %d, want %d", p.Limit, DefaultLimit)
	}
	if p.Offset() != 0 {
		t.Errorf("offset = %d, want 0", p.Offset())
	}
}

func TestFromContextBounds(t *testing.T) {
	p := FromContext(ctxWithQuery("page=0&limit=500"))
	if p.Page != 1 {
		t.Errorf("page = %d, want 1", p.Page)
	}
	if p.Limit != MaxLimit {
		t.Errorf("limit = %d, want %d", p.Limit, MaxLimit)
	}

	p = FromContext(ctxWithQuery("page=3&limit=25"))
	if p.Offset() != 50 {
		t.Errorf("offset = %d, want 50", p.Offset())
	}
}

func TestNewResponse(t *testing.T) {
	cases := []struct {
		name       string
		total      int
		page       int
		limit      int
		totalPages int
		hasNext    bool
		hasPrev    bool
	}{
		{"empty", 0, 1, 20, 0, false, false},
		// has_prev depends only on the requested page, so an overshoot
		// past the last page still links back.
		{"overshoot past last page", 0, 3, 20, 0, false, true},
		{"overshoot with rows", 45, 9, 20, 3, false, true},
		{"single page", 5, 1, 20, 1, false, false},
		{"first of three", 45, 1, 20, 3, true, false},
		{"middle", 45, 2, 20, 3, true, true},
		{"last", 45, 3, 20, 3, false, true},
		{"exact boundary", 40, 2, 20, 2, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewResponse(nil, tc.total, Params{Page: tc.page, Limit: tc.limit})
			if r.TotalPages != tc.totalPages {
				t.Errorf("total_pages = %d, want %d", r.TotalPages, tc.totalPages)
			}
			if r.HasNext != tc.hasNext {
				t.Errorf("has_next = %v, want %v", r.HasNext, tc.hasNext)
			}
			if r.HasPrev != tc.hasPrev {
				t.Errorf("has_prev = %v, want %v", r.HasPrev, tc.hasPrev)
			}
			if r.Total != tc.total {
				t.Errorf("total = %d, want %d", r.Total, tc.total)
			}
		})
	}
}

func TestPageSizesSumToTotal(t *testing.T) {
	total := 53
	limit := 20
	seen := 0
	for page := 1; ; page++ {
		r := NewResponse(nil, total, Params{Page: page, Limit: limit})
		remaining := total - (page-1)*limit
		size := limit
		if remaining < limit {
			size = remaining
		}
		seen += size
		if !r.HasNext {
			break
		}
	}
	if seen != total {
		t.Errorf("sum of page sizes = %d, want %d", seen, total)
	}
}
