package query

import (
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func TestParseListParamsFilters(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     []Condition
		wantErr  string
	}{
		{
			name:     "equality and numeric comparison",
			rawQuery: "category=news&likes[gte]=3",
			want: []Condition{
				{Field: "category", Op: OpEq, Value: "news"},
				{Field: "likes", Op: OpGte, Value: "3"},
			},
		},
		{
			name:     "in operator splits values",
			rawQuery: "category[in]=news,technology",
			want: []Condition{
				{Field: "category", Op: OpIn, Values: []string{"news", "technology"}},
			},
		},
		{
			name:     "tags equality",
			rawQuery: "tags=golang",
			want: []Condition{
				{Field: "tags", Op: OpEq, Value: "golang"},
			},
		},
		{
			name:     "reserved params never become conditions",
			rawQuery: "page=2&limit=5&sort=-createdAt&select=title,excerpt&search=kabul",
			want:     nil,
		},
		{
			name:     "unknown field is rejected",
			rawQuery: "passwordHash=x",
			wantErr:  "cannot filter on field",
		},
		{
			name:     "operator not allowed on field",
			rawQuery: "slug[gte]=abc",
			wantErr:  "not allowed on field",
		},
		{
			name:     "unknown operator",
			rawQuery: "likes[between]=1",
			wantErr:  "unknown operator",
		},
		{
			name:     "non-numeric likes comparison",
			rawQuery: "likes[gt]=many",
			wantErr:  "numeric value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.rawQuery)
			if err != nil {
				t.Fatalf("bad test query: %v", err)
			}

			p, err := ParseListParams(values)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want substring %q", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(p.Filter.Conditions, tt.want) {
				t.Fatalf("conditions = %+v, want %+v", p.Filter.Conditions, tt.want)
			}
		})
	}
}

func TestParseListParamsSearchAndPaging(t *testing.T) {
	values, _ := url.ParseQuery("search=%20kabul%20&page=2&limit=5")

	p, err := ParseListParams(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Filter.Search != "kabul" {
		t.Fatalf("search = %q, want %q", p.Filter.Search, "kabul")
	}

	if p.Page != 2 || p.Limit != 5 {
		t.Fatalf("page/limit = %d/%d, want 2/5", p.Page, p.Limit)
	}
}

func TestParseListParamsPagingDefaults(t *testing.T) {
	tests := []struct {
		name      string
		rawQuery  string
		wantPage  int
		wantLimit int
	}{
		{"absent", "", 1, 10},
		{"non-numeric", "page=abc&limit=xyz", 1, 10},
		{"zero and negative", "page=0&limit=-4", 1, 10},
		{"valid", "page=3&limit=25", 3, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.rawQuery)

			p, err := ParseListParams(values)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if p.Page != tt.wantPage || p.Limit != tt.wantLimit {
				t.Fatalf("page/limit = %d/%d, want %d/%d", p.Page, p.Limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestParseListParamsSort(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     []SortKey
		wantErr  bool
	}{
		{
			name:     "default is newest first",
			rawQuery: "",
			want:     []SortKey{{Field: "createdAt", Desc: true}},
		},
		{
			name:     "multi-key with descending marker",
			rawQuery: "sort=-likes,title",
			want:     []SortKey{{Field: "likes", Desc: true}, {Field: "title"}},
		},
		{
			name:     "unsortable field rejected",
			rawQuery: "sort=passwordHash",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, _ := url.ParseQuery(tt.rawQuery)

			p, err := ParseListParams(values)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", p.Sort)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(p.Sort, tt.want) {
				t.Fatalf("sort = %+v, want %+v", p.Sort, tt.want)
			}
		})
	}
}

func TestParseListParamsSelect(t *testing.T) {
	values, _ := url.ParseQuery("select=title,excerpt,%20category")

	p, err := ParseListParams(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"title", "excerpt", "category"}

	if !reflect.DeepEqual(p.Select, want) {
		t.Fatalf("select = %+v, want %+v", p.Select, want)
	}
}
