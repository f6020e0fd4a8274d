package utils

import "testing"

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation", "Go & Postgres!", "go-postgres"},
		{"extra spaces", "  A   Blog   Post  ", "a-blog-post"},
		{"digits kept", "Top 10 Tips", "top-10-tips"},
		{"already slug", "already-a-slug", "already-a-slug"},
		{"trailing symbols", "What's New???", "what-s-new"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.title)

			if got != tt.want {
				t.Fatalf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}
