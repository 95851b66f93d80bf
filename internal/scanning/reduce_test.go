package scanning

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fence", `[{"title":"A"}]`, `[{"title":"A"}]`},
		{"json fence", "```json\n[]\n```", "[]"},
		{"bare fence", "```\n[1]\n```", "[1]"},
		{"surrounding whitespace", "  \n```json\n[]\n```\n ", "[]"},
		{"single line", "```json[]```", "[]"},
		{"unterminated", "```json\n[]", "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.input); got != tt.expected {
				t.Errorf("StripCodeFence(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestReduceResponse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []models.BookDetection
	}{
		{
			name: "clean array",
			raw:  `[{"title":"Dune","author":"Frank Herbert","sources":["a.jpg"]}]`,
			expected: []models.BookDetection{
				{Title: "Dune", Author: "Frank Herbert", Sources: []string{"a.jpg"}},
			},
		},
		{
			name:     "fenced empty array",
			raw:      "```json\n[]\n```",
			expected: []models.BookDetection{},
		},
		{
			name: "missing author",
			raw:  `[{"title":"Untitled Atlas","sources":["b.png"]}]`,
			expected: []models.BookDetection{
				{Title: "Untitled Atlas", Author: "", Sources: []string{"b.png"}},
			},
		},
		{
			name: "missing sources",
			raw:  `[{"title":"Book A","author":"J. Doe"}]`,
			expected: []models.BookDetection{
				{Title: "Book A", Author: "J. Doe", Sources: []string{}},
			},
		},
		{
			name: "null author and sources",
			raw:  `[{"title":"Book B","author":null,"sources":null}]`,
			expected: []models.BookDetection{
				{Title: "Book B", Author: "", Sources: []string{}},
			},
		},
		{
			name: "single string source",
			raw:  `[{"title":"Book C","author":"X","sources":"c.jpg"}]`,
			expected: []models.BookDetection{
				{Title: "Book C", Author: "X", Sources: []string{"c.jpg"}},
			},
		},
		{
			name: "merged duplicate kept as given",
			raw:  `[{"title":"Book A","author":"J. Doe","sources":["shelf1.jpg","shelf2.jpg"]}]`,
			expected: []models.BookDetection{
				{Title: "Book A", Author: "J. Doe", Sources: []string{"shelf1.jpg", "shelf2.jpg"}},
			},
		},
		{
			name: "extra fields ignored",
			raw:  `[{"title":"Book D","author":"Y","sources":[],"isbn":"123"}]`,
			expected: []models.BookDetection{
				{Title: "Book D", Author: "Y", Sources: []string{}},
			},
		},
		{
			name: "co-authors joined",
			raw:  `[{"title":"Good Omens","author":["Terry Pratchett","Neil Gaiman"],"sources":["a.jpg"]},{"title":"Dune","author":"Frank Herbert","sources":["b.jpg"]}]`,
			expected: []models.BookDetection{
				{Title: "Good Omens", Author: "Terry Pratchett, Neil Gaiman", Sources: []string{"a.jpg"}},
				{Title: "Dune", Author: "Frank Herbert", Sources: []string{"b.jpg"}},
			},
		},
		{
			name: "numeric author dropped",
			raw:  `[{"title":"Dune","author":7,"sources":["a.jpg"]}]`,
			expected: []models.BookDetection{
				{Title: "Dune", Author: "", Sources: []string{"a.jpg"}},
			},
		},
		{
			name: "non-string source entries dropped",
			raw:  `[{"title":"Dune","sources":[1,"a.jpg",null]}]`,
			expected: []models.BookDetection{
				{Title: "Dune", Author: "", Sources: []string{"a.jpg"}},
			},
		},
		{
			name: "object sources dropped",
			raw:  `[{"title":"Dune","sources":{"a":"b"}}]`,
			expected: []models.BookDetection{
				{Title: "Dune", Author: "", Sources: []string{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := ReduceResponse(tt.raw)
			if err != nil {
				t.Fatalf("ReduceResponse failed: %v", err)
			}
			if !reflect.DeepEqual(books, tt.expected) {
				t.Errorf("Expected %+v, got %+v", tt.expected, books)
			}
		})
	}
}

func TestReduceResponseParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "not json"},
		{"object instead of array", `{"title":"Dune"}`},
		{"array of strings", `["Dune"]`},
		{"missing title", `[{"author":"Frank Herbert"}]`},
		{"numeric title", `[{"title":42}]`},
		{"truncated", "```json\n[{\"title\":\"Dune\"\n```"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books, err := ReduceResponse(tt.raw)
			if err == nil {
				t.Fatalf("Expected error, got %+v", books)
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Expected *ParseError, got %T", err)
			}
			if parseErr.Raw != tt.raw {
				t.Errorf("Expected raw %q to be preserved, got %q", tt.raw, parseErr.Raw)
			}
		})
	}
}
