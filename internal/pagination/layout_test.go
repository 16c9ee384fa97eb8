package pagination

import (
	"reflect"
	"strings"
	"testing"
)

func TestPaginateStable(t *testing.T) {
	paginate := New()
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)

	first, err := paginate(text, 18)
	if err != nil {
		t.Fatal(err)
	}
	second, err := paginate(text, 18)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("pagination must be stable for identical inputs")
	}
	if first.TotalPages < 2 {
		t.Fatalf("expected repeated text to span multiple pages, got %d", first.TotalPages)
	}
}

func TestPaginateChunksOrderedAndInBounds(t *testing.T) {
	paginate := New()
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 120)
	runeCount := len([]rune(text))

	layout, err := paginate(text, 22)
	if err != nil {
		t.Fatal(err)
	}

	prevEnd := 0
	for pi, page := range layout.Pages {
		for ci, chunk := range page {
			if chunk.StartChar < prevEnd {
				t.Fatalf("page %d chunk %d starts at %d before previous end %d", pi, ci, chunk.StartChar, prevEnd)
			}
			if chunk.EndChar <= chunk.StartChar {
				t.Fatalf("page %d chunk %d has empty range [%d,%d)", pi, ci, chunk.StartChar, chunk.EndChar)
			}
			if chunk.EndChar > runeCount {
				t.Fatalf("page %d chunk %d end %d exceeds text length %d", pi, ci, chunk.EndChar, runeCount)
			}
			prevEnd = chunk.EndChar
		}
	}
}

func TestPaginateLargerFontProducesMorePages(t *testing.T) {
	paginate := New()
	text := strings.Repeat("pagination responds to font size changes deterministically ", 150)

	small, err := paginate(text, 14)
	if err != nil {
		t.Fatal(err)
	}
	large, err := paginate(text, 28)
	if err != nil {
		t.Fatal(err)
	}
	if large.TotalPages <= small.TotalPages {
		t.Fatalf("larger font should need more pages: %d vs %d", large.TotalPages, small.TotalPages)
	}
}

func TestPaginateEmptyText(t *testing.T) {
	layout, err := New()("", 18)
	if err != nil {
		t.Fatal(err)
	}
	if layout.TotalPages != 1 || len(layout.Pages) != 1 {
		t.Fatalf("empty text should produce one empty page, got %+v", layout)
	}
}

func TestPaginateOverlongWord(t *testing.T) {
	layout, err := New()(strings.Repeat("x", 500), 18)
	if err != nil {
		t.Fatal(err)
	}
	if layout.TotalPages != 1 {
		t.Fatalf("a single unbreakable token should still paginate, got %d pages", layout.TotalPages)
	}
}
