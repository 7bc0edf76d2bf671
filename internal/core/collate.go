package core

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortArabic sorts items in place by key using Arabic collation. A new
// collator is built per call since collate.Collator is not safe for
// concurrent use.
func SortArabic[T any](items []T, key func(T) string) {
	c := collate.New(language.Arabic)
	slices.SortStableFunc(items, func(a, b T) int {
		return c.CompareString(key(a), key(b))
	})
}
