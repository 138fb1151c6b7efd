// Package books holds the pure projection logic that turns a raw scraped book
// list into what the UI displays. Nothing here touches the network.
package books

import (
	"sort"
	"strings"

	"github.com/bookdl/bookdl-go/internal/models"
)

// LanguageAll disables language filtering.
const LanguageAll = "All"

// UnknownTitle is the display fallback for books scraped without a title.
const UnknownTitle = "Unknown Book"

// Options are the active filter predicates.
type Options struct {
	HideDownloaded bool
	Language       string // LanguageAll or an exact, case-insensitive match
	Search         string // free text over title/author/genre/description
}

// Filter returns the books satisfying every active predicate, preserving the
// input's relative order.
func Filter(list []models.Book, opts Options) []models.Book {
	query := strings.ToLower(strings.TrimSpace(opts.Search))
	language := strings.ToLower(opts.Language)
	filterLanguage := opts.Language != "" && opts.Language != LanguageAll

	var out []models.Book
	for _, b := range list {
		if opts.HideDownloaded && b.Downloaded {
			continue
		}
		if filterLanguage {
			if b.Language == "" || strings.ToLower(b.Language) != language {
				continue
			}
		}
		if query != "" && !matchesQuery(&b, query) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// matchesQuery reports whether any searchable field contains the lowercased
// query. A hit in any one field includes the book.
func matchesQuery(b *models.Book, query string) bool {
	for _, field := range []string{b.Title, b.BookAuthor, b.Author, b.Genre, b.Description} {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Languages returns the sorted distinct non-empty languages of the raw,
// unfiltered list. The selector this populates describes the corpus, not the
// filtered view, so it must never be computed from a filtered list.
func Languages(list []models.Book) []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range list {
		lang := b.Language
		if strings.TrimSpace(lang) == "" || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// TitleIndex maps bookUrl to display title over the raw list, falling back to
// UnknownTitle. The download orchestrator uses this to label batch entries.
func TitleIndex(list []models.Book) map[string]string {
	index := make(map[string]string, len(list))
	for _, b := range list {
		title := b.Title
		if title == "" {
			title = UnknownTitle
		}
		index[b.BookURL] = title
	}
	return index
}
