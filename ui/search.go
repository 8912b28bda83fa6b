package ui

import (
	"strings"

	"fyne.io/fyne/v2/widget"

	"reading-gen/generator"
)

// newFilterEntry builds the search box above the article list. Typing
// narrows the list to articles whose vocabulary or text contains the query.
func (l *ArticleList) newFilterEntry() *widget.Entry {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("Filter by word or text...")
	entry.OnChanged = func(query string) {
		l.query = query
		l.Refresh()
	}
	return entry
}

// filterArticles keeps the articles matching query, case-insensitively.
// An empty query keeps everything.
func filterArticles(articles []generator.Article, query string) []generator.Article {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return articles
	}

	var out []generator.Article
	for _, a := range articles {
		if matchesQuery(a, query) {
			out = append(out, a)
		}
	}
	return out
}

func matchesQuery(a generator.Article, query string) bool {
	for _, v := range a.Vocabulary {
		if strings.Contains(strings.ToLower(v), query) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(a.Content), query)
}
