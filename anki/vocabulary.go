package anki

import "regexp"

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// StripTags removes markup tags from a field value.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// ExtractVocabulary reads field from every card, strips markup and drops
// missing or empty values. Terms are otherwise kept verbatim, surrounding
// whitespace included, since they form the cache signature. Order is
// preserved and duplicates are kept.
func ExtractVocabulary(cards []Card, field string) []string {
	vocab := make([]string, 0, len(cards))
	for _, card := range cards {
		f, ok := card.Fields[field]
		if !ok {
			continue
		}
		term := StripTags(f.Value)
		if term == "" {
			continue
		}
		vocab = append(vocab, term)
	}
	return vocab
}
