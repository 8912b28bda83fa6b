package generator

import "time"

// Article is one generated reading text.
type Article struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
	Vocabulary []string  `json:"vocabulary"`
	Content    string    `json:"content"`
	Saved      bool      `json:"saved"`
	FromCache  bool      `json:"from_cache"`
}

// Articles returns the session's articles, newest first.
func (s *Service) Articles() []Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Article, len(s.articles))
	copy(out, s.articles)
	return out
}

// Article returns the article with the given id.
func (s *Service) Article(id string) (Article, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.articles {
		if a.ID == id {
			return a, true
		}
	}
	return Article{}, false
}

// Delete removes the article with the given id and reports whether it
// existed. The order of the remaining articles is unchanged.
func (s *Service) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range s.articles {
		if a.ID == id {
			s.articles = append(s.articles[:i:i], s.articles[i+1:]...)
			return true
		}
	}
	return false
}

// MarkSaved flags an article as exported to a file.
func (s *Service) MarkSaved(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.articles {
		if s.articles[i].ID == id {
			s.articles[i].Saved = true
			return true
		}
	}
	return false
}
