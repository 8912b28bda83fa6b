// Package generator turns today's reviewed Anki vocabulary into a short
// reading article and keeps the articles produced in this session.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"reading-gen/anki"
	"reading-gen/cache"
	"reading-gen/llm"
	"reading-gen/settings"
)

// ErrBusy is returned by Run while another run is in flight.
var ErrBusy = errors.New("a generation is already in progress")

// Flashcards is the subset of the Anki client the generator needs.
type Flashcards interface {
	Ready() bool
	FindTodayLearnedCardIDs(ctx context.Context) ([]int64, error)
	FetchCardFields(ctx context.Context, ids []int64) ([]anki.Card, error)
	CreateNote(ctx context.Context, req anki.NoteRequest) (int64, error)
}

// Completer produces text for a prompt.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// SettingsSource supplies the configuration snapshot a run uses.
type SettingsSource interface {
	Current() settings.Settings
}

// Stage is reported through Deps.Progress as a run advances.
type Stage int

const (
	StageFetchingCards Stage = iota
	StageGenerating
	StageAddingNote
)

func (s Stage) String() string {
	switch s {
	case StageFetchingCards:
		return "Fetching today's cards..."
	case StageGenerating:
		return "Generating article..."
	case StageAddingNote:
		return "Adding article to Anki..."
	default:
		return "Working..."
	}
}

// Deps are the collaborators of a Service. Cache may be nil, which behaves
// like a disabled cache. Now and Progress are optional.
type Deps struct {
	Flashcards Flashcards
	Completer  Completer
	Cache      cache.Cache
	Settings   SettingsSource
	Logger     *zap.Logger
	Now        func() time.Time
	Progress   func(Stage)
}

// Service runs generations and owns the session's article list.
type Service struct {
	d   Deps
	sem *semaphore.Weighted

	mu       sync.RWMutex
	articles []Article
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{d: d, sem: semaphore.NewWeighted(1)}
}

// Signature joins vocabulary terms into the string used as the prompt
// substitution and the default cache key.
func Signature(vocab []string) string {
	return strings.Join(vocab, ", ")
}

// Run performs one generation. Expected conditions such as no cards today
// or a failed note write are reported in the Outcome; the error is for
// failures that produced no article.
func (s *Service) Run(ctx context.Context) (Outcome, error) {
	if !s.sem.TryAcquire(1) {
		return Outcome{}, ErrBusy
	}
	defer s.sem.Release(1)

	if !s.d.Flashcards.Ready() {
		return Outcome{}, anki.ErrNotInitialized
	}
	cfg := s.d.Settings.Current()
	log := s.d.Logger

	s.progress(StageFetchingCards)
	ids, err := s.d.Flashcards.FindTodayLearnedCardIDs(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to find today's cards: %w", err)
	}
	if len(ids) == 0 {
		log.Info("no cards learned today")
		return Outcome{Status: StatusNoCards}, nil
	}

	cards, err := s.d.Flashcards.FetchCardFields(ctx, ids)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to fetch card fields: %w", err)
	}
	vocab := anki.ExtractVocabulary(cards, cfg.InputFieldName)
	if len(vocab) == 0 {
		log.Info("today's cards have no usable vocabulary", zap.String("field", cfg.InputFieldName), zap.Int("cards", len(cards)))
		return Outcome{Status: StatusNoCards}, nil
	}

	sig := Signature(vocab)
	key := cache.Key{
		Signature:  sig,
		Vocabulary: vocab,
		Template:   cfg.PromptTemplate,
		Model:      cfg.ModelName,
	}
	useCache := cfg.EnableCache && s.d.Cache != nil

	var content string
	var fromCache bool
	if useCache {
		content, fromCache = s.d.Cache.Lookup(key)
	}

	if !fromCache {
		s.progress(StageGenerating)
		content, err = s.d.Completer.Complete(ctx, completionRequest(cfg, llm.RenderPrompt(cfg.PromptTemplate, sig)))
		if err != nil {
			log.Error("completion failed", zap.Error(err))
			return Outcome{}, err
		}
	}

	article := s.newArticle(vocab, content, fromCache)
	s.mu.Lock()
	s.articles = append([]Article{article}, s.articles...)
	s.mu.Unlock()

	out := Outcome{Status: StatusGenerated, Article: article}
	log.Info("article generated",
		zap.String("id", article.ID),
		zap.Int("vocabulary", len(vocab)),
		zap.Bool("from_cache", fromCache))

	if useCache && !fromCache {
		if err := s.d.Cache.Store(ctx, key, content); err != nil {
			log.Warn("failed to cache article", zap.Error(err))
			out.Warnings = append(out.Warnings, "the article could not be cached")
		}
	}

	if cfg.AddToCard {
		s.progress(StageAddingNote)
		noteID, err := s.d.Flashcards.CreateNote(ctx, anki.NoteRequest{
			DeckName:     cfg.DeckName,
			NoteTypeName: cfg.NoteTypeName,
			FieldName:    cfg.OutputFieldName,
			Content:      content,
		})
		if err != nil {
			log.Error("failed to add article to Anki", zap.Error(err))
			out.Status = StatusNoteFailed
			out.NoteErr = err
		} else {
			out.NoteID = noteID
		}
	}

	return out, nil
}

func completionRequest(cfg settings.Settings, prompt string) llm.Request {
	return llm.Request{
		Credentials: llm.Credentials{
			Token: cfg.APIToken,
			URL:   cfg.RequestURL,
			Model: cfg.ModelName,
		},
		Sampling: llm.Sampling{
			MaxTokens:        cfg.MaxTokens,
			Temperature:      cfg.Temperature,
			TopP:             cfg.TopP,
			TopK:             cfg.TopK,
			FrequencyPenalty: cfg.FrequencyPenalty,
			Stop:             cfg.StopSequences,
		},
		Prompt: prompt,
	}
}

func (s *Service) newArticle(vocab []string, content string, fromCache bool) Article {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	now := s.d.Now()
	return Article{
		ID:         id.String(),
		Date:       now.Format(time.DateOnly),
		CreatedAt:  now,
		Vocabulary: append([]string(nil), vocab...),
		Content:    content,
		FromCache:  fromCache,
	}
}

func (s *Service) progress(stage Stage) {
	if s.d.Progress != nil {
		s.d.Progress(stage)
	}
}
