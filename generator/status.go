package generator

import (
	"errors"
	"fmt"
	"time"

	"reading-gen/anki"
	"reading-gen/llm"
)

// RunStatus classifies a run that returned no error.
type RunStatus int

const (
	StatusGenerated RunStatus = iota
	StatusNoCards
	StatusNoteFailed
)

// Outcome describes a finished run.
type Outcome struct {
	Status   RunStatus
	Article  Article
	NoteID   int64
	NoteErr  error
	Warnings []string
}

// FromCache reports whether the article was served from the cache.
func (o Outcome) FromCache() bool { return o.Article.FromCache }

// Level is the severity of a user-facing message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Status is the single message shown to the user for a run.
type Status struct {
	Text  string
	Level Level
}

// Duration is how long the message stays visible.
func (s Status) Duration() time.Duration {
	if s.Level == LevelError {
		return 10 * time.Second
	}
	return 5 * time.Second
}

// Describe maps the result of Run to one human-readable message.
func Describe(o Outcome, err error) Status {
	if err != nil {
		return describeError(err)
	}

	switch o.Status {
	case StatusNoCards:
		return Status{Text: "No cards learned today", Level: LevelInfo}
	case StatusNoteFailed:
		return Status{
			Text:  fmt.Sprintf("Article generated, but adding it to Anki failed: %v", o.NoteErr),
			Level: LevelError,
		}
	}

	text := "Article generated"
	if o.FromCache() {
		text += " (from cache)"
	}
	if o.NoteID != 0 {
		text += " and added to Anki"
	}
	if len(o.Warnings) > 0 {
		return Status{Text: text + "; " + o.Warnings[0], Level: LevelWarning}
	}
	return Status{Text: text, Level: LevelSuccess}
}

func describeError(err error) Status {
	var (
		connErr      *anki.ConnectivityError
		formatErr    *llm.FormatError
		transportErr *llm.TransportError
	)

	switch {
	case errors.Is(err, ErrBusy):
		return Status{Text: "A generation is already running", Level: LevelWarning}
	case errors.Is(err, anki.ErrNotInitialized):
		return Status{Text: "Not connected to Anki.\n" + anki.Remediation, Level: LevelError}
	case errors.As(err, &connErr):
		return Status{Text: "Cannot connect to Anki.\n" + anki.Remediation, Level: LevelError}
	case errors.Is(err, llm.ErrNoEndpoint):
		return Status{Text: "Set the request URL in the configuration first", Level: LevelError}
	case errors.As(err, &formatErr):
		return Status{Text: "Generation failed: " + formatErr.Message, Level: LevelError}
	case errors.As(err, &transportErr):
		return Status{Text: fmt.Sprintf("Cannot reach the completion endpoint: %v", transportErr.Err), Level: LevelError}
	default:
		return Status{Text: fmt.Sprintf("Generation failed: %v", err), Level: LevelError}
	}
}
