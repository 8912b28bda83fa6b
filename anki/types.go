package anki

import "encoding/json"

// APIVersion is the AnkiConnect protocol version sent with every request.
const APIVersion = 6

// DefaultURL is where AnkiConnect listens by default.
const DefaultURL = "http://127.0.0.1:8765"

// NoteTag marks notes created from generated articles.
const NoteTag = "ai_reading_gen"

// TodayQuery selects the cards reviewed today.
const TodayQuery = "rated:1"

// DefaultCORSOrigins are registered with AnkiConnect on startup.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// Card is the subset of cardsInfo used here.
type Card struct {
	CardID    int64            `json:"cardId"`
	NoteID    int64            `json:"note"`
	DeckName  string           `json:"deckName"`
	ModelName string           `json:"modelName"`
	Fields    map[string]Field `json:"fields"`
}

// Field is a single note field as returned by cardsInfo.
type Field struct {
	Value string `json:"value"`
	Order int    `json:"order"`
}

// NoteRequest describes the note written back for a generated article.
type NoteRequest struct {
	DeckName     string
	NoteTypeName string
	FieldName    string
	Content      string
}

type addNoteParams struct {
	Note note `json:"note"`
}

type note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Options   noteOptions       `json:"options"`
	Tags      []string          `json:"tags"`
}

type noteOptions struct {
	AllowDuplicate bool `json:"allowDuplicate"`
}

// State is the connection lifecycle of the client.
type State int

const (
	StateUninitialized State = iota
	StateConnected
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}
