package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reading-gen/utils"
)

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		args []string
		want map[string]string
		err  bool
	}{
		{[]string{"model_name=gpt-4o-mini"}, map[string]string{"model_name": "gpt-4o-mini"}, false},
		{[]string{"request_url=http://x/y?a=b"}, map[string]string{"request_url": "http://x/y?a=b"}, false},
		{[]string{"stop_sequences="}, map[string]string{"stop_sequences": ""}, false},
		{[]string{"top_k=5", "add_to_card=false"}, map[string]string{"top_k": "5", "add_to_card": "false"}, false},
		{[]string{"model_name"}, nil, true},
		{[]string{"=value"}, nil, true},
		{[]string{"top_k=1", "top_k=2"}, nil, true},
	}

	for _, tt := range tests {
		got, err := parseAssignments(tt.args)
		if tt.err {
			assert.Error(t, err, "args %v", tt.args)
			continue
		}
		require.NoError(t, err, "args %v", tt.args)
		assert.Equal(t, tt.want, got)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "2.0 KB", formatSize(2048))
	assert.Equal(t, "3.0 MB", formatSize(3*1024*1024))
}

// fakeServices serves AnkiConnect and the completion endpoint from one
// test server.
type fakeServices struct {
	cards      []map[string]any
	notes      []map[string]any
	completion string
}

func (f *fakeServices) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.URL.Path == "/v1/chat/completions" {
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "test-model",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": f.completion}}},
		})
		return
	}

	var req struct {
		Action string         `json:"action"`
		Params map[string]any `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var result any
	switch req.Action {
	case "version":
		result = 6
	case "updateConfig":
		result = true
	case "findCards":
		ids := make([]int64, len(f.cards))
		for i := range f.cards {
			ids[i] = int64(i + 1)
		}
		result = ids
	case "cardsInfo":
		result = f.cards
	case "addNote":
		f.notes = append(f.notes, req.Params)
		result = 1700000000000
	}
	json.NewEncoder(w).Encode(map[string]any{"result": result, "error": nil})
}

func card(id int64, vocab string) map[string]any {
	return map[string]any{
		"cardId":    id,
		"note":      id * 10,
		"deckName":  "Default",
		"modelName": "Basic",
		"fields": map[string]any{
			"VocabKanji": map[string]any{"value": vocab, "order": 0},
		},
	}
}

// setup writes a config file whose paths live in a temp dir and points
// AnkiConnect at url.
func setup(t *testing.T, url string) string {
	t.Helper()
	dir := t.TempDir()

	cfg := utils.DefaultConfig()
	cfg.Anki.URL = url
	cfg.Data.DBPath = filepath.Join(dir, "reading.db")
	cfg.Data.LogDir = filepath.Join(dir, "logs")
	cfg.Export.Dir = filepath.Join(dir, "export")

	configPath := filepath.Join(dir, "config.json")
	require.NoError(t, utils.SaveConfig(configPath, cfg))
	return configPath
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	flagSaveDir = ""
	flagFormat = "markdown"
	flagShowToken = false
	flagDebug = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc", "today")
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "reading-gen 1.2.3 (commit: abc, built: today)\n", out)
}

func TestConfigSetAndShow(t *testing.T) {
	configPath := setup(t, "http://127.0.0.1:1")

	_, _, err := execute(t, "--config", configPath, "config", "set",
		"api_token=sk-secret-1234", "model_name=gpt-4o-mini", "stop_sequences=END, STOP")
	require.NoError(t, err)

	out, _, err := execute(t, "--config", configPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "gpt-4o-mini")
	assert.Contains(t, out, "END, STOP")
	assert.Contains(t, out, "*********1234")
	assert.NotContains(t, out, "sk-secret-1234")
}

func TestConfigSetRejectsWholePatch(t *testing.T) {
	configPath := setup(t, "http://127.0.0.1:1")

	_, _, err := execute(t, "--config", configPath, "config", "set", "model_name=kept-out", "temperature=3")
	require.Error(t, err)

	out, _, err := execute(t, "--config", configPath, "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "kept-out")
}

func TestGenerateHeadless(t *testing.T) {
	fake := &fakeServices{
		cards:      []map[string]any{card(1, "<b>猫</b>"), card(2, "犬")},
		completion: "猫と犬の話。",
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	configPath := setup(t, srv.URL)
	_, _, err := execute(t, "--config", configPath, "config", "set",
		"request_url="+srv.URL+"/v1/chat/completions", "model_name=test-model")
	require.NoError(t, err)

	saveDir := t.TempDir()
	out, errOut, err := execute(t, "--config", configPath, "generate", "--save-dir", saveDir)
	require.NoError(t, err, errOut)

	assert.Contains(t, out, "## Vocabulary\n猫, 犬")
	assert.Contains(t, out, "猫と犬の話。")
	assert.Contains(t, errOut, "added to Anki")
	require.Len(t, fake.notes, 1)

	entries, err := os.ReadDir(saveDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "reading_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".md"))

	// The second run is served from the cache that the first run persisted.
	_, errOut, err = execute(t, "--config", configPath, "generate")
	require.NoError(t, err, errOut)
	assert.Contains(t, errOut, "from cache")

	out, _, err = execute(t, "--config", configPath, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Cached articles: 1")

	out, _, err = execute(t, "--config", configPath, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 cached article(s).")
}

func TestGenerateWithoutAnki(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	configPath := setup(t, srv.URL)
	_, _, err := execute(t, "--config", configPath, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cannot connect to Anki")
}
