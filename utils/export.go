package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"reading-gen/generator"
)

// ExportFormat represents the export format
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatMarkdown ExportFormat = "markdown"
	FormatHTML     ExportFormat = "html"
)

// ParseExportFormat accepts a format name or file extension
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown export format %q", s)
	}
}

// Ext returns the file extension without the dot
func (f ExportFormat) Ext() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// ArticleExport is the JSON export structure
type ArticleExport struct {
	ID         string            `json:"id"`
	Date       string            `json:"date"`
	Vocabulary []string          `json:"vocabulary"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
		htmlrenderer.WithXHTML(),
	),
)

// ArticleMarkdown renders an article as a Markdown document
func ArticleMarkdown(a generator.Article) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Generated reading - %s\n\n", a.Date))
	sb.WriteString("## Vocabulary\n")
	sb.WriteString(strings.Join(a.Vocabulary, ", "))
	sb.WriteString("\n\n## Article\n\n")
	sb.WriteString(a.Content)
	sb.WriteString("\n")
	return sb.String()
}

// ArticleHTML renders an article as a standalone HTML page
func ArticleHTML(a generator.Article) (string, error) {
	var body bytes.Buffer
	if err := markdownEngine.Convert([]byte(ArticleMarkdown(a)), &body); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\" />\n")
	sb.WriteString(fmt.Sprintf("<title>Generated reading - %s</title>\n", html.EscapeString(a.Date)))
	sb.WriteString("</head>\n<body>\n")
	sb.Write(body.Bytes())
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

// ArticleJSON renders an article as indented JSON
func ArticleJSON(a generator.Article) ([]byte, error) {
	export := ArticleExport{
		ID:         a.ID,
		Date:       a.Date,
		Vocabulary: a.Vocabulary,
		Content:    a.Content,
		Metadata: map[string]string{
			"export_version": "1.0",
			"export_date":    time.Now().Format(time.RFC3339),
			"app_name":       AppName,
		},
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// RenderArticle renders an article in the given format
func RenderArticle(a generator.Article, format ExportFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ArticleJSON(a)
	case FormatHTML:
		s, err := ArticleHTML(a)
		return []byte(s), err
	default:
		return []byte(ArticleMarkdown(a)), nil
	}
}

// ExportArticle writes an article to path, choosing the format from the
// file extension
func ExportArticle(a generator.Article, path string) error {
	format, err := ParseExportFormat(filepath.Ext(path))
	if err != nil {
		return err
	}

	data, err := RenderArticle(a, format)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// GenerateExportFilename returns reading_<date>.<ext> for an article
func GenerateExportFilename(a generator.Article, format ExportFormat) string {
	date := a.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return fmt.Sprintf("reading_%s.%s", date, format.Ext())
}

// GetDefaultExportPath returns the export directory from config, falling
// back to the user's documents folder, and creates it
func GetDefaultExportPath(cfg *Config) (string, error) {
	dir := ""
	if cfg != nil {
		dir = cfg.Export.Dir
	}
	if dir == "" {
		dir = DefaultConfig().Export.Dir
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
