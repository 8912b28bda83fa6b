package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"reading-gen/generator"
	"reading-gen/utils"
)

const (
	titleVocabLimit = 6
	emptyListText   = "No articles yet. Review some cards in Anki, then press Generate."
)

// ArticleList shows the session's articles, newest first, as an accordion
type ArticleList struct {
	app       *App
	accordion *widget.Accordion
	empty     *widget.Label
	ids       []string
	query     string
}

// NewArticleList creates an empty article list
func NewArticleList(app *App) *ArticleList {
	return &ArticleList{app: app}
}

// Build builds the article list UI
func (l *ArticleList) Build() fyne.CanvasObject {
	l.accordion = widget.NewAccordion()
	l.empty = widget.NewLabel(emptyListText)
	l.empty.Alignment = fyne.TextAlignCenter
	list := container.NewVScroll(container.NewVBox(l.empty, l.accordion))
	return container.NewBorder(l.newFilterEntry(), nil, nil, nil, list)
}

// Refresh rebuilds the list from the generator, keeping expanded items open
func (l *ArticleList) Refresh() {
	open := map[string]bool{}
	for i, item := range l.accordion.Items {
		if item.Open && i < len(l.ids) {
			open[l.ids[i]] = true
		}
	}

	all := l.app.generator.Articles()
	articles := filterArticles(all, l.query)
	items := make([]*widget.AccordionItem, 0, len(articles))
	ids := make([]string, 0, len(articles))
	for _, a := range articles {
		item := widget.NewAccordionItem(articleTitle(a), l.buildDetail(a))
		item.Open = open[a.ID]
		items = append(items, item)
		ids = append(ids, a.ID)
	}

	l.ids = ids
	l.accordion.Items = items
	l.accordion.Refresh()

	switch {
	case len(all) == 0:
		l.empty.SetText(emptyListText)
		l.empty.Show()
	case len(articles) == 0:
		l.empty.SetText("No article matches the filter.")
		l.empty.Show()
	default:
		l.empty.Hide()
	}
}

func articleTitle(a generator.Article) string {
	vocab := a.Vocabulary
	more := ""
	if len(vocab) > titleVocabLimit {
		more = fmt.Sprintf(" +%d", len(vocab)-titleVocabLimit)
		vocab = vocab[:titleVocabLimit]
	}

	var flags []string
	if a.FromCache {
		flags = append(flags, "cached")
	}
	if a.Saved {
		flags = append(flags, "saved")
	}
	suffix := ""
	if len(flags) > 0 {
		suffix = " [" + strings.Join(flags, ", ") + "]"
	}
	return fmt.Sprintf("%s · %s%s%s", a.Date, strings.Join(vocab, ", "), more, suffix)
}

func (l *ArticleList) buildDetail(a generator.Article) fyne.CanvasObject {
	vocab := widget.NewLabel("Vocabulary: " + generator.Signature(a.Vocabulary))
	vocab.Wrapping = fyne.TextWrapWord
	vocab.TextStyle = fyne.TextStyle{Italic: true}

	content := widget.NewRichTextFromMarkdown(a.Content)
	content.Wrapping = fyne.TextWrapWord

	id := a.ID
	saveButton := widget.NewButton("Save to file", func() { l.saveArticle(id) })
	copyButton := widget.NewButton("Copy", func() {
		l.app.window.Clipboard().SetContent(a.Content)
	})
	deleteButton := widget.NewButton("Delete", func() { l.confirmDelete(id) })
	deleteButton.Importance = widget.DangerImportance

	return container.NewVBox(
		vocab,
		content,
		container.NewHBox(saveButton, copyButton, deleteButton),
	)
}

// saveArticle asks for a destination and writes the article there. The
// format follows the chosen extension, Markdown by default.
func (l *ArticleList) saveArticle(id string) {
	a, ok := l.app.generator.Article(id)
	if !ok {
		return
	}

	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			l.app.showError("Save failed: " + err.Error())
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		format, err := utils.ParseExportFormat(writer.URI().Extension())
		if err != nil {
			format = utils.FormatMarkdown
		}
		data, err := utils.RenderArticle(a, format)
		if err != nil {
			l.app.showError("Save failed: " + err.Error())
			return
		}
		if _, err := writer.Write(data); err != nil {
			l.app.logger.Error("Failed to write article %s: %v", id, err)
			l.app.showError("Save failed: " + err.Error())
			return
		}

		l.app.generator.MarkSaved(id)
		l.app.logger.Info("Saved article %s to %s", id, writer.URI().String())
		l.app.setStatus(generator.Status{Text: "Saved " + filepath.Base(writer.URI().Path()), Level: generator.LevelSuccess}, true)
		l.Refresh()
	}, l.app.window)

	save.SetFileName(utils.GenerateExportFilename(a, utils.FormatMarkdown))
	if dir, err := utils.GetDefaultExportPath(l.app.config); err == nil {
		if lister, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil {
			save.SetLocation(lister)
		}
	}
	save.Show()
}

func (l *ArticleList) confirmDelete(id string) {
	dialog.ShowConfirm("Delete article", "Delete this article? This cannot be undone.", func(ok bool) {
		if !ok {
			return
		}
		if l.app.generator.Delete(id) {
			l.app.logger.Info("Deleted article %s", id)
			l.Refresh()
		}
	}, l.app.window)
}
