package ui

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"reading-gen/settings"
	"reading-gen/utils"
)

// SettingsView is the configuration window. Edits are collected as raw
// strings and applied as one patch, so an invalid field rejects the whole
// save.
type SettingsView struct {
	app            *App
	settingsWindow fyne.Window

	entries map[string]*widget.Entry
	checks  map[string]*widget.Check
}

// NewSettingsView creates a new settings view
func NewSettingsView(app *App) *SettingsView {
	return &SettingsView{app: app}
}

// SetWindow sets the settings window reference
func (sv *SettingsView) SetWindow(window fyne.Window) {
	sv.settingsWindow = window
}

// Build builds the settings view UI from the current configuration
func (sv *SettingsView) Build() fyne.CanvasObject {
	sv.entries = map[string]*widget.Entry{}
	sv.checks = map[string]*widget.Check{}
	values := sv.app.settings.Current().Values()

	tabs := container.NewAppTabs(
		container.NewTabItem("Generation", sv.buildGenerationTab(values)),
		container.NewTabItem("Anki", sv.buildAnkiTab(values)),
		container.NewTabItem("Data", sv.buildDataSettings()),
	)

	saveButton := widget.NewButton("Save", sv.save)
	saveButton.Importance = widget.HighImportance
	resetButton := widget.NewButton("Reset to defaults", sv.confirmReset)
	resetButton.Importance = widget.WarningImportance

	return container.NewBorder(nil, container.NewHBox(saveButton, resetButton), nil, nil, tabs)
}

func (sv *SettingsView) entry(key, value string) *widget.Entry {
	e := widget.NewEntry()
	e.SetText(value)
	sv.entries[key] = e
	return e
}

func (sv *SettingsView) check(key, label, value string) *widget.Check {
	c := widget.NewCheck(label, nil)
	c.Checked = value == "true"
	sv.checks[key] = c
	return c
}

func (sv *SettingsView) buildGenerationTab(values map[string]string) fyne.CanvasObject {
	token := widget.NewPasswordEntry()
	token.SetText(values["api_token"])
	sv.entries["api_token"] = token

	url := sv.entry("request_url", values["request_url"])
	url.SetPlaceHolder("https://api.example.com/v1/chat/completions")

	prompt := widget.NewMultiLineEntry()
	prompt.SetText(values["prompt_template"])
	prompt.Wrapping = fyne.TextWrapWord
	prompt.SetMinRowsVisible(6)
	sv.entries["prompt_template"] = prompt

	stop := sv.entry("stop_sequences", values["stop_sequences"])
	stop.SetPlaceHolder("comma separated")

	promptHint := widget.NewLabel(fmt.Sprintf("%s is replaced by today's vocabulary and must appear exactly once.", settings.Placeholder))
	promptHint.Wrapping = fyne.TextWrapWord
	promptHint.TextStyle = fyne.TextStyle{Italic: true}

	form := widget.NewForm(
		widget.NewFormItem("API Token", token),
		widget.NewFormItem("Request URL", url),
		widget.NewFormItem("Model", sv.entry("model_name", values["model_name"])),
		widget.NewFormItem("Max Tokens", sv.entry("max_tokens", values["max_tokens"])),
		widget.NewFormItem("Temperature", sv.entry("temperature", values["temperature"])),
		widget.NewFormItem("Top P", sv.entry("top_p", values["top_p"])),
		widget.NewFormItem("Top K", sv.entry("top_k", values["top_k"])),
		widget.NewFormItem("Frequency Penalty", sv.entry("frequency_penalty", values["frequency_penalty"])),
		widget.NewFormItem("Stop Sequences", stop),
		widget.NewFormItem("Prompt", container.NewVBox(prompt, promptHint)),
		widget.NewFormItem("", sv.check("enable_cache", "Reuse cached articles for the same vocabulary", values["enable_cache"])),
	)
	return container.NewVScroll(form)
}

func (sv *SettingsView) buildAnkiTab(values map[string]string) fyne.CanvasObject {
	form := widget.NewForm(
		widget.NewFormItem("Vocabulary Field", sv.entry("input_field_name", values["input_field_name"])),
		widget.NewFormItem("", sv.check("add_to_card", "Add generated articles to Anki", values["add_to_card"])),
		widget.NewFormItem("Deck", sv.entry("deck_name", values["deck_name"])),
		widget.NewFormItem("Note Type", sv.entry("note_type_name", values["note_type_name"])),
		widget.NewFormItem("Article Field", sv.entry("output_field_name", values["output_field_name"])),
	)

	endpoint := widget.NewLabel(fmt.Sprintf("AnkiConnect: %s (state: %s)", sv.app.config.Anki.URL, sv.app.anki.State()))
	reconnect := widget.NewButton("Reconnect", func() {
		sv.app.connectAnki()
		sv.showSuccess("Reconnecting to AnkiConnect, see the status line in the main window")
	})

	return container.NewVBox(form, widget.NewSeparator(), endpoint, container.NewHBox(reconnect))
}

// collect reads every field into the string map PatchFromValues accepts
func (sv *SettingsView) collect() map[string]string {
	values := make(map[string]string, len(sv.entries)+len(sv.checks))
	for key, e := range sv.entries {
		values[key] = e.Text
	}
	for key, c := range sv.checks {
		values[key] = fmt.Sprintf("%t", c.Checked)
	}
	return values
}

func (sv *SettingsView) save() {
	patch, err := settings.PatchFromValues(sv.collect())
	if err != nil {
		sv.showError(err.Error())
		return
	}

	if _, err := sv.app.settings.Apply(context.Background(), patch); err != nil {
		sv.app.logger.Warn("Configuration not saved: %v", err)
		sv.showError(err.Error())
		return
	}

	sv.app.logger.Info("Configuration saved")
	sv.showSuccess("Configuration saved")
}

func (sv *SettingsView) confirmReset() {
	dialog.ShowConfirm("Reset configuration", "Replace the whole configuration with the defaults?", func(ok bool) {
		if !ok {
			return
		}
		if _, err := sv.app.settings.Reset(context.Background()); err != nil {
			sv.showError(err.Error())
			return
		}
		if sv.settingsWindow != nil {
			sv.settingsWindow.SetContent(sv.Build())
		}
		sv.showSuccess("Configuration reset to defaults")
	}, sv.settingsWindow)
}

// buildDataSettings builds the data settings section
func (sv *SettingsView) buildDataSettings() fyne.CanvasObject {
	statsLabel := widget.NewLabel("Loading statistics...")
	statsLabel.Wrapping = fyne.TextWrapWord
	sv.updateDBStats(statsLabel)

	dbPathEntry := widget.NewEntry()
	dbPathEntry.SetText(sv.app.config.Data.DBPath)
	dbPathEntry.Disable()

	dbPathNote := widget.NewLabel("Changing the database path requires editing " + sv.app.configPath + " and restarting")
	dbPathNote.Wrapping = fyne.TextWrapWord
	dbPathNote.TextStyle = fyne.TextStyle{Italic: true}

	clearCacheBtn := widget.NewButton("Clear article cache", func() {
		dialog.ShowConfirm("Clear cache", "Forget every cached article?", func(ok bool) {
			if !ok {
				return
			}
			if err := sv.app.cache.Clear(context.Background()); err != nil {
				sv.app.logger.Error("Failed to clear cache: %v", err)
				sv.showError("Failed to clear cache: " + err.Error())
				return
			}
			sv.app.logger.Info("Article cache cleared")
			sv.updateDBStats(statsLabel)
		}, sv.settingsWindow)
	})
	clearCacheBtn.Importance = widget.WarningImportance

	vacuumBtn := widget.NewButton("Optimize database", func() {
		sv.vacuumDatabase(statsLabel)
	})
	usageLabel := sv.app.newUsageLabel()
	refreshStatsBtn := widget.NewButton("Refresh", func() {
		sv.updateDBStats(statsLabel)
		usageLabel.SetText(usageText(sv.app.completer.Usage()))
	})

	form := widget.NewForm(
		widget.NewFormItem("Database", container.NewVBox(dbPathEntry, dbPathNote)),
		widget.NewFormItem("Log file", widget.NewLabel(utils.GetLogPath(sv.app.config.Data.LogDir))),
	)

	return container.NewVBox(
		form,
		widget.NewSeparator(),
		statsLabel,
		usageLabel,
		container.NewHBox(refreshStatsBtn, clearCacheBtn, vacuumBtn),
	)
}

// updateDBStats updates the database statistics label
func (sv *SettingsView) updateDBStats(label *widget.Label) {
	stats, err := sv.app.db.GetStats()
	if err != nil {
		sv.app.logger.Error("Failed to get DB stats: %v", err)
		label.SetText("Statistics unavailable")
		return
	}

	label.SetText(fmt.Sprintf(
		"Cached articles: %d\nStored keys: %d\nStored data: %s\nDatabase size: %s",
		sv.app.cache.Len(),
		stats.KeyCount,
		formatBytes(stats.ValueBytes),
		formatBytes(stats.DBSizeBytes),
	))
}

func (sv *SettingsView) vacuumDatabase(statsLabel *widget.Label) {
	if err := sv.app.db.Vacuum(); err != nil {
		sv.app.logger.Error("Failed to vacuum database: %v", err)
		sv.showError("Optimize failed: " + err.Error())
		return
	}

	sv.app.logger.Info("Database vacuum completed")
	sv.updateDBStats(statsLabel)
}

func formatBytes(n int64) string {
	kb := float64(n) / 1024.0
	if mb := kb / 1024.0; mb >= 1.0 {
		return fmt.Sprintf("%.2f MB", mb)
	}
	return fmt.Sprintf("%.2f KB", kb)
}

// showError shows an error message
func (sv *SettingsView) showError(message string) {
	showMessage(sv.getCanvas(), "❌ Error", message)
}

// showSuccess shows a success message
func (sv *SettingsView) showSuccess(message string) {
	showMessage(sv.getCanvas(), "✅ Success", message)
}

// getCanvas returns the canvas to use for dialogs
func (sv *SettingsView) getCanvas() fyne.Canvas {
	if sv.settingsWindow != nil {
		return sv.settingsWindow.Canvas()
	}
	return sv.app.window.Canvas()
}
