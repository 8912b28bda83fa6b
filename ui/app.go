package ui

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"reading-gen/anki"
	"reading-gen/cache"
	"reading-gen/db"
	"reading-gen/generator"
	"reading-gen/llm"
	"reading-gen/settings"
	"reading-gen/utils"
)

// Options carries the services the window is built on.
type Options struct {
	Config     *utils.Config
	ConfigPath string
	DB         *db.DB
	Logger     *utils.Logger
	Anki       *anki.Client
	Completer  *llm.Client
	Settings   *settings.Manager
	Cache      cache.Cache
}

// App represents the main application
type App struct {
	fyneApp    fyne.App
	window     fyne.Window
	config     *utils.Config
	configPath string
	db         *db.DB
	logger     *utils.Logger
	anki       *anki.Client
	completer  *llm.Client
	settings   *settings.Manager
	cache      cache.Cache
	generator  *generator.Service

	// UI components
	statusLabel    *widget.Label
	progressBar    *widget.ProgressBarInfinite
	generateButton *widget.Button
	articles       *ArticleList
	settingsView   *SettingsView
	settingsWindow fyne.Window
	trayMenu       *fyne.Menu
	trayGenerate   *fyne.MenuItem

	// running is only touched on the UI goroutine
	running   bool
	statusSeq atomic.Uint64
}

// NewApp creates a new application instance
func NewApp(opts Options) *App {
	return newApp(app.NewWithID("reading-gen"), opts)
}

func newApp(fyneApp fyne.App, opts Options) *App {
	window := fyneApp.NewWindow("Anki Reading Generator")

	window.Resize(fyne.NewSize(
		float32(opts.Config.UI.WindowWidth),
		float32(opts.Config.UI.WindowHeight),
	))

	a := &App{
		fyneApp:    fyneApp,
		window:     window,
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		logger:     opts.Logger,
		anki:       opts.Anki,
		completer:  opts.Completer,
		settings:   opts.Settings,
		cache:      opts.Cache,
	}

	a.generator = generator.New(generator.Deps{
		Flashcards: opts.Anki,
		Completer:  opts.Completer,
		Cache:      opts.Cache,
		Settings:   opts.Settings,
		Logger:     opts.Logger.Zap(),
		Progress: func(stage generator.Stage) {
			fyne.Do(func() { a.setStatus(generator.Status{Text: stage.String(), Level: generator.LevelInfo}, false) })
		},
	})

	window.SetOnClosed(func() {
		size := window.Canvas().Size()
		a.config.UI.WindowWidth = int(size.Width)
		a.config.UI.WindowHeight = int(size.Height)
		if err := utils.SaveConfig(a.configPath, a.config); err != nil {
			a.logger.Error("Failed to save window size: %v", err)
		}
	})

	a.applyThemeFromConfig()
	a.buildUI()
	a.setupSystemTray()

	if w := a.settings.Warning(); w != "" {
		a.setStatus(generator.Status{Text: w, Level: generator.LevelWarning}, true)
	}

	return a
}

// buildUI builds the main UI
func (a *App) buildUI() {
	a.settingsView = NewSettingsView(a)
	a.articles = NewArticleList(a)

	a.generateButton = widget.NewButton("Generate article", a.generate)
	a.generateButton.Importance = widget.HighImportance
	a.generateButton.Disable()

	settingsButton := widget.NewButton("Configuration", a.showSettings)

	a.statusLabel = widget.NewLabel("Connecting to Anki...")
	a.statusLabel.Wrapping = fyne.TextWrapWord
	a.progressBar = widget.NewProgressBarInfinite()
	a.progressBar.Hide()

	header := container.NewVBox(
		container.NewHBox(a.generateButton, settingsButton),
		a.progressBar,
		a.statusLabel,
		widget.NewSeparator(),
	)

	a.window.SetContent(container.NewBorder(header, nil, nil, nil, a.articles.Build()))
	a.setupKeyboardShortcuts()
}

// setupKeyboardShortcuts sets up global keyboard shortcuts
func (a *App) setupKeyboardShortcuts() {
	// Ctrl+G: Generate
	a.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyG,
		Modifier: desktop.ControlModifier,
	}, func(shortcut fyne.Shortcut) {
		if !a.generateButton.Disabled() {
			a.generate()
		}
	})

	// Ctrl+Comma: Settings
	a.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyComma,
		Modifier: desktop.ControlModifier,
	}, func(shortcut fyne.Shortcut) {
		a.showSettings()
	})
}

// Run connects to Anki in the background and starts the event loop
func (a *App) Run() {
	a.connectAnki()
	a.window.ShowAndRun()
}

// connectAnki runs the startup handshake and enables generation once the
// client is ready
func (a *App) connectAnki() {
	utils.SafeGo(a.logger, "connectAnki", func() {
		err := a.anki.Init(context.Background(), a.config.Anki.CORSOrigins)
		fyne.Do(func() { a.handleAnkiInit(err) })
	})
}

// handleAnkiInit reports the handshake result. Generation stays disabled
// while a run is in flight; finishGeneration re-enables it.
func (a *App) handleAnkiInit(err error) {
	var corsErr *anki.CORSError
	switch {
	case err == nil:
		a.setStatus(generator.Status{Text: fmt.Sprintf("Connected to AnkiConnect (API v%d)", a.anki.APIVersion()), Level: generator.LevelSuccess}, true)
	case errors.As(err, &corsErr):
		a.setStatus(generator.Status{Text: "Connected, but updating AnkiConnect CORS settings failed.\n" + anki.Remediation, Level: generator.LevelWarning}, true)
	default:
		a.logger.Error("AnkiConnect handshake failed: %v", err)
		a.setStatus(generator.Status{Text: "Cannot connect to Anki.\n" + anki.Remediation, Level: generator.LevelError}, false)
	}
	a.setGenerateEnabled(a.anki.Ready() && !a.running)
}

// generate starts one generation run. A panic inside the run is reported
// like any other failure so the button is always re-enabled.
func (a *App) generate() {
	if a.running {
		return
	}
	a.running = true
	a.setGenerateEnabled(false)
	a.progressBar.Show()
	a.progressBar.Start()

	utils.SafeGoWithError(a.logger, "generate", func() error {
		out, err := a.generator.Run(context.Background())
		if err != nil {
			return err
		}
		fyne.Do(func() { a.finishGeneration(out, nil) })
		return nil
	}, func(err error) {
		fyne.Do(func() { a.finishGeneration(generator.Outcome{}, err) })
	})
}

func (a *App) finishGeneration(out generator.Outcome, err error) {
	a.running = false
	a.progressBar.Stop()
	a.progressBar.Hide()
	a.setGenerateEnabled(a.anki.Ready())
	a.setStatus(generator.Describe(out, err), true)
	if err == nil && out.Status != generator.StatusNoCards {
		a.articles.Refresh()
	}
}

// setStatus shows a message. When expire is set the message is cleared
// after its level's duration unless a newer message replaced it.
func (a *App) setStatus(s generator.Status, expire bool) {
	seq := a.statusSeq.Add(1)
	a.statusLabel.SetText(statusPrefix(s.Level) + s.Text)
	a.statusLabel.Importance = statusImportance(s.Level)
	a.statusLabel.Refresh()

	if !expire {
		return
	}
	time.AfterFunc(s.Duration(), func() {
		fyne.Do(func() {
			if a.statusSeq.Load() == seq {
				a.statusLabel.SetText("")
			}
		})
	})
}

func statusPrefix(l generator.Level) string {
	switch l {
	case generator.LevelSuccess:
		return "✅ "
	case generator.LevelWarning:
		return "⚠️ "
	case generator.LevelError:
		return "❌ "
	default:
		return ""
	}
}

func statusImportance(l generator.Level) widget.Importance {
	switch l {
	case generator.LevelSuccess:
		return widget.SuccessImportance
	case generator.LevelWarning:
		return widget.WarningImportance
	case generator.LevelError:
		return widget.DangerImportance
	default:
		return widget.MediumImportance
	}
}

// showSettings opens the configuration window, or focuses it when it is
// already open
func (a *App) showSettings() {
	if a.settingsWindow != nil {
		a.settingsWindow.RequestFocus()
		return
	}

	settingsWin := a.fyneApp.NewWindow("Configuration")
	a.settingsWindow = settingsWin
	settingsWin.SetOnClosed(func() { a.settingsWindow = nil })
	a.settingsView.SetWindow(settingsWin)
	settingsWin.SetContent(a.settingsView.Build())
	settingsWin.Resize(fyne.NewSize(720, 640))
	settingsWin.Show()
}

// showError shows an error dialog
func (a *App) showError(message string) {
	showMessage(a.window.Canvas(), "❌ Error", message)
}

func showMessage(canvas fyne.Canvas, title, message string) {
	label := widget.NewLabel(message)
	label.Wrapping = fyne.TextWrapWord

	var popup *widget.PopUp
	popup = widget.NewModalPopUp(
		container.NewVBox(
			widget.NewLabel(title),
			label,
			widget.NewButton("OK", func() {
				popup.Hide()
			}),
		),
		canvas,
	)
	popup.Resize(fyne.NewSize(420, popup.MinSize().Height))
	popup.Show()
}

// applyThemeFromConfig applies the theme from config
func (a *App) applyThemeFromConfig() {
	isDark := a.config.UI.Theme == "dark"
	fontSize := a.config.UI.FontSize
	if fontSize < 10 {
		fontSize = 14
	}

	a.fyneApp.Settings().SetTheme(newReadingTheme(fontSize, isDark))
	a.logger.Debug("Applied theme dark=%v font size %d", isDark, fontSize)
}

// Cleanup is called after the event loop exits
func (a *App) Cleanup() {
	a.logger.Info("Closing window, %d article(s) in this session", len(a.generator.Articles()))
}
