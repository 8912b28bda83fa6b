package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
)

// setupSystemTray adds a tray menu on drivers that support one. Generation
// can then be started while the window is hidden.
func (a *App) setupSystemTray() {
	desk, ok := a.fyneApp.(desktop.App)
	if !ok {
		a.logger.Debug("System tray not supported by this driver")
		return
	}

	a.trayGenerate = fyne.NewMenuItem("Generate article", func() {
		a.window.Show()
		if !a.generateButton.Disabled() {
			a.generate()
		}
	})
	a.trayGenerate.Disabled = true

	menu := fyne.NewMenu("reading-gen",
		fyne.NewMenuItem("Show window", func() {
			a.window.Show()
		}),
		a.trayGenerate,
		fyne.NewMenuItem("Configuration", func() {
			a.window.Show()
			a.showSettings()
		}),
	)
	a.trayMenu = menu
	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(theme.DocumentIcon())

	if a.config.UI.MinimizeToTray {
		a.window.SetCloseIntercept(func() {
			a.logger.Debug("Window close intercepted, hiding to tray")
			a.window.Hide()
		})
	}
	a.logger.Info("System tray initialized")
}

// setGenerateEnabled keeps the button and the tray entry in step
func (a *App) setGenerateEnabled(enabled bool) {
	if enabled {
		a.generateButton.Enable()
	} else {
		a.generateButton.Disable()
	}
	if a.trayGenerate != nil {
		a.trayGenerate.Disabled = !enabled
		a.trayMenu.Refresh()
	}
}
