package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"reading-gen/ui"
)

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Open the desktop window (default)",
	Args:  cobra.NoArgs,
	RunE:  runGUI,
}

func runGUI(cmd *cobra.Command, args []string) error {
	rt, err := openRuntime(context.Background())
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("Starting reading-gen %s", version)

	app := ui.NewApp(ui.Options{
		Config:     rt.config,
		ConfigPath: rt.configPath,
		DB:         rt.db,
		Logger:     rt.logger,
		Anki:       rt.anki,
		Completer:  rt.llm,
		Settings:   rt.settings,
		Cache:      rt.cache,
	})
	defer app.Cleanup()

	app.Run()
	rt.logger.Info("Application stopped")
	return nil
}
