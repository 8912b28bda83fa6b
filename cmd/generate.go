package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"reading-gen/anki"
	"reading-gen/generator"
	"reading-gen/utils"
)

var (
	flagSaveDir string
	flagFormat  string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one article without opening the window",
	Long: `Connect to AnkiConnect, generate an article from today's reviews and
print it as Markdown. With --save-dir the article is also written to a file.

The run uses the stored configuration; change it with "reading-gen config set".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := utils.ParseExportFormat(flagFormat)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		stderr := cmd.ErrOrStderr()
		if w := rt.settings.Warning(); w != "" {
			fmt.Fprintln(stderr, "warning:", w)
		}

		if err := rt.anki.Init(ctx, rt.config.Anki.CORSOrigins); err != nil {
			var corsErr *anki.CORSError
			if !errors.As(err, &corsErr) {
				return errors.New(generator.Describe(generator.Outcome{}, err).Text)
			}
			fmt.Fprintln(stderr, "warning:", err)
		}

		svc := generator.New(generator.Deps{
			Flashcards: rt.anki,
			Completer:  rt.llm,
			Cache:      rt.cache,
			Settings:   rt.settings,
			Logger:     rt.logger.Zap(),
			Progress: func(stage generator.Stage) {
				fmt.Fprintln(stderr, stage)
			},
		})

		out, err := svc.Run(ctx)
		status := generator.Describe(out, err)
		if err != nil {
			return errors.New(status.Text)
		}
		if out.Status == generator.StatusNoCards {
			fmt.Fprintln(stderr, status.Text)
			return nil
		}

		fmt.Fprint(cmd.OutOrStdout(), utils.ArticleMarkdown(out.Article))

		if flagSaveDir != "" {
			path := utils.UniquePath(filepath.Join(flagSaveDir, utils.GenerateExportFilename(out.Article, format)))
			if err := utils.ExportArticle(out.Article, path); err != nil {
				return fmt.Errorf("saving article: %w", err)
			}
			svc.MarkSaved(out.Article.ID)
			rt.logger.Info("Saved article %s to %s", out.Article.ID, path)
			fmt.Fprintln(stderr, "Saved", path)
		}

		fmt.Fprintln(stderr, status.Text)
		if status.Level == generator.LevelError {
			return errNoteFailed
		}
		return nil
	},
}

// errNoteFailed makes the process exit non-zero after the article itself
// has been printed.
var errNoteFailed = errors.New("article was not added to Anki")

func init() {
	generateCmd.Flags().StringVar(&flagSaveDir, "save-dir", "", "directory to write the article to")
	generateCmd.Flags().StringVar(&flagFormat, "format", "markdown", "file format for --save-dir (markdown, json, html)")
}
