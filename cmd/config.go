package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"reading-gen/settings"
)

var flagShowToken bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the generation configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "config file: %s\ndatabase:    %s\n\n", rt.configPath, rt.config.Data.DBPath)
		printSettings(cmd.OutOrStdout(), rt.settings.Current(), flagShowToken)
		if w := rt.settings.Warning(); w != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set key=value...",
	Short: "Change configuration fields",
	Long: `Change one or more configuration fields at once. The values are checked
together and nothing is stored if any of them is invalid.

Keys: ` + strings.Join(settings.FieldNames, ", ") + `

Example:
  reading-gen config set request_url=https://api.openai.com/v1/chat/completions model_name=gpt-4o-mini`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseAssignments(args)
		if err != nil {
			return err
		}
		patch, err := settings.PatchFromValues(values)
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		updated, err := rt.settings.Apply(cmd.Context(), patch)
		if err != nil {
			return err
		}
		rt.logger.Info("Configuration updated from the command line (%d field(s))", len(values))
		printSettings(cmd.OutOrStdout(), updated, false)
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the configuration with the defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()

		if _, err := rt.settings.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults.")
		return nil
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&flagShowToken, "show-token", false, "print the API token unmasked")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
}

// parseAssignments turns key=value arguments into a value map. Only the
// first '=' splits, so values may contain '='.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid argument %q, expected key=value", arg)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("%s given more than once", key)
		}
		values[key] = value
	}
	return values, nil
}

func printSettings(w io.Writer, s settings.Settings, showToken bool) {
	values := s.Values()
	if !showToken {
		values["api_token"] = s.MaskedToken()
	}
	for _, key := range settings.FieldNames {
		value := values[key]
		if key == "prompt_template" {
			value = strings.ReplaceAll(value, "\n", `\n`)
		}
		fmt.Fprintf(w, "%-18s %s\n", key, value)
	}
}
