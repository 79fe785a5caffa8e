package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jfmyers9/playwait/internal/config"
	"github.com/spf13/cobra"
)

var configForce bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialise the configuration file",
	Long: `Show where playwait reads its configuration from, or write the
effective configuration (defaults plus environment overrides) to
~/.config/playwait/config.yaml as a starting point for editing.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), configFilePath())
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.OutOrStdout(), configForce)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing configuration file")
}

// configFilePath returns the path Load reads and Save writes
func configFilePath() string {
	return filepath.Join(config.GetConfigDir(), "config.yaml")
}

// initConfig saves the effective configuration, refusing to replace an
// existing file unless force is set
func initConfig(w io.Writer, force bool) error {
	path := configFilePath()
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	_, err = fmt.Fprintf(w, "Wrote %s\n", path)
	return err
}
