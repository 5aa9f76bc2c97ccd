package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/glinvent/glinvent/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewCmdConfig creates the config command with subcommands.
func NewCmdConfig() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show configuration",
		Long: `Show configuration.

When run without arguments, shows the current merged configuration.

Subcommands:
  path  Show config file locations`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "yaml", "Output format (yaml, json)")

	cmd.AddCommand(NewCmdConfigPath())

	return cmd
}

// NewCmdConfigPath creates the config path subcommand.
func NewCmdConfigPath() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file locations",
		Long:  `Show the paths to global and local config files and indicate which exist.`,
		RunE:  runConfigPath,
	}
}

func runConfigShow(format string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	switch format {
	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Print(string(data))
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))
	default:
		return fmt.Errorf("invalid format: %s (must be yaml or json)", format)
	}

	return nil
}

func runConfigPath(_ *cobra.Command, _ []string) error {
	fmt.Println("Configuration file locations:")
	fmt.Println()

	globalStatus := "not found"
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		globalStatus = "exists"
	}
	fmt.Printf("  Global: %s (%s)\n", config.ConfigPath(), globalStatus)

	localStatus := "not found"
	if _, err := os.Stat(config.LocalConfigPath()); err == nil {
		localStatus = "exists"
	}
	fmt.Printf("  Local:  %s (%s)\n", config.LocalConfigPath(), localStatus)

	fmt.Println()
	fmt.Println("Load order: global -> local -> environment (local overrides global)")

	return nil
}
