package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stagefs/stagefs/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stagefs configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.GetDefaultConfigPath()
		}

		cfg := config.GetDefaultConfig()
		if err := config.SaveConfig(cfg, path); err != nil {
			return err
		}

		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.MustLoad(cfgFile)
		if err != nil {
			return err
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("configuration is invalid: %w", err)
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
}
