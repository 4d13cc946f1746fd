package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/armclient/internal/constants"
)

// ConfigDirName is the directory under $HOME holding config.yml.
const ConfigDirName = ".armc"

// configKeys are the settings that may be stored in the config file.
// Secrets are read from the environment only (ARMC_TOKEN, ARMC_CLIENT_SECRET).
var configKeys = []string{
	"api_version",
	"auth",
	"checkpoint_bucket",
	"checkpoint_store",
	"checkpoint_ttl",
	"client_id",
	"endpoint",
	"log_backend",
	"log_format",
	"nats_url",
	"otlp_endpoint",
	"otlp_insecure",
	"output",
	"requests_per_second",
	"retry_max",
	"tenant_id",
	"transport",
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the settings stored in ~/.armc/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigPathCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective configuration from flags, environment and config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := make(map[string]string)

			for _, key := range configKeys {
				if value := viper.GetString(key); value != "" {
					settings[key] = value
				}
			}

			data, err := json.Marshal(settings)
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}

			format, err := outputFormat(cmd.OutOrStdout())
			if err != nil {
				return err
			}

			return renderDocument(cmd.OutOrStdout(), format, data)
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Store a configuration value in the config file",
		Args:  cobra.ExactArgs(2), //nolint:mnd // key and value
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfigFile(args[0], func(settings map[string]interface{}) {
				settings[args[0]] = args[1]
			})
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfigFile(args[0], func(settings map[string]interface{}) {
				delete(settings, args[0])
			})
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)

			return err
		},
	}
}

// ConfigKeys returns the keys accepted by config set, sorted.
func ConfigKeys() []string {
	keys := slices.Clone(configKeys)
	sort.Strings(keys)

	return keys
}

func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ConfigDirName, "config.yml"), nil
}

func updateConfigFile(key string, update func(map[string]interface{})) error {
	if !slices.Contains(configKeys, key) {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	path, err := configFilePath()
	if err != nil {
		return err
	}

	settings := make(map[string]interface{})

	data, err := os.ReadFile(path) //nolint:gosec // path is the CLI's own config file
	switch {
	case err == nil:
		err = yaml.Unmarshal(data, &settings)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if settings == nil {
		settings = make(map[string]interface{})
	}

	update(settings)

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	err = os.WriteFile(path, out, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}
