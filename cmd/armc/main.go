package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/armclient/cmd/armc/commands"
	"github.com/fivetwenty-io/armclient/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "armc",
	Short: "Azure Resource Manager CLI",
	Long: `A command-line interface for Azure Resource Manager.

armc reads, writes and lists any resource by path and API version, following
next links for paged collections without knowing the resource type.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()

	// Global flags
	flags.StringP("config", "c", "", "config file (default is $HOME/.armc/config.yml)")
	flags.StringP("endpoint", "e", "", "Resource Manager endpoint (default "+constants.DefaultEndpoint+")")
	flags.String("auth", "", "authentication: none, token, cli, default, client-secret")
	flags.StringP("token", "t", "", "bearer token for --auth token (or ARMC_TOKEN)")
	flags.String("tenant-id", "", "tenant for client-secret and cli auth")
	flags.String("client-id", "", "application ID for client-secret auth (secret from ARMC_CLIENT_SECRET)")
	flags.String("transport", "", "HTTP transport: retryable, azcore")
	flags.Int("retry-max", 0, "maximum retries for throttled or failed requests")
	flags.Int("requests-per-second", 0, "client-side rate limit, 0 disables it")
	flags.String("api-version-default", "", "API version used when a command has no --api-version")
	flags.StringP("output", "o", "", "output format (table, json, yaml, raw); table on a terminal, json otherwise")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("log-backend", commands.LogBackendLogrus, "log backend (logrus, zap)")
	flags.String("metrics-file", "", "write Prometheus request metrics to this file on exit")
	flags.String("otlp-endpoint", "", "export traces to this OTLP gRPC collector")
	flags.Bool("otlp-insecure", false, "disable TLS towards the OTLP collector")
	flags.String("checkpoint-store", "", "checkpoint store for list --checkpoint (memory, nats)")
	flags.String("nats-url", "", "NATS server for the nats checkpoint store")

	// Bind flags to viper
	bindings := map[string]string{
		"config":              "config",
		"endpoint":            "endpoint",
		"auth":                "auth",
		"token":               "token",
		"tenant_id":           "tenant-id",
		"client_id":           "client-id",
		"transport":           "transport",
		"retry_max":           "retry-max",
		"requests_per_second": "requests-per-second",
		"api_version":         "api-version-default",
		"output":              "output",
		"verbose":             "verbose",
		"log_format":          "log-format",
		"log_backend":         "log-backend",
		"metrics_file":        "metrics-file",
		"otlp_endpoint":       "otlp-endpoint",
		"otlp_insecure":       "otlp-insecure",
		"checkpoint_store":    "checkpoint-store",
		"nats_url":            "nats-url",
	}

	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewGetCommand())
	rootCmd.AddCommand(commands.NewPutCommand())
	rootCmd.AddCommand(commands.NewPatchCommand())
	rootCmd.AddCommand(commands.NewPostCommand())
	rootCmd.AddCommand(commands.NewDeleteCommand())
	rootCmd.AddCommand(commands.NewListCommand())

	commands.Version = version
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.armc/config.yml
		viper.AddConfigPath(filepath.Join(home, commands.ConfigDirName))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match, e.g. ARMC_CLIENT_SECRET
	viper.SetEnvPrefix("ARMC")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// client_secret has no flag
	_ = viper.BindEnv("client_secret")

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
