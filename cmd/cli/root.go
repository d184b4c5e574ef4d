package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/advisorhub/internal/app"
	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/infrastructure/monitoring"
	"github.com/turtacn/advisorhub/pkg/logger"
)

var configFile string

// rootCmd represents the base command when the `advisorhub-admin` binary is called without any subcommands.
// rootCmd 代表在没有任何子命令的情况下调用 `advisorhub-admin` 二进制文件时的基本命令。
var rootCmd = &cobra.Command{
	Use:   "advisorhub-admin",
	Short: "A CLI tool for administering the AdvisorHub service.",
	Long: `advisorhub-admin performs operator tasks against the AdvisorHub database,
such as schema migration, firm provisioning, plan changes and report exports.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("ADVISORHUB_CONFIG"), "path to config.yaml")
}

// Execute is the main entry point for the CLI application.
// Execute 是 CLI 应用程序的主入口点。
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliLogger keeps operator output readable: warnings and errors only, console encoded.
func cliLogger() logger.Logger {
	log, _ := monitoring.NewZapLogger(&config.LogConfig{Level: "warn", Format: "console"})
	return log
}

// withContainer loads the configuration, builds the service container and runs fn with it.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	log := cliLogger()
	cfg, vault, err := app.LoadConfig(ctx, configFile, log)
	if err != nil {
		return err
	}
	c, err := app.New(ctx, cfg, vault, log)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

//Personal.AI order the ending
