package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/canonical/go-snapctl/env"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/basic"
	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/cmd/cli/config"
	"github.com/jpnorenam/legacy-patcher/cmd/cli/model"
	"github.com/jpnorenam/legacy-patcher/cmd/cli/others"
	"github.com/jpnorenam/legacy-patcher/cmd/cli/others/debug"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/storage"
)

func main() {
	hardwareCatalog, err := catalog.Default()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load the hardware catalog: %v\n", err)
		os.Exit(1)
	}

	storagePath := storage.DefaultStoragePath()
	ctx := &common.Context{
		Cache:   storage.NewDefaultCache(storagePath),
		Config:  storage.NewConfig(storagePath),
		Catalog: hardwareCatalog,
	}

	instanceName := common.CommandName()

	var settingsFile string

	// rootCmd is the base command
	// It gets populated with subcommands
	rootCmd := &cobra.Command{
		SilenceUsage: true,
		Long: instanceName + " prepares unsupported Macs to boot newer macOS releases.\n\n" +
			"It probes the host hardware, resolves the boot loader configuration and\n" +
			"system volume patches the machine needs, and applies them.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := persistentPreRunE(cmd, ctx); err != nil {
				return err
			}
			if settingsFile != "" {
				fileConfig, err := storage.NewFileConfig(settingsFile)
				if err != nil {
					return err
				}
				ctx.Config = fileConfig
			}
			return nil
		},
		Use: instanceName,
	}

	if env.Snap() != "" {
		rootCmd.SetUsageTemplate(rootCmd.UsageTemplate() + fmt.Sprintf("\nSnap revision %s\n", env.SnapRevision()))
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&ctx.Verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&ctx.LogFile, "log-file", "", "Also write logs to a rotated file")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "Read configurations from a YAML file instead of the stored ones")

	// Disable command sorting to keep commands sorted as added below
	cobra.EnableCommandSorting = false

	rootCmd.AddGroup(basic.Group("Basic Commands:"))
	rootCmd.AddCommand(
		basic.PlanCommand(ctx),
		basic.ApplyCommand(ctx),
		basic.BuildConfigCommand(ctx),
	)

	rootCmd.AddGroup(config.Group("Configuration Commands:"))
	rootCmd.AddCommand(
		config.GetCommand(ctx),
		config.SetCommand(ctx),
	)

	rootCmd.AddGroup(model.Group("Model Commands:"))
	rootCmd.AddCommand(
		model.ListCommand(ctx),
		model.ShowCommand(ctx),
	)

	// other commands (help is added by default)
	rootCmd.AddCommand(
		others.ShowMachineCommand(ctx),
		debug.DebugCommand(ctx),
	)

	// disable logging timestamps
	log.SetFlags(0)

	// Hide the 'completion' command from help text
	rootCmd.CompletionOptions.HiddenDefaultCmd = true

	err = rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func persistentPreRunE(cmd *cobra.Command, ctx *common.Context) error {
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if ctx.LogFile != "" {
		// The file keeps timestamps, the terminal does not
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
		logrus.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   ctx.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}))
	}

	// get value of verbose flag
	verbose := cmd.Flags().Lookup("verbose").Value.String() == "true"
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
		log.Println("Verbose output enabled globally.")
		return os.Setenv("VERBOSE", "true")
	}
	return nil
}
