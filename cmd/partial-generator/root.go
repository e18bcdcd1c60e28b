package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"partial-generator/internal/config"
)

var (
	// Global flags
	cfgFile string
	verbose int

	logger = zerolog.Nop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "partial-generator",
	Short: "Generate partial forms of annotated Go types",
	Long: `partial-generator generates the partial form of annotated Go types.

A type is annotated with a directive comment:

  //partial:generate
  //partial:generate suffix=Patch derive=json,fmt.Stringer

The generated type has every field wrapped in a pointer unless the field is
tagged partial:"required". Converters move values between the two forms and
merge a partial value into a full one.

Quick start:
  partial-generator gen ./...             # write zz_generated.partial.go files
  partial-generator gen --dry-run ./...   # print instead of writing
  partial-generator inspect ./...         # show the generated schemas`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(cmd.ErrOrStderr(), verbose)
	},
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultFile, "config file path")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
}

func newLogger(out io.Writer, verbosity int) zerolog.Logger {
	level := zerolog.WarnLevel

	switch {
	case verbosity >= 2:
		level = zerolog.DebugLevel
	case verbosity == 1:
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadConfig reads the config file. The default file is optional; a file
// named with --config must exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Flags().Changed("config") {
		return config.LoadFile(cfgFile)
	}

	return config.LoadOptional(cfgFile)
}
