package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"partial-generator/internal/gen"
	"partial-generator/internal/watch"
)

var genCmd = &cobra.Command{
	Use:   "gen [packages]",
	Short: "Generate partial types",
	Long: `Generate the partial form of every annotated type in the given packages.

One file is written per package, next to its sources. Packages default to
./... and follow the go tool pattern syntax.

Types that cannot be generated are reported with their position; the other
types of the run are still written and the command exits non-zero.

Examples:
  partial-generator gen
  partial-generator gen ./internal/settings
  partial-generator gen --dry-run ./...
  partial-generator gen --watch ./...`,
	RunE: runGen,
}

var (
	genOutput string
	genDryRun bool
	genWatch  bool
)

func init() {
	rootCmd.AddCommand(genCmd)

	genCmd.Flags().StringVarP(&genOutput, "output", "o", "", "generated file name (overrides the config file)")
	genCmd.Flags().BoolVar(&genDryRun, "dry-run", false, "print generated code instead of writing it")
	genCmd.Flags().BoolVarP(&genWatch, "watch", "w", false, "regenerate when sources change")
}

func runGen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if genOutput != "" {
		cfg.Output = genOutput
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	p := &pipeline{cfg: cfg, patterns: patterns(args), logger: logger}
	out := cmd.OutOrStdout()

	dirs, err := generateOnce(cmd.Context(), p, out)
	if !genWatch {
		return err
	}

	if err != nil {
		logger.Error().Err(err).Msg("generation failed")
	}

	if len(dirs) == 0 {
		return errors.New("watch: no package directories to watch")
	}

	w, err := watch.New(watch.Options{
		Dirs:   dirs,
		Ignore: []string{cfg.Output},
		Files:  []string{cfgFile},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Run(cmd.Context(), func(ctx context.Context) error {
		if reloaded, err := loadConfig(cmd); err != nil {
			logger.Error().Err(err).Msg("config reload failed, keeping old config")
		} else {
			if genOutput != "" {
				reloaded.Output = genOutput
			}

			p.cfg = reloaded
		}

		_, err := generateOnce(ctx, p, out)

		return err
	})
}

// generateOnce runs the pipeline once, then writes or prints the files. It
// returns the package directories that were loaded.
func generateOnce(ctx context.Context, p *pipeline, out io.Writer) ([]string, error) {
	resolved, files, runErr := p.run(ctx)
	if resolved == nil {
		return nil, runErr
	}

	if genDryRun {
		for _, f := range files {
			if f.Remove {
				fmt.Fprintf(out, "// %s (removed)\n", f.Path())
				continue
			}

			fmt.Fprintf(out, "// %s\n%s\n", f.Path(), f.Content)
		}

		return dirs(resolved), runErr
	}

	written, err := gen.WriteFiles(files)
	for _, path := range written {
		logger.Info().Str("file", path).Msg("wrote")
	}

	logger.Info().
		Int("files", len(files)).
		Int("changed", len(written)).
		Int("types", len(resolved.Schemas)).
		Msg("generation done")

	return dirs(resolved), errors.Join(runErr, err)
}

func patterns(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}

	return args
}
