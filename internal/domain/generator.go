package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"gambitrun.dev/pkg/gambitrun/internal/adapter"
	m "gambitrun.dev/pkg/gambitrun/internal/model"
)

// GenerateArgs contains the arguments for synthesizing a gambit
// configuration and invoking the external mutation generator.
type GenerateArgs struct {
	// InputDir is crawled recursively for .sol files.
	InputDir m.Path
	// FoundryToml is the foundry configuration supplying solc remappings.
	FoundryToml m.Path
	// Output is the gambit.json path to write.
	Output m.Path
	// SourceRoot is the sourceroot value stamped on each entry.
	SourceRoot string
	// ExtraArgs are passed through to `gambit mutate` verbatim.
	ExtraArgs []string
}

// gambitEntry is one element of the gambit.json configuration.
type gambitEntry struct {
	Filename       string   `json:"filename"`
	SourceRoot     string   `json:"sourceroot"`
	SolcRemappings []string `json:"solc_remappings"`
}

// Generator synthesizes gambit.json from the project layout and delegates
// mutant generation to the external gambit binary.
type Generator struct {
	fs     adapter.ProjectFSAdapter
	runner adapter.ShellRunnerAdapter
}

// NewGenerator constructs a Generator.
func NewGenerator(fs adapter.ProjectFSAdapter, runner adapter.ShellRunnerAdapter) *Generator {
	return &Generator{fs: fs, runner: runner}
}

// Generate writes the gambit configuration and runs `gambit mutate`.
func (g *Generator) Generate(ctx context.Context, args GenerateArgs) error {
	count, err := g.WriteConfig(args)
	if err != nil {
		return err
	}

	slog.Info("wrote gambit configuration", "entries", count, "output", args.Output)

	return g.Mutate(ctx, args)
}

// WriteConfig crawls the input directory and writes gambit.json. Returns
// the number of entries written.
func (g *Generator) WriteConfig(args GenerateArgs) (int, error) {
	remappings, err := g.parseRemappings(args.FoundryToml)
	if err != nil {
		return 0, err
	}

	solFiles, err := g.findSolFiles(args.InputDir)
	if err != nil {
		return 0, err
	}

	if len(solFiles) == 0 {
		return 0, fmt.Errorf("no .sol files found under %s", args.InputDir)
	}

	entries := make([]gambitEntry, 0, len(solFiles))
	for _, solFile := range solFiles {
		entries = append(entries, gambitEntry{
			Filename:       solFile,
			SourceRoot:     args.SourceRoot,
			SolcRemappings: remappings,
		})
	}

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return 0, fmt.Errorf("encode gambit config: %w", err)
	}

	data = append(data, '\n')

	if err := g.fs.WriteFile(args.Output, data, 0o600); err != nil {
		return 0, fmt.Errorf("write gambit config %s: %w", args.Output, err)
	}

	return len(entries), nil
}

// Mutate invokes `gambit mutate` against the written configuration. The
// generator has no bounded runtime, so no deadline is applied.
func (g *Generator) Mutate(ctx context.Context, args GenerateArgs) error {
	command := strings.Join(append(
		[]string{"gambit", "mutate", "--json", shellQuote(string(args.Output))},
		args.ExtraArgs...), " ")

	slog.Info("running mutation generator", "command", command)

	execution := g.runner.Run(ctx, ".", command, 0)

	if execution.Err != nil {
		return fmt.Errorf("gambit mutate could not run (is gambit on PATH?): %w", execution.Err)
	}

	if execution.ExitCode != 0 {
		return fmt.Errorf("gambit mutate failed with exit code %d", execution.ExitCode)
	}

	return nil
}

// parseRemappings reads solc remappings from foundry.toml, preferring the
// default profile over a top-level key.
func (g *Generator) parseRemappings(foundryToml m.Path) ([]string, error) {
	if _, err := g.fs.FileInfo(foundryToml); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("foundry config %s: %w", foundryToml, err)
	}

	v := viper.New()
	v.SetConfigFile(string(foundryToml))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("parse foundry config %s: %w", foundryToml, err)
	}

	if v.IsSet("profile.default.remappings") {
		return v.GetStringSlice("profile.default.remappings"), nil
	}

	return v.GetStringSlice("remappings"), nil
}

// findSolFiles returns every .sol file under inputDir, sorted by the walk
// order of the filesystem.
func (g *Generator) findSolFiles(inputDir m.Path) ([]string, error) {
	var solFiles []string

	err := g.fs.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || filepath.Ext(path) != ".sol" {
			return nil
		}

		solFiles = append(solFiles, path)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", inputDir, err)
	}

	return solFiles, nil
}

// shellQuote wraps value in single quotes for safe interpolation into the
// generator command line.
func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}
