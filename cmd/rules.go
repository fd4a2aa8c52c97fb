// Package cmd provides command-line interface commands for dhikr.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dhikr/config"
	"dhikr/core"
	"dhikr/storage"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

const (
	maxRulesFileSize = 1024 * 1024
	defaultTimeout   = 1 * time.Minute
)

// rulesOptions holds the persistent flags shared by every rules subcommand
type rulesOptions struct {
	outputJSON bool
	noColor    bool
	quiet      bool
	dbPath     string
}

// NewRulesCmd creates the root rules command with all subcommands.
func NewRulesCmd() *cobra.Command {
	opts := &rulesOptions{}

	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage reminder rules",
		Long: `Manage the reminder rules that map a domain (and optional path) to a
category and the verse shown for it.

Rules are seeded once into an empty database, either from the built-in
defaults or from a YAML file with the same shape as 'rules export'.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	rulesCmd.PersistentFlags().BoolVar(&opts.outputJSON, "json", false, "Output in JSON format")
	rulesCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	rulesCmd.PersistentFlags().BoolVar(&opts.quiet, "quiet", false, "Suppress non-essential output")
	rulesCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (defaults to data_paths.sqlite_path)")

	rulesCmd.AddCommand(newListCmd(opts))
	rulesCmd.AddCommand(newSeedCmd(opts))
	rulesCmd.AddCommand(newValidateCmd(opts))
	rulesCmd.AddCommand(newExportCmd(opts))

	return rulesCmd
}

// newListCmd creates the 'list' subcommand
func newListCmd(opts *rulesOptions) *cobra.Command {
	var domain string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List reminder rules",
		Long:    "Display all stored reminder rules, or only those for one domain.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			rules, cleanup, err := openRuleStorage(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			var list []core.Rule
			if domain != "" {
				list, err = rules.FindRules(ctx, strings.ToLower(domain))
			} else {
				list, err = rules.ListRules(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			if opts.outputJSON {
				if list == nil {
					list = []core.Rule{}
				}
				return outputAsJSON(cmd.OutOrStdout(), list)
			}

			renderRulesTable(cmd.OutOrStdout(), list)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "Only show rules for this domain")

	return cmd
}

// newSeedCmd creates the 'seed' subcommand
func newSeedCmd(opts *rulesOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed rules into an empty database",
		Long: `Insert the built-in rules, or the rules from --file, into the database.
Nothing is written when the rules table already contains rules.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			seed := storage.DefaultSeedRules()
			source := "built-in defaults"
			if file != "" {
				loaded, err := loadRulesFile(file)
				if err != nil {
					return err
				}
				seed = loaded
				source = file
			}

			rules, cleanup, err := openRuleStorage(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			var s *spinner.Spinner
			if !opts.quiet && !opts.outputJSON {
				s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = fmt.Sprintf(" Seeding %d rules from %s...", len(seed), source)
				s.Start()
			}

			inserted, err := rules.SeedRules(ctx, seed)
			if s != nil {
				s.Stop()
			}
			if err != nil {
				return fmt.Errorf("failed to seed rules: %w", err)
			}

			total, err := rules.CountRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to count rules: %w", err)
			}

			if opts.outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), map[string]interface{}{
					"inserted": inserted,
					"total":    total,
					"source":   source,
				})
			}

			if opts.quiet {
				return nil
			}
			out := cmd.OutOrStdout()
			if inserted == 0 {
				warningColor.Fprintf(out, "! Rules table already contains %d rules, nothing seeded\n", total)
				return nil
			}
			successColor.Fprintf(out, "✓ Seeded %d rules from %s\n", inserted, source)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with rules to seed instead of the defaults")

	return cmd
}

// newValidateCmd creates the 'validate' subcommand
func newValidateCmd(opts *rulesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a rules YAML file",
		Long:  "Check that every rule in the file has a domain, a category and a well-formed verse reference.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := loadRulesFile(args[0])
			if err != nil {
				if !opts.quiet {
					errorColor.Fprintf(cmd.ErrOrStderr(), "✗ %v\n", err)
				}
				return err
			}

			if opts.outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), rules)
			}
			if !opts.quiet {
				successColor.Fprintf(cmd.OutOrStdout(), "✓ %s: %d valid rules\n", args[0], len(rules))
			}
			return nil
		},
	}
}

// newExportCmd creates the 'export' subcommand
func newExportCmd(opts *rulesOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export rules to a YAML file",
		Long:  "Export all stored rules in the seed file format. If no file is specified, output to stdout.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			rules, cleanup, err := openRuleStorage(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := rules.ListRules(ctx)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}

			data, err := yaml.Marshal(struct {
				Rules []core.Rule `yaml:"rules"`
			}{Rules: list})
			if err != nil {
				return fmt.Errorf("failed to marshal YAML: %w", err)
			}

			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			filename := args[0]
			if err := validateFilePath(filename); err != nil {
				return fmt.Errorf("invalid file path: %w", err)
			}
			if err := os.WriteFile(filename, data, 0644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			if !opts.quiet {
				successColor.Fprintf(cmd.OutOrStdout(), "✓ Exported %d rules to %s\n", len(list), filename)
			}
			return nil
		},
	}
}

// openRuleStorage opens the configured SQLite database, or the one named by --db.
// Returns the rule storage and a cleanup function.
func openRuleStorage(opts *rulesOptions) (*storage.SQLiteRuleStorage, func(), error) {
	dbPath := opts.dbPath
	if dbPath == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		dbPath = cfg.GetSQLitePath()
	}

	// Storage logs would interleave with table output
	sugar := zap.NewNop().Sugar()

	sqlite, err := storage.NewSQLite(dbPath, sugar)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite at %s: %w", dbPath, err)
	}

	cleanup := func() {
		if err := sqlite.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close SQLite connection: %v\n", err)
		}
	}

	return storage.NewSQLiteRuleStorage(sqlite, sugar), cleanup, nil
}

// loadRulesFile reads and validates a rules YAML file after a size check
func loadRulesFile(filename string) ([]core.Rule, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > maxRulesFileSize {
		return nil, fmt.Errorf("file too large: maximum size is %d bytes, got %d bytes", maxRulesFileSize, info.Size())
	}

	rules, err := storage.LoadSeedRulesFile(filename)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("%s contains no rules", filename)
	}
	return rules, nil
}

// validateFilePath validates an output path to prevent path traversal.
// The path must stay inside the current working directory, including after
// URL decoding.
func validateFilePath(filename string) error {
	decoded, err := url.QueryUnescape(filename)
	if err != nil {
		decoded = filename
	}

	if strings.Contains(decoded, "..") || strings.Contains(filename, "..") {
		return fmt.Errorf("path traversal detected: '..' not allowed in file path")
	}

	absPath, err := filepath.Abs(filepath.Clean(decoded))
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if absPath != workDir && !strings.HasPrefix(absPath, workDir+string(filepath.Separator)) {
		return fmt.Errorf("path escapes current directory")
	}

	return nil
}

// outputAsJSON writes data as indented JSON.
func outputAsJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
