package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"learnon/database"
	"learnon/query"
	"learnon/utils"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	safeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

var demoInputs = []string{
	"Schmidt",
	"Müller",
	"",
	"' OR '1'='1",
	"Schmidt'; DROP TABLE stundenplan; --",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stundenplan",
		Short:        "Timetable store tools",
		SilenceUsage: true,
	}
	root.AddCommand(newSeedCmd(), newDemoCmd())
	return root
}

func newSeedCmd() *cobra.Command {
	var dbPath, seedPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the stundenplan table and insert seed rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := readSeed(seedPath)
			if err != nil {
				return err
			}
			n, err := seedStore(cmd.Context(), dbPath, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d rows into %s\n", n, dbPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "learnon.db", "SQLite database file")
	cmd.Flags().StringVar(&seedPath, "file", "", "YAML seed file (default: embedded seed)")
	return cmd
}

func newDemoCmd() *cobra.Command {
	var keep bool
	cmd := &cobra.Command{
		Use:   "demo [teacher...]",
		Short: "Run the interpolated and the parameterized lookup side by side on throwaway stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := demoInputs
			if len(args) > 0 {
				inputs = args
			}
			dir, err := os.MkdirTemp("", "stundenplan-demo-")
			if err != nil {
				return err
			}
			if keep {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("stores kept in "+dir))
			} else {
				defer os.RemoveAll(dir)
			}
			return runDemo(cmd.Context(), cmd, dir, inputs)
		},
	}
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the throwaway stores")
	return cmd
}

func readSeed(path string) ([]database.SeedRow, error) {
	if path == "" {
		return database.DefaultSeed()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return database.LoadSeed(f)
}

func seedStore(ctx context.Context, path string, rows []database.SeedRow) (int, error) {
	conn, err := database.Connect(ctx, database.Config{Driver: "sqlite", DSN: path})
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	if err := database.EnsureSchema(ctx, conn); err != nil {
		return 0, err
	}
	if err := database.Seed(ctx, conn, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func runDemo(ctx context.Context, cmd *cobra.Command, dir string, inputs []string) error {
	out := cmd.OutOrStdout()
	rows, err := database.DefaultSeed()
	if err != nil {
		return err
	}

	for i, teacher := range inputs {
		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("teacher = %q", teacher)))

		for _, mode := range []string{"safe", "unsafe"} {
			path := filepath.Join(dir, fmt.Sprintf("store-%d-%s.db", i, mode))
			if _, err := seedStore(ctx, path, rows); err != nil {
				return err
			}
			cfg := database.Config{Driver: "sqlite", DSN: path}
			lookup := query.NewLookup(cfg, nil, nil)

			var result []query.Schedule
			var lookupErr error
			if mode == "safe" {
				result, lookupErr = lookup.Safe(ctx, teacher)
			} else {
				stmt := query.UnsafeStatement(teacher)
				if !utils.SameStructure(query.UnsafeStatement(""), stmt) {
					line := "  unsafe statement: " + stmt
					if !utils.ValidateSQL(stmt) {
						line += " (not a single read statement)"
					}
					fmt.Fprintln(out, badStyle.Render(line))
				}
				result, lookupErr = lookup.Unsafe(ctx, teacher)
			}

			survived, err := tableSurvived(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatOutcome(mode, result, lookupErr, survived))
		}
	}
	return nil
}

func tableSurvived(ctx context.Context, cfg database.Config) (bool, error) {
	conn, err := database.Connect(ctx, cfg)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	return database.TableExists(ctx, conn, database.ScheduleTable.Name)
}

func formatOutcome(mode string, result []query.Schedule, err error, survived bool) string {
	var b strings.Builder
	style := safeStyle
	if err != nil || !survived {
		style = badStyle
	}
	fmt.Fprintf(&b, "  %-6s ", mode)
	switch {
	case err != nil:
		b.WriteString(style.Render("error: " + err.Error()))
	default:
		b.WriteString(style.Render(fmt.Sprintf("%d rows", len(result))))
		for _, s := range result {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  [%s %s %s]", s.Subject, s.Room, s.Weekday)))
		}
	}
	if !survived {
		b.WriteString(badStyle.Render("  table stundenplan is gone"))
	}
	return b.String()
}
