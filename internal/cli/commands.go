package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dyike/ValueArena/config"
	"github.com/dyike/ValueArena/internal/debug"
	"github.com/dyike/ValueArena/internal/display"
	"github.com/dyike/ValueArena/internal/logger"
	"github.com/dyike/ValueArena/internal/scheduler"
	"github.com/dyike/ValueArena/internal/server"
	"github.com/dyike/ValueArena/internal/service"
	"github.com/dyike/ValueArena/internal/utils"
	"github.com/dyike/ValueArena/models"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(config.DefaultConfig())
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	roster := &utils.RosterFile{}
	rootCmd := &cobra.Command{
		Use:   "valuearena",
		Short: "ValueArena - LLM value investors competing on paper portfolios",
		Long: `ValueArena runs a daily investment committee: every configured language model
researches the market with a fixed tool set, decides on trades, and its
portfolio ledger is kept up to date.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if level, _ := cmd.Flags().GetString("log-level"); level != "" {
				cfg.LogLevel = level
			}
			if dbg, _ := cmd.Flags().GetBool("debug"); dbg {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			path, _ := cmd.Flags().GetString("agents-file")
			return loadRoster(cfg, roster, path)
		},
	}

	rootCmd.AddCommand(newServeCmd(cfg))
	rootCmd.AddCommand(newRunCmd(cfg))
	rootCmd.AddCommand(newPortfolioCmd(cfg))
	rootCmd.AddCommand(newLeaderboardCmd(cfg))
	rootCmd.AddCommand(newTradesCmd(cfg))
	rootCmd.AddCommand(newAgentsCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg, roster))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("agents-file", "", "JSON agent roster (default ./agents.json when present)")

	return rootCmd
}

// loadRoster replaces the configured agents with the roster file, when one
// is given or found in the project directory.
func loadRoster(cfg *config.Config, roster *utils.RosterFile, path string) error {
	if _, err := roster.SetPath(path); err != nil {
		return err
	}
	if _, ok := roster.Detect(cfg.ProjectDir); !ok {
		return nil
	}
	data, err := roster.Read()
	if err != nil {
		return fmt.Errorf("read agent roster: %w", err)
	}
	agents, err := config.ParseAgents(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", roster.Path(), err)
	}
	if len(agents) == 0 {
		return fmt.Errorf("%s: roster is empty", roster.Path())
	}
	cfg.Agents = agents
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	l := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true, Out: os.Stderr})
	logger.SetGlobalLogger(l)
	return l
}

func openService(ctx context.Context, cfg *config.Config) (*service.Service, zerolog.Logger, error) {
	log := newLogger(cfg)
	svc, err := service.New(ctx, cfg, log)
	if err != nil {
		return nil, log, err
	}
	return svc, log, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, optionally running the daily cycle on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if port, _ := cmd.Flags().GetInt("port"); port > 0 {
				cfg.HTTPPort = port
			}
			svc, log, err := openService(ctx, cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := debug.NewEinoDebugger(cfg, log).Initialize(ctx); err != nil {
				log.Warn().Err(err).Msg("eino debug server not started")
			}

			withSchedule, _ := cmd.Flags().GetBool("schedule")
			if withSchedule {
				sched := scheduler.New(log)
				job := scheduler.NewDailyCycleJob(svc, 0, log)
				if err := sched.AddJob(cfg.CycleSchedule, job); err != nil {
					return fmt.Errorf("schedule %q: %w", cfg.CycleSchedule, err)
				}
				sched.Start()
				defer sched.Stop()
			}

			srv := server.New(server.Config{Port: cfg.HTTPPort, Log: log, Backend: svc})
			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().Int("port", 0, "HTTP port (default HTTP_PORT)")
	cmd.Flags().Bool("schedule", false, "Run the daily cycle on CYCLE_SCHEDULE")
	return cmd
}

func newRunCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one daily cycle now",
		Example: `  valuearena run
  valuearena run --agent openai/gpt-5.1 --agent qwen/qwen3-max
  valuearena run --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, _ := cmd.Flags().GetStringSlice("agent")
			interactive, _ := cmd.Flags().GetBool("interactive")
			asJSON, _ := cmd.Flags().GetBool("json")

			if interactive {
				picked, err := PromptForAgents(cfg.Agents)
				if err != nil {
					return err
				}
				ok, err := PromptForConfirmation(picked, cfg)
				if err != nil || !ok {
					return err
				}
				ids = picked
			}

			svc, _, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			results, err := svc.RunDaily(cmd.Context(), ids...)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"status": "complete", "results": results})
			}
			display.CycleResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().StringSlice("agent", nil, "Agent id to run (repeatable, default all)")
	cmd.Flags().BoolP("interactive", "i", false, "Pick agents interactively")
	cmd.Flags().Bool("json", false, "Print results as JSON")
	return cmd
}

func newPortfolioCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portfolio [AGENT_ID]",
		Short: "Show one agent's ledger, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			asCSV, _ := cmd.Flags().GetBool("csv")
			svc, _, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			if len(args) == 1 {
				l, err := svc.Portfolio(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asCSV {
					return exportCSV(cmd.OutOrStdout(), cfg, l)
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), l)
				}
				display.Portfolio(cmd.OutOrStdout(), l)
				return nil
			}

			ledgers, err := svc.Portfolios(cmd.Context())
			if err != nil {
				return err
			}
			if asCSV {
				return exportCSV(cmd.OutOrStdout(), cfg, ledgers...)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), ledgers)
			}
			for _, l := range ledgers {
				display.Portfolio(cmd.OutOrStdout(), l)
			}
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the raw ledger JSON")
	cmd.Flags().Bool("csv", false, "Export trade and NAV history as CSV under DATA_DIR/csv")
	return cmd
}

func exportCSV(w io.Writer, cfg *config.Config, ledgers ...*models.Ledger) error {
	csvm := utils.NewCSVManager(cfg.DataDir)
	for _, l := range ledgers {
		tradesPath, navPath, err := csvm.ExportLedger(l)
		if err != nil {
			return fmt.Errorf("export %s: %w", l.ModelID, err)
		}
		display.DisplaySuccess(w, tradesPath)
		display.DisplaySuccess(w, navPath)
	}
	return nil
}

func newLeaderboardCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank agents by NAV",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			svc, _, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			board, err := svc.Leaderboard(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), board)
			}
			display.Leaderboard(cmd.OutOrStdout(), board)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print as JSON")
	return cmd
}

func newTradesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List trade records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var params service.HistoryParams
			params.ID, _ = cmd.Flags().GetString("agent")
			params.Cursor, _ = cmd.Flags().GetString("cursor")
			params.Limit, _ = cmd.Flags().GetInt("limit")

			svc, _, err := openService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer svc.Close()

			page, err := svc.TradeHistory(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().String("agent", "", "Only this agent's trades")
	cmd.Flags().String("cursor", "", "Trade id to continue after")
	cmd.Flags().Int("limit", 50, "Page size (max 200)")
	return cmd
}

func newAgentsCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the configured agents",
		Run: func(cmd *cobra.Command, args []string) {
			for _, a := range cfg.Agents {
				fmt.Fprintf(cmd.OutOrStdout(), "%-36s %s\n", a.ID, a.Display)
			}
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(cfg *config.Config, roster *utils.RosterFile) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Report missing credentials and invalid settings",
		Run: func(cmd *cobra.Command, args []string) {
			validateConfig(cmd.OutOrStdout(), cfg)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "write-agents [PATH]",
		Short: "Write the current agent roster to a JSON file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 1:
				if _, err := roster.SetPath(args[0]); err != nil {
					return err
				}
			case roster.Path() == "":
				if _, err := roster.SetPath(filepath.Join(cfg.ProjectDir, utils.DefaultRosterFilename)); err != nil {
					return err
				}
			}
			data, err := json.MarshalIndent(cfg.Agents, "", "  ")
			if err != nil {
				return err
			}
			if err := roster.Write(append(data, '\n')); err != nil {
				return err
			}
			display.DisplaySuccess(cmd.OutOrStdout(), "Wrote "+roster.Path())
			return nil
		},
	})

	return configCmd
}

// validateConfig prints every configuration problem. None of them stops
// the program from running.
func validateConfig(w io.Writer, cfg *config.Config) {
	problems := cfg.Validate()
	if len(problems) == 0 {
		display.DisplaySuccess(w, "Configuration is complete")
		return
	}
	for _, p := range problems {
		display.DisplayWarning(w, p)
	}
	fmt.Fprintf(w, "%d warning(s); affected collaborators will report errors instead of failing.\n", len(problems))
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ValueArena %s (%s)\n", service.Version, runtime.Version())
		},
	}
}
