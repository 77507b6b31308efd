package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gyaneshwarpardhi/lanework/internal/api"
	"github.com/gyaneshwarpardhi/lanework/internal/config"
	"github.com/gyaneshwarpardhi/lanework/internal/engine"
	"github.com/gyaneshwarpardhi/lanework/internal/graph"
	"github.com/gyaneshwarpardhi/lanework/internal/scheduler"
	"github.com/gyaneshwarpardhi/lanework/internal/session"
	"github.com/gyaneshwarpardhi/lanework/internal/ui"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lanework",
		Short: "Lane-based task scheduling engine for stage puzzles",
		Long: `Lanework runs stages made of time-costed tasks with dependencies. Each lane
has one worker; workers pick up unlocked tasks in order, and items speed up
the task a lane is working on.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "configs/stages.yaml", "Path to the stage catalogue YAML")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flagLogLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", flagLogLevel, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads and validates the catalogue.
func loadConfig() (*config.Loader, error) {
	loader, err := config.NewLoader(flagConfig, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(loader.Config()); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return loader, nil
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the real-time driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := loadConfig()
			if err != nil {
				return err
			}
			cfg := loader.Config()
			slog.Info("catalogue loaded", "version", cfg.Version, "stages", len(cfg.Stages), "items", len(cfg.Items))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng := engine.New(ctx, cfg, slog.Default())
			loader.OnChange(eng.SwapConfig)
			stopWatch, err := loader.Watch()
			if err != nil {
				slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
			} else {
				defer stopWatch()
			}

			srv := &http.Server{
				Addr:         addr,
				Handler:      api.New(eng, loader, slog.Default()),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				slog.Info("server starting", "addr", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				return eng.Run(gctx)
			})
			g.Go(func() error {
				<-gctx.Done()
				slog.Info("shutting down…")
				shutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				return srv.Shutdown(shutCtx)
			})

			err = g.Wait()
			eng.Shutdown()
			slog.Info("goodbye")
			return err
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	return cmd
}

func simulateCmd() *cobra.Command {
	var (
		stage   int
		step    float64
		bonuses []string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a stage headless and print its timeline",
		Example: `  lanework simulate --stage 1
  lanework simulate --stage 2 --step 0.01 --bonus 2:0:3 --bonus 5.5:1:6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := loadConfig()
			if err != nil {
				return err
			}
			req := engine.SimRequest{Stage: stage, Step: step}
			for _, b := range bonuses {
				bs, err := parseBonus(b)
				if err != nil {
					return err
				}
				req.Bonuses = append(req.Bonuses, bs)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			eng := engine.New(ctx, loader.Config(), slog.Default())
			defer eng.Shutdown()

			res, err := eng.SimulateSync(ctx, req)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			st, _ := loader.Config().Stage(stage)
			printTimeline(res, st.TimeLimit)
			return nil
		},
	}

	cmd.Flags().IntVar(&stage, "stage", 0, "Stage index")
	cmd.Flags().Float64Var(&step, "step", 0, "Fixed tick in seconds (default: engine.simulation_step)")
	cmd.Flags().StringArrayVar(&bonuses, "bonus", nil, "Bonus as at:lane:amount (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Machine-readable JSON output")
	return cmd
}

// parseBonus reads "at:lane:amount", e.g. "2.5:1:3".
func parseBonus(s string) (engine.BonusStep, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return engine.BonusStep{}, fmt.Errorf("invalid --bonus %q: want at:lane:amount", s)
	}
	at, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || at < 0 {
		return engine.BonusStep{}, fmt.Errorf("invalid --bonus %q: bad time %q", s, parts[0])
	}
	lane, err := strconv.Atoi(parts[1])
	if err != nil {
		return engine.BonusStep{}, fmt.Errorf("invalid --bonus %q: bad lane %q", s, parts[1])
	}
	amount, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return engine.BonusStep{}, fmt.Errorf("invalid --bonus %q: bad amount %q", s, parts[2])
	}
	return engine.BonusStep{At: at, Lane: lane, Amount: amount}, nil
}

const barWidth = 40

func printTimeline(res *engine.SimResult, limit float64) {
	fmt.Printf("\n%s %s  %s\n\n", ui.Bold(fmt.Sprintf("Stage %d:", res.Stage)), res.StageName, ui.Outcome(string(res.Outcome)))

	tasks := append([]scheduler.TaskView(nil), res.Tasks...)
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Lane != tasks[j].Lane {
			return tasks[i].Lane < tasks[j].Lane
		}
		return tasks[i].Index < tasks[j].Index
	})

	span := limit
	if res.Clock > span {
		span = res.Clock
	}
	for _, t := range tasks {
		end := res.Clock
		if t.State == scheduler.StateCompleted {
			end = t.CompletedAt
		}
		bar := ui.Dim(strings.Repeat("·", barWidth))
		if t.State != scheduler.StateLocked && t.State != scheduler.StateWorkable {
			bar = ui.Bar(t.StartedAt, end, span, barWidth)
		}
		times := ui.Dim("not started")
		if t.State == scheduler.StateCompleted {
			times = fmt.Sprintf("%6.2fs → %6.2fs", t.StartedAt, t.CompletedAt)
		} else if t.State != scheduler.StateLocked && t.State != scheduler.StateWorkable {
			times = fmt.Sprintf("%6.2fs → %s", t.StartedAt, ui.Dim("…"))
		}
		bonus := ""
		if t.BonusConsumed > 0 {
			bonus = ui.Yellow(fmt.Sprintf(" (-%.2fs bonus)", t.BonusConsumed))
		}
		fmt.Printf("  %s %s task %-3d |%s| %s%s\n",
			ui.LanePrefix(t.Lane, session.LaneLabel(t.Lane)),
			ui.StateIcon(string(t.State)), t.Index, bar, times, bonus)
	}

	fmt.Println()
	switch res.Outcome {
	case session.OutcomeCleared:
		fmt.Printf("  Cleared in %s of %.2fs (%d ticks)\n", ui.BoldGreen(fmt.Sprintf("%.2fs", res.ClearTime)), limit, res.Ticks)
	default:
		fmt.Printf("  %d/%d tasks completed when the clock stopped at %.2fs\n",
			len(res.TaskCompletionTimes), len(res.Tasks), res.Clock)
	}
	if res.BonusesApplied+res.BonusesIgnored > 0 {
		fmt.Printf("  Bonuses: %d applied, %s\n", res.BonusesApplied, ui.Dim(fmt.Sprintf("%d ignored", res.BonusesIgnored)))
	}
	fmt.Println()
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the stage catalogue and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %s\n", ui.Red("✗"), err)
				return err
			}
			cfg := loader.Config()
			fmt.Printf("%s %s (version %s)\n\n", ui.Green("✓"), flagConfig, cfg.Version)
			for i := range cfg.Stages {
				st := &cfg.Stages[i]
				g := graph.Build(st.GraphSource(), slog.Default())
				if err := g.CheckAcyclic(); err != nil {
					return fmt.Errorf("stage %d (%s): %w", i, st.Name, err)
				}
				bound, err := graph.MinimumTime(g)
				if err != nil {
					return fmt.Errorf("stage %d (%s): %w", i, st.Name, err)
				}
				limit := ui.Dim(fmt.Sprintf("limit %.0fs", st.TimeLimit))
				if bound > st.TimeLimit {
					limit = ui.Red(fmt.Sprintf("limit %.0fs (unwinnable without items)", st.TimeLimit))
				}
				fmt.Printf("  %s %-20s %2d tasks  %d lanes  %s  %s\n",
					ui.Cyan(fmt.Sprintf("#%d", i)), st.Name,
					g.VertexCount(), len(g.Lanes()), limit,
					ui.Dim(fmt.Sprintf("at least %.2fs", bound)))
			}
			fmt.Println()
			return nil
		},
	}
}
