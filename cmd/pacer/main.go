package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"session-pacer/config"
	"session-pacer/internal/browser"
	"session-pacer/internal/core"
	"session-pacer/internal/humanize"
	"session-pacer/internal/pointer"
	"session-pacer/internal/repository"
	"session-pacer/internal/workflows"
	"session-pacer/pkg/utils"

	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "", "Path to configuration file (default: ./config.yaml or ./config/config.yaml)")
	mode       = flag.String("mode", "session", "Mode: session, path, move or history")
	url        = flag.String("url", "", "Page to browse (overrides session.url)")
	selector   = flag.String("selector", "", "Target selector, CSS or XPath (overrides session.target_selector)")
	from       = flag.String("from", "0,0", "Path start as x,y (path mode)")
	to         = flag.String("to", "", "Path end or pointer target as x,y (path and move modes)")
	points     = flag.Int("points", 0, "Points per path (overrides motion.point_count)")
	seed       = flag.Int64("seed", 0, "Random seed; 0 seeds from the clock")
	display    = flag.Int("display", -1, "Display id for move mode; -1 is the main display")
	limit      = flag.Int("limit", 10, "Runs to list in history mode")
	runID      = flag.Uint("run", 0, "Show a single run in history mode")
	link       = flag.String("link-selector", "", "Links to open one of at random before interacting (overrides session.link_selector)")
)

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *points > 0 {
		cfg.Motion.PointCount = *points
	}
	if *url != "" {
		cfg.Session.URL = *url
	}
	if *selector != "" {
		cfg.Session.TargetSelector = *selector
	}
	if *link != "" {
		cfg.Session.LinkSelector = *link
	}

	logger.Info("Configuration loaded",
		zap.String("config_path", *configPath),
		zap.String("mode", *mode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping...")
		cancel()
	}()

	var rng core.RandomSource = humanize.NewRandom()
	if *seed != 0 {
		rng = humanize.NewSeededRandom(*seed)
	}

	human, err := humanize.New(cfg.Motion, cfg.Pacing, rng, nil)
	if err != nil {
		logger.Fatal("Failed to initialize humanizer", zap.Error(err))
	}

	switch *mode {
	case "session":
		err = runSession(ctx, cfg, human, logger)
	case "path":
		err = runPath(cfg, human)
	case "move":
		err = runMove(ctx, human, logger)
	case "history":
		err = runHistory(ctx, cfg)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil {
		logger.Fatal("Run failed", zap.String("mode", *mode), zap.Error(err))
	}
}

// runSession browses the configured page and interacts with a random number of targets
func runSession(ctx context.Context, cfg *core.Config, human *humanize.Humanizer, logger *zap.Logger) error {
	if cfg.Session.URL == "" || cfg.Session.TargetSelector == "" {
		return fmt.Errorf("session.url and session.target_selector are required (or -url / -selector)")
	}

	repo, err := openRepository(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close repository", zap.Error(err))
		}
	}()
	logger.Info("Repository initialized", zap.String("db_path", cfg.Database.Path))

	instance := browser.NewInstance(cfg, human, logger)
	if err := instance.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer func() {
		if err := instance.Close(context.Background()); err != nil {
			logger.Error("Failed to close browser", zap.Error(err))
		}
	}()

	// The page is also the pointer device, so paths are in viewport pixels
	mover := human.Mover(instance, logger)
	engage := workflows.NewEngageWorkflow(instance, mover, human.Pacing(), repo, cfg, logger)

	started := time.Now()

	logger.Info("Step 1: Browsing", zap.String("url", cfg.Session.URL))
	if err := engage.Browse(ctx, cfg.Session.URL); err != nil {
		return fmt.Errorf("browse failed: %w", err)
	}

	pageURL := cfg.Session.URL
	if cfg.Session.LinkSelector != "" {
		logger.Info("Step 2: Opening a random link", zap.String("selector", cfg.Session.LinkSelector))
		pageURL, err = engage.OpenRandomLink(ctx, cfg.Session.LinkSelector)
		if err != nil {
			return fmt.Errorf("failed to open random link: %w", err)
		}
	}

	logger.Info("Step 3: Interacting with targets", zap.String("url", pageURL))
	result, err := engage.LikeRandomTargets(ctx, pageURL, cfg.Session.TargetSelector)
	if err != nil {
		if workflows.IsExhausted(err) && result != nil {
			logger.Warn("Stopped early, page ran out of targets",
				zap.Int("completed", result.Completed),
				zap.Int("target", result.Target),
			)
			return nil
		}
		return fmt.Errorf("interaction failed: %w", err)
	}

	logger.Info("Step 4: Browsing after interactions")
	if _, err := engage.ScrollRandomTimes(ctx, cfg.Pacing.BrowseScrolls); err != nil {
		return fmt.Errorf("final scroll failed: %w", err)
	}

	today, err := repo.CountInteractionsSince(ctx, startOfDay(time.Now()))
	if err != nil {
		logger.Warn("Failed to count interactions", zap.Error(err))
	}

	logger.Info("Session summary",
		zap.Int("target", result.Target),
		zap.Int("completed", result.Completed),
		zap.Int("batches", result.Batches),
		zap.Int("scans", result.Scans),
		zap.Int64("today", today),
		zap.String("elapsed", utils.FormatDuration(time.Since(started))),
	)
	return nil
}

type pathStep struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Delay float64 `json:"delay_seconds"`
}

// runPath prints a generated path with its step delays as JSON without moving anything
func runPath(cfg *core.Config, human *humanize.Humanizer) error {
	start, err := parsePoint(*from)
	if err != nil {
		return fmt.Errorf("invalid -from: %w", err)
	}
	end, err := parsePoint(*to)
	if err != nil {
		return fmt.Errorf("invalid -to: %w", err)
	}

	path, err := human.Paths().Generate(start, end, cfg.Motion.PointCount)
	if err != nil {
		return err
	}

	steps := make([]pathStep, 0, len(path))
	prev := start
	for _, p := range path {
		steps = append(steps, pathStep{
			X:     p.X,
			Y:     p.Y,
			Delay: human.Pacing().StepDelay(prev.Distance(p), cfg.Motion.BaseSpeed),
		})
		prev = p
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(steps)
}

// runMove glides the system cursor to -to
func runMove(ctx context.Context, human *humanize.Humanizer, logger *zap.Logger) error {
	target, err := parsePoint(*to)
	if err != nil {
		return fmt.Errorf("invalid -to: %w", err)
	}

	screen := pointer.NewScreen(*display)
	clamped := screen.Clamp(target)
	if clamped != target {
		logger.Warn("Target outside screen, clamping",
			zap.Float64("x", clamped.X),
			zap.Float64("y", clamped.Y),
		)
	}

	path, err := human.Mover(screen, logger).MoveTo(ctx, clamped)
	if err != nil {
		return err
	}

	logger.Info("Pointer moved", zap.Int("points", len(path)))
	return nil
}

// runHistory lists recent runs, or one run with -run, with their interactions
func runHistory(ctx context.Context, cfg *core.Config) error {
	repo, err := openRepository(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer repo.Close()

	return printHistory(ctx, os.Stdout, repo, *runID, *limit)
}

func openRepository(path string) (*repository.SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo, err := repository.NewSQLiteRepository(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	return repo, nil
}

func printHistory(ctx context.Context, w io.Writer, repo *repository.SQLiteRepository, id uint, limit int) error {
	var runs []*core.SessionRun
	if id != 0 {
		run, err := repo.GetRun(ctx, id)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %d not found", id)
		}
		runs = append(runs, run)
	} else {
		recent, err := repo.RecentRuns(ctx, limit)
		if err != nil {
			return err
		}
		runs = recent
	}

	for _, run := range runs {
		fmt.Fprintf(w, "#%d %s %-9s %d/%d %s\n",
			run.ID,
			run.StartedAt.Format(time.RFC3339),
			run.Status,
			run.Completed,
			run.TargetCount,
			run.URL,
		)
		if run.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", run.Error)
		}

		interactions, err := repo.InteractionsForRun(ctx, run.ID)
		if err != nil {
			return err
		}
		for _, in := range interactions {
			fmt.Fprintf(w, "    %s (%.0f,%.0f) %d points %s\n",
				in.Timestamp.Format(time.TimeOnly),
				in.X,
				in.Y,
				in.PathPoints,
				in.Label,
			)
		}
	}
	return nil
}

func parsePoint(s string) (core.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return core.Point{}, fmt.Errorf("%w: expected x,y, got %q", core.ErrInvalidArgument, s)
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Point{}, fmt.Errorf("%w: bad x: %v", core.ErrInvalidArgument, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Point{}, fmt.Errorf("%w: bad y: %v", core.ErrInvalidArgument, err)
	}

	return core.Point{X: x, Y: y}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
