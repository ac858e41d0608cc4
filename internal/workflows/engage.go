package workflows

import (
	"context"
	"errors"
	"fmt"

	"session-pacer/internal/core"
	"session-pacer/internal/humanize"
	"session-pacer/pkg/utils"

	"go.uber.org/zap"
)

// PointerMover moves the session's pointer along a generated path
type PointerMover interface {
	MoveTo(ctx context.Context, target core.Point) (core.Path, error)
}

// EngageResult summarizes one LikeRandomTargets call
type EngageResult struct {
	RunID     uint
	Target    int // Interactions drawn for the run
	Completed int
	Batches   int
	Scans     int
}

// EngageWorkflow implements the scroll, scan and interact session loop
type EngageWorkflow struct {
	browser    core.BrowserPort
	mover      PointerMover
	pacing     *humanize.Scheduler
	repository core.RepositoryPort
	config     *core.Config
	logger     *zap.Logger
}

// NewEngageWorkflow creates a new engage workflow. repo may be nil to skip persistence.
func NewEngageWorkflow(browser core.BrowserPort, mover PointerMover, pacing *humanize.Scheduler, repo core.RepositoryPort, config *core.Config, logger *zap.Logger) *EngageWorkflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngageWorkflow{
		browser:    browser,
		mover:      mover,
		pacing:     pacing,
		repository: repo,
		config:     config,
		logger:     logger,
	}
}

// Browse opens url, lets it settle and scrolls a random number of times
func (e *EngageWorkflow) Browse(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("%w: url is required", core.ErrInvalidArgument)
	}

	if err := e.browser.Navigate(ctx, url); err != nil {
		return err
	}
	if _, err := e.pacing.SleepRange(ctx, e.config.Pacing.SettleDelay); err != nil {
		return err
	}

	_, err := e.ScrollRandomTimes(ctx, e.config.Pacing.BrowseScrolls)
	return err
}

// OpenRandomLink picks one link matching selector uniformly at random,
// navigates to it between two settle delays and scrolls the new page
// ThreadScrolls times. It returns the opened URL.
func (e *EngageWorkflow) OpenRandomLink(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		return "", fmt.Errorf("%w: link selector is required", core.ErrInvalidArgument)
	}

	links, err := e.browser.FindLinks(ctx, selector)
	if err != nil {
		return "", fmt.Errorf("failed to find links: %w", err)
	}
	if len(links) == 0 {
		return "", fmt.Errorf("%w: no links match %s", core.ErrTargetsExhausted, selector)
	}

	idx, err := e.pacing.SampleCount(core.IntRange{Min: 0, Max: len(links) - 1})
	if err != nil {
		return "", err
	}
	link := links[idx]

	e.logger.Info("Selected random link", zap.String("url", link), zap.Int("candidates", len(links)))

	if _, err := e.pacing.SleepRange(ctx, e.config.Pacing.SettleDelay); err != nil {
		return "", err
	}
	if err := e.browser.Navigate(ctx, link); err != nil {
		return "", err
	}
	if _, err := e.pacing.SleepRange(ctx, e.config.Pacing.SettleDelay); err != nil {
		return "", err
	}

	if _, err := e.ScrollRandomTimes(ctx, e.config.Pacing.ThreadScrolls); err != nil {
		return "", err
	}
	if _, err := e.pacing.SleepRange(ctx, e.config.Pacing.SettleDelay); err != nil {
		return "", err
	}

	return link, nil
}

// ScrollRandomTimes scrolls down a count drawn from r, pausing after each scroll.
// It returns how many scrolls were performed.
func (e *EngageWorkflow) ScrollRandomTimes(ctx context.Context, r core.IntRange) (int, error) {
	n, err := e.pacing.SampleCount(r)
	if err != nil {
		return 0, err
	}

	e.logger.Debug("Scrolling page", zap.Int("times", n))

	for i := 0; i < n; i++ {
		if err := e.browser.ScrollBy(ctx, e.config.Pacing.ScrollAmount); err != nil {
			return i, fmt.Errorf("scroll %d of %d failed: %w", i+1, n, err)
		}
		if _, err := e.pacing.SleepRange(ctx, e.config.Pacing.ScrollPause); err != nil {
			return i + 1, err
		}
		if err := e.pacing.Sleep(ctx, utils.Seconds(e.config.Pacing.ScrollDelay)); err != nil {
			return i + 1, err
		}
	}

	return n, nil
}

// LikeRandomTargets interacts with a random number of targets matching
// selector. Each batch scrolls, scans, then walks the scan with a random
// stride so coverage is never a fixed prefix. A batch that completes nothing
// waits and rescans; MaxScanAttempts consecutive such batches, or MaxBatches
// batches in total, end the run with ErrTargetsExhausted.
func (e *EngageWorkflow) LikeRandomTargets(ctx context.Context, url, selector string) (*EngageResult, error) {
	if selector == "" {
		return nil, fmt.Errorf("%w: target selector is required", core.ErrInvalidArgument)
	}

	pacing := e.config.Pacing

	total, err := e.pacing.SampleCount(pacing.Interactions)
	if err != nil {
		return nil, err
	}

	result := &EngageResult{Target: total}

	if e.repository != nil {
		run := &core.SessionRun{URL: url, TargetCount: total}
		if err := e.repository.CreateRun(ctx, run); err != nil {
			e.logger.Warn("Failed to record run", zap.Error(err))
		} else {
			result.RunID = run.ID
		}
	}

	e.logger.Info("Starting interactions", zap.Int("target", total), zap.String("selector", selector))

	err = e.likeLoop(ctx, selector, result)
	e.finishRun(result, err)

	if err != nil {
		return result, err
	}

	e.logger.Info("Interactions complete",
		zap.Int("completed", result.Completed),
		zap.Int("batches", result.Batches),
	)
	return result, nil
}

func (e *EngageWorkflow) likeLoop(ctx context.Context, selector string, result *EngageResult) error {
	pacing := e.config.Pacing
	done := make(map[string]bool)
	emptyScans := 0

	if err := e.pacing.Sleep(ctx, utils.Seconds(pacing.ScrollDelay)); err != nil {
		return err
	}

	for result.Completed < result.Target {
		if pacing.MaxBatches > 0 && result.Batches >= pacing.MaxBatches {
			return fmt.Errorf("%w: batch limit %d reached with %d of %d done",
				core.ErrTargetsExhausted, pacing.MaxBatches, result.Completed, result.Target)
		}
		result.Batches++

		if _, err := e.ScrollRandomTimes(ctx, pacing.BatchScrolls); err != nil {
			return err
		}

		targets, err := e.browser.FindTargets(ctx, selector)
		result.Scans++
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("Target scan failed", zap.Error(err))
			targets = nil
		}

		fresh := countFresh(targets, done)
		progress, err := e.walkTargets(ctx, targets, done, result)
		if err != nil {
			return err
		}
		if progress > 0 {
			emptyScans = 0
			continue
		}

		// Nothing new, or nothing new the stride could reach
		emptyScans++
		e.logger.Info("No new targets reached, scrolling again",
			zap.Int("fresh", fresh),
			zap.Int("empty_scans", emptyScans),
			zap.Int("max_scan_attempts", pacing.MaxScanAttempts),
		)
		if pacing.MaxScanAttempts > 0 && emptyScans >= pacing.MaxScanAttempts {
			return fmt.Errorf("%w: %d consecutive scans without progress", core.ErrTargetsExhausted, emptyScans)
		}
		if _, err := e.pacing.SleepRange(ctx, pacing.RescanDelay); err != nil {
			return err
		}
	}

	return nil
}

// walkTargets interacts with fresh targets at a random stride until the run's
// target count is met. It returns how many interactions succeeded.
func (e *EngageWorkflow) walkTargets(ctx context.Context, targets []core.Target, done map[string]bool, result *EngageResult) (int, error) {
	if countFresh(targets, done) == 0 {
		return 0, nil
	}

	progress := 0
	stride := e.pacing.SkipInterval()
	for i := 0; i < len(targets) && result.Completed < result.Target; i += stride {
		target := targets[i]
		if done[target.Key] {
			continue
		}

		path, err := e.interact(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return progress, ctx.Err()
			}
			e.logger.Warn("Interaction failed", zap.String("key", target.Key), zap.Error(err))
			continue
		}

		done[target.Key] = true
		result.Completed++
		progress++
		e.recordInteraction(ctx, result.RunID, target, len(path))

		e.logger.Debug("Interacted with target",
			zap.Int("completed", result.Completed),
			zap.Int("target", result.Target),
			zap.String("label", target.Label),
		)

		if _, err := e.pacing.SleepRange(ctx, e.config.Pacing.AfterClick); err != nil {
			return progress, err
		}
	}

	return progress, nil
}

// interact moves the pointer to the target and clicks it
func (e *EngageWorkflow) interact(ctx context.Context, target core.Target) (core.Path, error) {
	path, err := e.mover.MoveTo(ctx, target.Center)
	if err != nil {
		return nil, fmt.Errorf("failed to move pointer: %w", err)
	}
	if err := e.browser.Click(ctx, target.Center); err != nil {
		return nil, fmt.Errorf("failed to click: %w", err)
	}
	return path, nil
}

func (e *EngageWorkflow) recordInteraction(ctx context.Context, runID uint, target core.Target, points int) {
	if e.repository == nil || runID == 0 {
		return
	}

	err := e.repository.RecordInteraction(ctx, &core.Interaction{
		RunID:      runID,
		TargetKey:  target.Key,
		Label:      target.Label,
		X:          target.Center.X,
		Y:          target.Center.Y,
		PathPoints: points,
	})
	if err != nil {
		e.logger.Warn("Failed to record interaction", zap.Error(err))
	}
}

func (e *EngageWorkflow) finishRun(result *EngageResult, runErr error) {
	if e.repository == nil || result.RunID == 0 {
		return
	}

	// The run context may already be cancelled; the final status still needs writing
	if err := e.repository.FinishRun(context.Background(), result.RunID, result.Completed, runErr); err != nil {
		e.logger.Warn("Failed to finish run", zap.Error(err))
	}
}

func countFresh(targets []core.Target, done map[string]bool) int {
	n := 0
	for _, t := range targets {
		if !done[t.Key] {
			n++
		}
	}
	return n
}

// IsExhausted reports whether err means the page ran out of targets
func IsExhausted(err error) bool {
	return errors.Is(err, core.ErrTargetsExhausted)
}
