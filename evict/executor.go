package evict

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/l3uddz/delugetools/client"
	"github.com/l3uddz/delugetools/config"
	"github.com/l3uddz/delugetools/expression"
)

// Result is the outcome of culling one daemon.
type Result struct {
	// FreeBytes is the free space reported before culling, -1 when unknown.
	FreeBytes  int64
	Removed    int
	FreedBytes int64
	Failed     int
	Ignored    int
	// Remaining is the space still missing when a space target could not be met.
	Remaining int64
	// NoOp is set when the free-space target was already met.
	NoOp bool
}

type Option func(*Executor)

// WithIgnore skips torrents matching any ignore expression.
func WithIgnore(exp *expression.Expressions) Option {
	return func(e *Executor) {
		e.exp = exp
	}
}

// WithRemoveRate limits removals to rate per second on each daemon. Zero is unlimited.
func WithRemoveRate(rate int) Option {
	return func(e *Executor) {
		e.rate = rate
	}
}

func WithDryRun(dryRun bool) Option {
	return func(e *Executor) {
		e.dryRun = dryRun
	}
}

// Executor runs eviction against one daemon at a time. It holds no per-daemon state and may be
// shared across concurrent tasks.
type Executor struct {
	exp    *expression.Expressions
	rate   int
	dryRun bool
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Unregistered removes, with data, every torrent reporting an unregistered tracker status.
func (e *Executor) Unregistered(ctx context.Context, log *logrus.Entry, c client.Interface) (Result, error) {
	res := Result{FreeBytes: -1}

	torrents, err := e.inventory(ctx, log, c, &res)
	if err != nil {
		return res, err
	}

	if free, err := c.GetFreeSpace(ctx); err != nil {
		log.WithError(err).Warn("Failed retrieving free-space")
	} else {
		res.FreeBytes = free
	}

	victims := SelectUnregistered(torrents)
	log.Infof("Found %d unregistered torrents", len(victims))

	limiter := e.limiter()
	for _, t := range victims {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("interrupted: %w", err)
		}

		log.Info("-----")
		log.Infof("Removing unregistered: %q - %s", t.Name, humanize.IBytes(uint64(t.TotalBytes)))
		log.Infof("Tracker: %s / Tracker Status: %q", t.TrackerName, t.TrackerStatus)

		if e.remove(ctx, log, c, limiter, t) {
			res.Removed++
			res.FreedBytes += t.TotalBytes
		} else {
			res.Failed++
		}
	}

	e.summary(log, res)
	return res, nil
}

// Space removes the oldest torrents, one at a time, until the daemon reports at least wantFreeBytes free.
// A failed removal frees nothing, so the next oldest torrent is taken instead.
func (e *Executor) Space(ctx context.Context, log *logrus.Entry, c client.Interface, wantFreeBytes int64) (Result, error) {
	res := Result{FreeBytes: -1}

	free, err := c.GetFreeSpace(ctx)
	if err != nil {
		return res, fmt.Errorf("get free space: %w", err)
	}
	res.FreeBytes = free

	toFree := wantFreeBytes - free
	if toFree <= 0 {
		log.Infof("Already above disk free threshold (%.2f GB is free), skipping", gb(free))
		res.NoOp = true
		return res, nil
	}

	log.Warnf("Need to delete %.2f GB of torrents", gb(toFree))

	torrents, err := e.inventory(ctx, log, c, &res)
	if err != nil {
		return res, err
	}

	if e.dryRun {
		plan := PlanSpace(torrents, free, wantFreeBytes)
		for _, t := range plan.Torrents {
			log.Info("-----")
			log.Infof("Removing: %q added %s - %s", t.Name, added(t), humanize.IBytes(uint64(t.TotalBytes)))
			log.Warn("Dry-run enabled, skipping remove...")
		}

		res.Removed = len(plan.Torrents)
		res.FreedBytes = plan.Bytes
		res.Remaining = plan.Remaining
		e.summary(log, res)
		return res, nil
	}

	limiter := e.limiter()
	queue := torrents
	for toFree > 0 && len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			res.Remaining = toFree
			return res, fmt.Errorf("interrupted: %w", err)
		}

		victim := queue[0]
		queue = queue[1:]

		log.Info("-----")
		log.Infof("Removing: %q added %s - %s", victim.Name, added(victim), humanize.IBytes(uint64(victim.TotalBytes)))

		if !e.remove(ctx, log, c, limiter, victim) {
			res.Failed++
			continue
		}

		toFree -= victim.TotalBytes
		res.Removed++
		res.FreedBytes += victim.TotalBytes
		log.Infof("Still need to free: %.2f GB", gb(toFree))
	}

	if toFree > 0 {
		res.Remaining = toFree
		log.Warnf("Ran out of torrents, still %.2f GB short of target", gb(toFree))
	}

	e.summary(log, res)
	return res, nil
}

/* Private */

// inventory fetches the daemon's torrents oldest first, without ignored ones.
func (e *Executor) inventory(ctx context.Context, log *logrus.Entry, c client.Interface, res *Result) ([]config.Torrent, error) {
	all, err := c.GetTorrents(ctx)
	if err != nil {
		return nil, fmt.Errorf("get torrents: %w", err)
	}
	log.Infof("Retrieved %d torrents", len(all))

	torrents := make([]config.Torrent, 0, len(all))
	for _, t := range SortOldestFirst(all) {
		t := t
		ignore, err := e.exp.ShouldIgnore(&t)
		if err != nil {
			log.WithError(err).Errorf("Failed determining whether to ignore: %q", t.Name)
			res.Ignored++
			continue
		} else if ignore {
			log.Tracef("Ignoring torrent %s: %s", t.Hash, t.Name)
			res.Ignored++
			continue
		}

		torrents = append(torrents, t)
	}

	return torrents, nil
}

func (e *Executor) remove(ctx context.Context, log *logrus.Entry, c client.Interface, limiter ratelimit.Limiter,
	t config.Torrent) bool {
	if e.dryRun {
		log.Warn("Dry-run enabled, skipping remove...")
		return true
	}

	limiter.Take()

	removed, err := c.RemoveTorrent(ctx, t.Hash, true)
	if err != nil {
		log.WithError(err).Errorf("Failed removing torrent: %q", t.Name)
		return false
	} else if !removed {
		log.Errorf("Failed removing torrent: %q", t.Name)
		return false
	}

	log.Info("Removed")
	return true
}

func (e *Executor) limiter() ratelimit.Limiter {
	if e.rate <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(e.rate)
}

func (e *Executor) summary(log *logrus.Entry, res Result) {
	log.Info("-----")
	if res.Ignored > 0 {
		log.Infof("Ignored torrents: %d", res.Ignored)
	}
	log.WithField("reclaimed_space", humanize.IBytes(uint64(res.FreedBytes))).
		Infof("Removed torrents: %d and %d failures", res.Removed, res.Failed)
}

func gb(bytes int64) float64 {
	return float64(bytes) / humanize.GiByte
}

func added(t config.Torrent) string {
	return fmt.Sprintf("%.0f (%.1f days ago)", t.TimeAdded, t.AddedDays)
}
