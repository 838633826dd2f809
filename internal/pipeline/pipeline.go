package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/user/sweep_analyzer_go/internal/analysis"
	"github.com/user/sweep_analyzer_go/internal/cache"
	"github.com/user/sweep_analyzer_go/internal/config"
)

// Result is the outcome of one Run.
type Result struct {
	Summaries  map[string]analysis.Summary
	Recomputed bool
	FilesRead  int      // data files opened during this run
	Warnings   []string // non-fatal problems, also logged
}

// Runner turns the configured input directory into per-experiment summaries,
// reusing the persisted ones when no input file changed.
type Runner struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func NewRunner(cfg *config.Config, logger *logrus.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

func (r *Runner) buildOptions(prefix string) analysis.BuildOptions {
	return analysis.BuildOptions{
		Prefix:      prefix,
		TimeColumn:  r.cfg.TimeColumn,
		TimeSamples: r.cfg.TimeSamples,
		MinTime:     r.cfg.MinTime,
		MaxTime:     r.cfg.MaxTime,
		Logarithmic: r.cfg.LogarithmicTime,
	}
}

func (r *Runner) warn(res *Result, fields logrus.Fields, msg string) {
	res.Warnings = append(res.Warnings, msg)
	r.logger.WithFields(fields).Warn(msg)
}

// Run executes the whole pipeline once.
func (r *Runner) Run() (*Result, error) {
	res := &Result{Summaries: make(map[string]analysis.Summary)}

	newest, exists, err := cache.NewestModTime(r.cfg.InputDir)
	if err != nil {
		return nil, err
	}
	if !exists {
		r.warn(res, logrus.Fields{"dir": r.cfg.InputDir}, fmt.Sprintf("Input directory %s does not exist", r.cfg.InputDir))
		for _, exp := range r.cfg.Experiments {
			res.Summaries[exp] = analysis.EmptySummary()
		}
		return res, nil
	}

	store, err := r.openStore()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if summaries, ok := r.tryCache(store, newest); ok {
		res.Summaries = summaries
		return res, nil
	}

	res.Recomputed = true
	for _, name := range r.cfg.Experiments {
		summary, err := r.processExperiment(name, res)
		if err != nil {
			return nil, err
		}
		res.Summaries[name] = summary
	}

	if err := store.Save(newest, res.Summaries); err != nil {
		return nil, fmt.Errorf("failed to save summaries: %w", err)
	}
	r.logger.WithField("experiments", len(res.Summaries)).Info("Summaries saved")
	return res, nil
}

// openStore opens the configured cache. An unreadable cache file is removed
// and recreated, since its content can always be regenerated.
func (r *Runner) openStore() (cache.Store, error) {
	path := cache.Path(r.cfg.CacheBackend, r.cfg.CacheName)
	store, err := cache.Open(r.cfg.CacheBackend, path)
	if err == nil {
		return store, nil
	}
	r.logger.WithError(err).WithField("path", path).Warn("Cache unreadable, recreating it")
	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove unreadable cache: %w", rmErr)
	}
	store, err = cache.Open(r.cfg.CacheBackend, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return store, nil
}

// tryCache returns the stored summaries when they are still valid: either the
// newest input stamp matches the stored one, or the skip marker is present.
func (r *Runner) tryCache(store cache.Store, newest int64) (map[string]analysis.Summary, bool) {
	_, skipErr := os.Stat(r.cfg.SkipMarker)
	skip := r.cfg.SkipMarker != "" && skipErr == nil

	last, err := store.LastProcessed()
	if err != nil {
		r.logger.WithError(err).Debug("No usable processing timestamp")
		last = -1
	}
	if !skip && last != newest {
		r.logger.WithFields(logrus.Fields{"stored": last, "newest": newest}).Info("Input changed, recomputing")
		return nil, false
	}

	summaries, err := store.Load(r.cfg.Experiments)
	if err != nil {
		r.logger.WithError(err).Info("Cached summaries unusable, recomputing")
		return nil, false
	}
	r.logger.WithField("skip_marker", skip).Info("Loaded cached summaries")
	return summaries, true
}

func (r *Runner) processExperiment(name string, res *Result) (analysis.Summary, error) {
	log := r.logger.WithField("experiment", name)
	files, err := experimentFiles(r.cfg.InputDir, name)
	if err != nil {
		return analysis.Summary{}, err
	}
	log.WithField("files", len(files)).Info("Processing experiment")

	exp, err := analysis.BuildExperiment(name, files, r.buildOptions(name))
	if err != nil {
		return analysis.Summary{}, err
	}
	res.FilesRead += exp.FilesRead
	for _, w := range exp.Warnings {
		r.warn(res, logrus.Fields{"experiment": name}, w)
	}
	if exp.Data.IsEmpty() {
		return analysis.EmptySummary(), nil
	}
	return analysis.Fold(exp.Data, r.cfg.SeedVars), nil
}

// experimentFiles lists the files of dir matching <prefix>_*.csv, sorted.
func experimentFiles(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	pattern := prefix + "_*.csv"
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("bad experiment prefix %q: %w", prefix, err)
		}
		if ok {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
