package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/user/sweep_analyzer_go/internal/config"
	"github.com/user/sweep_analyzer_go/internal/pipeline"
	"github.com/user/sweep_analyzer_go/internal/report"
)

// App runs one processing pass: summaries, then charts, then the report.
type App struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func NewApp(cfg *config.Config, logger *logrus.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

func (a *App) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	a.logger.WithFields(logrus.Fields{
		"input_dir":   a.cfg.InputDir,
		"experiments": len(a.cfg.Experiments),
		"backend":     a.cfg.CacheBackend,
	}).Info("Processing data")
	res, err := pipeline.NewRunner(a.cfg, a.logger).Run()
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	a.logger.WithFields(logrus.Fields{
		"recomputed": res.Recomputed,
		"files_read": res.FilesRead,
		"warnings":   len(res.Warnings),
	}).Info("Summaries ready")

	opts := report.ChartOptionsFrom(a.cfg)
	if a.cfg.Charts.Enabled {
		n, err := report.GenerateAllCharts(ctx, a.cfg.Experiments, res.Summaries, opts, a.logger)
		if err != nil {
			return fmt.Errorf("chart generation failed after %d charts: %w", n, err)
		}
		a.logger.WithFields(logrus.Fields{"charts": n, "dir": a.cfg.OutputDir}).Info("Chart generation complete")
	}

	if a.cfg.Report.Enabled {
		data := &report.ReportData{
			Experiments: a.cfg.Experiments,
			Summaries:   res.Summaries,
			TimeColumn:  a.cfg.TimeColumn,
			FilesRead:   res.FilesRead,
			Recomputed:  res.Recomputed,
			Warnings:    res.Warnings,
		}
		if data.Images, err = report.RenderReportImages(data, opts); err != nil {
			return fmt.Errorf("report images failed: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(a.cfg.Report.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		if err := report.BuildPDFReport(a.cfg.Report.Path, data); err != nil {
			return fmt.Errorf("failed to generate PDF report: %w", err)
		}
		a.logger.WithField("path", a.cfg.Report.Path).Info("PDF report generated")
	}
	return nil
}
