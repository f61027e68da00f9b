package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/csvio"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/generator"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/report"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/storage"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/warehouse"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// generate runs the generator and writes the raw files and metrics.
func (c *cli) generate(ctx context.Context) (*generator.Result, report.Summary, error) {
	gen, err := generator.New(c.cfg, c.logger)
	if err != nil {
		return nil, report.Summary{}, err
	}
	res, err := gen.Generate(ctx)
	if err != nil {
		return nil, report.Summary{}, err
	}

	start := time.Now()
	paths, err := csvio.WriteDataset(c.cfg.OutputDir, &res.Dataset, c.cfg.Compress)
	if err != nil {
		return nil, report.Summary{}, err
	}
	logging.Timed(c.logger, "raw files written", start, "dir", c.cfg.OutputDir, "files", len(paths))

	summary := report.Summarize(res, c.cfg)
	if err := c.writeMetrics(summary, res.Elapsed); err != nil {
		return nil, report.Summary{}, err
	}
	return res, summary, nil
}

func (c *cli) writeMetrics(summary report.Summary, elapsed time.Duration) error {
	m := report.NewMetrics()
	m.Observe(summary)
	if elapsed > 0 {
		m.ObserveElapsed(elapsed.Seconds())
	}
	if err := m.WriteTextfile(c.cfg.MetricsPath); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	c.logger.Debug("metrics written", "path", c.cfg.MetricsPath)
	return nil
}

// readRaw loads the raw files back from the output directory.
func (c *cli) readRaw() (*types.Dataset, error) {
	start := time.Now()
	ds, err := csvio.ReadDataset(c.cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	logging.Timed(c.logger, "raw files read", start,
		"users", len(ds.Users), "sessions", len(ds.Sessions),
		"events", len(ds.Events), "orders", len(ds.Orders))
	return ds, nil
}

// openWarehouse opens the configured database. The caller closes it.
func (c *cli) openWarehouse(ctx context.Context) (*warehouse.Warehouse, error) {
	return warehouse.Open(ctx, c.cfg.WarehousePath, c.logger)
}

func (c *cli) load(ctx context.Context, w *warehouse.Warehouse, ds *types.Dataset) error {
	m, err := w.Load(ctx, ds)
	if err != nil {
		return err
	}
	c.logger.Info("warehouse loaded", "path", w.Path(), "size_bytes", m.SizeBytes)
	return nil
}

func (c *cli) materialize(ctx context.Context, w *warehouse.Warehouse) error {
	_, err := w.Materialize(ctx)
	return err
}

func (c *cli) export(ctx context.Context, w *warehouse.Warehouse) ([]warehouse.Exported, error) {
	return w.Export(ctx, c.cfg.ExportDir)
}

// artifacts lists everything a run produces, keyed relative to the prefix.
func (c *cli) artifacts() ([]storage.Artifact, error) {
	var out []storage.Artifact
	for _, dir := range []struct{ root, under string }{
		{c.cfg.OutputDir, "raw"},
		{c.cfg.ExportDir, "powerbi"},
	} {
		a, err := storage.ArtifactsUnder(dir.root, dir.under)
		if err != nil {
			return nil, err
		}
		out = append(out, a...)
	}
	for _, p := range []string{c.cfg.WarehousePath, warehouse.ManifestPath(c.cfg.WarehousePath), c.cfg.MetricsPath} {
		if !fileExists(p) {
			continue
		}
		out = append(out, storage.Artifact{LocalPath: p, Key: filepath.Base(p)})
	}
	return out, nil
}

func (c *cli) publish(ctx context.Context, concurrency int) (*storage.PublishResult, error) {
	store, err := storage.Open(ctx, c.cfg.Storage)
	if err != nil {
		return nil, err
	}
	artifacts, err := c.artifacts()
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("nothing to publish under %s", c.cfg.DataDir)
	}

	res, err := storage.NewPublisher(store, c.cfg.Storage.Prefix, concurrency, c.logger).Publish(ctx, artifacts)
	if err != nil {
		return nil, err
	}
	return res, res.Err()
}
