// Package benchmark measures generation, raw file and warehouse throughput.
package benchmark

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/bloom"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/csvio"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/generator"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/storage"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/warehouse"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

// BenchmarkGenerate measures end-to-end generation for single and sharded runs.
func BenchmarkGenerate(b *testing.B) {
	for _, workers := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			cfg := benchConfig(42, 2000, workers)
			b.ReportAllocs()
			events := 0
			for i := 0; i < b.N; i++ {
				g, err := generator.New(cfg, nil)
				if err != nil {
					b.Fatal(err)
				}
				res, err := g.Generate(context.Background())
				if err != nil {
					b.Fatal(err)
				}
				events += len(res.Events)
			}
			b.ReportMetric(float64(events)/b.Elapsed().Seconds(), "events/sec")
		})
	}
}

// BenchmarkWriteDataset compares plain and Snappy-framed raw files.
func BenchmarkWriteDataset(b *testing.B) {
	ds := benchDataset(b, 2000)
	for _, compress := range []bool{false, true} {
		b.Run(fmt.Sprintf("compress=%t", compress), func(b *testing.B) {
			dir := b.TempDir()
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := csvio.WriteDataset(dir, ds, compress); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(len(ds.Events)*b.N)/b.Elapsed().Seconds(), "events/sec")
		})
	}
}

func BenchmarkReadDataset(b *testing.B) {
	ds := benchDataset(b, 2000)
	dir := b.TempDir()
	if _, err := csvio.WriteDataset(dir, ds, true); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := csvio.ReadDataset(dir); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkWarehouseLoadMaterialize measures load plus every materialize step.
func BenchmarkWarehouseLoadMaterialize(b *testing.B) {
	ds := benchDataset(b, 2000)
	ctx := context.Background()
	w, err := warehouse.Open(ctx, filepath.Join(b.TempDir(), "bench.db"), nil)
	if err != nil {
		b.Fatal(err)
	}
	defer w.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.Load(ctx, ds); err != nil {
			b.Fatal(err)
		}
		if _, err := w.Materialize(ctx); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportMetric(float64(len(ds.Events)*b.N)/b.Elapsed().Seconds(), "events/sec")
}

// BenchmarkBloomFilterLookup measures user id probes against a loaded filter.
func BenchmarkBloomFilterLookup(b *testing.B) {
	f := bloom.ForCapacity(100000, 0.01)
	for id := int64(1); id <= 100000; id++ {
		f.AddID(id)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.HasID(int64(i%200000) + 1)
	}
}

// BenchmarkBloomFilterFalsePositiveRate reports the observed rate at 1% target.
func BenchmarkBloomFilterFalsePositiveRate(b *testing.B) {
	const n = 10000
	f := bloom.ForCapacity(n, 0.01)
	for id := int64(1); id <= n; id++ {
		f.AddID(id)
	}

	b.ResetTimer()
	falsePositives, probes := 0, 0
	for i := 0; i < b.N; i++ {
		for id := int64(n + 1); id <= n+100000; id++ {
			if f.HasID(id) {
				falsePositives++
			}
			probes++
		}
	}
	fpr := float64(falsePositives) / float64(probes)
	b.ReportMetric(fpr*100, "FPR%")
	if fpr > 0.015 {
		b.Errorf("false positive rate %.4f exceeds 1.5%%", fpr)
	}
}

func BenchmarkULIDGeneration(b *testing.B) {
	gen := types.NewULIDGenerator(nil)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		// Four events per millisecond exercises the monotonic increment path.
		if _, err := gen.GenerateWithTime(start.Add(time.Duration(i/4) * time.Millisecond)); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkPublish uploads one run's raw files per iteration.
func BenchmarkPublish(b *testing.B) {
	ds := benchDataset(b, 1000)
	dir := b.TempDir()
	if _, err := csvio.WriteDataset(dir, ds, true); err != nil {
		b.Fatal(err)
	}
	artifacts, err := storage.ArtifactsUnder(dir, "raw")
	if err != nil {
		b.Fatal(err)
	}
	st, prefix := getBenchmarkStorage(b, "publish")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := storage.NewPublisher(st, path.Join(prefix, fmt.Sprintf("run-%d", i)), 4, nil)
		res, err := p.Publish(context.Background(), artifacts)
		if err != nil {
			b.Fatal(err)
		}
		if err := res.Err(); err != nil {
			b.Fatal(err)
		}
	}
}
