package benchmark

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/config"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/generator"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/storage"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/pkg/types"
)

func benchConfig(seed uint64, users, workers int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Seed = seed
	cfg.Workers = workers
	cfg.Population.Users = users
	cfg.Sessions.Target = users * 3
	return cfg
}

func benchDataset(b *testing.B, users int) *types.Dataset {
	b.Helper()
	g, err := generator.New(benchConfig(42, users, 1), nil)
	if err != nil {
		b.Fatal(err)
	}
	res, err := g.Generate(context.Background())
	if err != nil {
		b.Fatal(err)
	}
	return &res.Dataset
}

// getBenchmarkStorage returns the publish target and a key prefix. It honours
// ECOMSIM_STORAGE_TYPE=s3 from ../../.env or the environment; everything
// else publishes into a temp directory.
func getBenchmarkStorage(b *testing.B, benchName string) (storage.ObjectStorage, string) {
	_ = godotenv.Load("../../.env")

	if os.Getenv("ECOMSIM_STORAGE_TYPE") == "s3" {
		cfg := config.DefaultConfig()
		config.LoadFromEnv(cfg)
		if cfg.Storage.S3.Bucket == "" {
			b.Fatal("ECOMSIM_S3_BUCKET is required for s3 benchmark")
		}
		st, err := storage.Open(context.Background(), cfg.Storage)
		if err != nil {
			b.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		prefix := fmt.Sprintf("bench/%s/%d", benchName, time.Now().UnixNano())
		b.Logf("Running benchmark against S3 Bucket: %s Prefix: %s", cfg.Storage.S3.Bucket, prefix)
		return st, prefix
	}

	st, err := storage.NewLocalStorage(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	return st, ""
}
