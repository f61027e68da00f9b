package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/errors"
	"github.com/Sumit-SC/E-commerce-Product-Analytics/internal/logging"
)

// Artifact is a local file and the key it is published under, relative to
// the publisher prefix.
type Artifact struct {
	LocalPath string
	Key       string
}

// Published records one uploaded object.
type Published struct {
	ObjectPath string `json:"object_path"`
	Size       int64  `json:"size"`
	MD5        string `json:"md5"`
}

// PublishResult contains the outcome of a publish operation.
type PublishResult struct {
	Objects []Published
	Errors  map[string]error
	Bytes   int64
}

// Err folds per-object failures into one retryable storage error.
func (r *PublishResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Errors))
	for k := range r.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return errors.NewStorageError(errors.CodeUploadFailed,
		fmt.Sprintf("%d of %d uploads failed (first: %s)", len(r.Errors), len(r.Errors)+len(r.Objects), keys[0]),
		r.Errors[keys[0]])
}

// Publisher uploads artifacts in parallel under a key prefix.
type Publisher struct {
	storage     ObjectStorage
	concurrency int
	prefix      string
	logger      *slog.Logger
}

// NewPublisher creates a publisher. concurrency < 1 means 4.
func NewPublisher(storage ObjectStorage, prefix string, concurrency int, logger *slog.Logger) *Publisher {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Publisher{
		storage:     storage,
		concurrency: concurrency,
		prefix:      prefix,
		logger:      logging.OrDiscard(logger),
	}
}

// ObjectPath joins the prefix and an artifact key.
func (p *Publisher) ObjectPath(key string) string {
	if p.prefix == "" {
		return path.Clean(key)
	}
	return path.Join(p.prefix, key)
}

// Publish uploads every artifact. Individual failures are collected in the
// result; the returned error is non-nil only when the context ends.
func (p *Publisher) Publish(ctx context.Context, artifacts []Artifact) (*PublishResult, error) {
	result := &PublishResult{Errors: make(map[string]error)}
	sem := semaphore.NewWeighted(int64(p.concurrency))

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, a := range artifacts {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return result, err
		}

		wg.Add(1)
		go func(a Artifact) {
			defer sem.Release(1)
			defer wg.Done()

			objectPath := p.ObjectPath(a.Key)
			size, sum, err := checksum(a.LocalPath)
			if err == nil {
				err = p.storage.Upload(ctx, a.LocalPath, objectPath)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[objectPath] = err
				return
			}
			result.Objects = append(result.Objects, Published{ObjectPath: objectPath, Size: size, MD5: sum})
			result.Bytes += size
		}(a)
	}
	wg.Wait()

	sort.Slice(result.Objects, func(i, j int) bool {
		return result.Objects[i].ObjectPath < result.Objects[j].ObjectPath
	})
	p.logger.Debug("published artifacts", "objects", len(result.Objects), "failed", len(result.Errors), "bytes", result.Bytes)
	return result, nil
}

func checksum(localPath string) (int64, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()
	h := md5.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// ArtifactsUnder lists every regular file below root. Keys are the slash
// form of each path relative to root, nested under under.
func ArtifactsUnder(root, under string) ([]Artifact, error) {
	var out []Artifact
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		out = append(out, Artifact{LocalPath: p, Key: path.Join(under, filepath.ToSlash(rel))})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list artifacts under %s: %w", root, err)
	}
	return out, nil
}
