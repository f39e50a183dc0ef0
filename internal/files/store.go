package files

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"tradeledger/internal/config"
	apperrors "tradeledger/internal/errors"
	"tradeledger/internal/infrastructure"
	"tradeledger/internal/validation"
)

// Artifact is a generated file that can be downloaded.
type Artifact struct {
	ID        string
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// Request is the private scratch directory of one upload.
type Request struct {
	ID  string
	Dir string
}

// Path joins a sanitized file name onto the request directory.
func (r *Request) Path(name string) string {
	return filepath.Join(r.Dir, name)
}

// Store keeps uploads and their artifacts in per-request directories below
// the scratch root. Concurrent uploads never share a directory, so equal
// upload names cannot overwrite each other. An in-memory index maps a file
// name to its most recent artifact for the legacy name-only download route.
type Store struct {
	paths     *config.Paths
	root      string
	ttl       time.Duration
	index     *cache.Cache
	discovery *Discovery
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore creates the scratch root if needed. Index entries expire after
// ttl and are purged every cleanupInterval.
func NewStore(paths *config.Paths, ttl, cleanupInterval time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(paths.ScratchDir, 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create scratch directory", err)
	}

	return &Store{
		paths:     paths,
		root:      paths.ScratchDir,
		ttl:       ttl,
		index:     cache.New(ttl, cleanupInterval),
		discovery: NewDiscovery(paths.ScratchDir),
		logger:    infrastructure.WithComponent(logger, "artifact_store"),
		now:       time.Now,
	}, nil
}

// Root returns the scratch root directory.
func (s *Store) Root() string {
	return s.root
}

// NewRequest allocates a fresh request directory named by a random UUID.
func (s *Store) NewRequest() (*Request, error) {
	id := uuid.NewString()
	dir := s.paths.RequestDir(id)
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create request directory", err)
	}
	return &Request{ID: id, Dir: dir}, nil
}

// SaveUpload streams src into the request directory under name and returns
// the written path and size.
func (s *Store) SaveUpload(req *Request, name string, src io.Reader) (string, int64, error) {
	path := req.Path(name)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", 0, apperrors.NewStorageError("failed to create upload file", err)
	}

	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", n, fmt.Errorf("failed to save upload: %w", err)
	}

	s.logger.Debug("Upload saved",
		slog.String("request_id", req.ID),
		slog.String("file", name),
		slog.Int64("size_bytes", n))
	return path, n, nil
}

// Register indexes an artifact that was written into the request directory.
func (s *Store) Register(req *Request, name string) (Artifact, error) {
	info, err := os.Stat(req.Path(name))
	if err != nil {
		return Artifact{}, apperrors.NewStorageError("artifact was not written", err)
	}

	artifact := Artifact{
		ID:        req.ID,
		Name:      name,
		Path:      req.Path(name),
		Size:      info.Size(),
		CreatedAt: s.now(),
	}
	s.index.Set(name, artifact, cache.DefaultExpiration)

	s.logger.Info("Artifact registered",
		slog.String("request_id", req.ID),
		slog.String("file", name),
		slog.Int64("size_bytes", artifact.Size))
	return artifact, nil
}

// Discard removes a request directory and everything in it.
func (s *Store) Discard(req *Request) {
	if req == nil {
		return
	}
	if err := os.RemoveAll(req.Dir); err != nil {
		s.logger.Warn("Failed to discard request directory",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()))
	}
}

// Resolve finds the artifact name inside request id. Ids must be canonical
// UUIDs and names must already be sanitized; anything else is not found.
func (s *Store) Resolve(id, name string) (Artifact, error) {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id || !validation.IsSafeFilename(name) {
		return Artifact{}, apperrors.NewNotFoundError("artifact")
	}
	return s.stat(id, filepath.Join(s.paths.RequestDir(id), name))
}

// ResolveLatest finds the most recent artifact called name. The index is
// consulted first; after a restart the request directories are scanned.
func (s *Store) ResolveLatest(name string) (Artifact, error) {
	if !validation.IsSafeFilename(name) {
		return Artifact{}, apperrors.NewNotFoundError("artifact")
	}

	if cached, ok := s.index.Get(name); ok {
		artifact := cached.(Artifact)
		if resolved, err := s.stat(artifact.ID, artifact.Path); err == nil {
			return resolved, nil
		}
		s.index.Delete(name)
	}

	candidates, err := s.discovery.FindByName(name)
	if err != nil {
		return Artifact{}, apperrors.NewStorageError("failed to search artifacts", err)
	}
	latest, ok := GetLatestFile(candidates)
	if !ok {
		return Artifact{}, apperrors.NewNotFoundError("artifact")
	}
	return s.stat(filepath.Base(filepath.Dir(latest.Path)), latest.Path)
}

func (s *Store) stat(id, path string) (Artifact, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Artifact{}, apperrors.NewNotFoundError("artifact")
	}
	if s.ttl > 0 && s.now().Sub(info.ModTime()) > s.ttl {
		return Artifact{}, apperrors.NewNotFoundError("artifact")
	}
	return Artifact{
		ID:        id,
		Name:      info.Name(),
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Sweep removes request directories older than the TTL and returns how
// many were removed.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	dirs, err := s.discovery.ListDirectories()
	if err != nil {
		return 0, apperrors.NewStorageError("failed to list request directories", err)
	}

	removed := 0
	for _, dir := range FilterOlderThan(dirs, s.now().Add(-s.ttl)) {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, err := uuid.Parse(dir.Name); err != nil {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove expired request directory",
				slog.String("path", dir.Path),
				slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "Expired request directories removed", slog.Int("count", removed))
	}
	return removed, nil
}

// RunJanitor sweeps every interval until ctx is cancelled. onSweep, when
// set, receives the number of directories removed by each sweep.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(int)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "Artifact janitor started",
		slog.Duration("interval", interval),
		slog.Duration("ttl", s.ttl))

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Artifact janitor stopped")
			return nil
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.WarnContext(ctx, "Artifact sweep failed", slog.String("error", err.Error()))
			}
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
