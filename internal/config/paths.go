package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the directories the service writes to.
// Every upload gets its own directory below ScratchDir.
type Paths struct {
	ScratchDir string
	LogsDir    string
}

// GetPaths resolves the configured directories to absolute paths. An empty
// scratch dir falls back to a "tradeledger" folder in the OS temp directory.
func GetPaths(cfg *Config) (*Paths, error) {
	scratch := cfg.Storage.ScratchDir
	if scratch == "" {
		scratch = filepath.Join(os.TempDir(), "tradeledger")
	}

	scratch, err := filepath.Abs(scratch)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scratch dir: %v", err)
	}

	logsDir := ""
	if cfg.Logging.Output != "console" && cfg.Logging.FilePath != "" {
		logsDir, err = filepath.Abs(filepath.Dir(cfg.Logging.FilePath))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve logs dir: %v", err)
		}
	}

	return &Paths{
		ScratchDir: scratch,
		LogsDir:    logsDir,
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	logger := slog.Default()

	for _, dir := range []string{p.ScratchDir, p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %v", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// RequestDir returns the scratch directory owned by one request.
func (p *Paths) RequestDir(id string) string {
	return filepath.Join(p.ScratchDir, id)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
