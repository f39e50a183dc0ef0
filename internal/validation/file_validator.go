package validation

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "tradeledger/internal/errors"
)

// zipSignature opens every OOXML package, .xlsx included.
var zipSignature = []byte("PK\x03\x04")

// FileValidator validates ledger uploads and local input/output paths
type FileValidator struct {
	logger        *slog.Logger
	allowedExt    string
	maxUploadSize int64
}

// NewFileValidator creates a new file validator accepting extension ext
// (e.g. ".xlsx") up to maxUploadSize bytes; a zero size disables the limit.
func NewFileValidator(logger *slog.Logger, ext string, maxUploadSize int64) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger:        logger.With(slog.String("component", "file_validator")),
		allowedExt:    strings.ToLower(ext),
		maxUploadSize: maxUploadSize,
	}
}

// AllowedFile reports whether filename carries the accepted extension.
func (v *FileValidator) AllowedFile(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}
	return strings.ToLower(filename[idx:]) == v.allowedExt
}

// ValidateUploadName checks the client supplied filename of an upload.
func (v *FileValidator) ValidateUploadName(filename string) error {
	if filename == "" {
		return apperrors.ErrEmptyFilename
	}
	if !v.AllowedFile(filename) {
		v.logger.Warn("Rejected upload with unsupported extension",
			slog.String("filename", filename))
		return apperrors.ErrUnsupportedFileType
	}
	if strings.HasPrefix(filepath.Base(filepath.ToSlash(filename)), "~$") {
		v.logger.Warn("Rejected temporary Excel lock file",
			slog.String("filename", filename))
		return apperrors.NewAppValidationError("Temporary Excel lock files cannot be processed")
	}
	return nil
}

// ValidateSize rejects uploads whose declared size exceeds the limit.
func (v *FileValidator) ValidateSize(size int64) error {
	if v.maxUploadSize > 0 && size > v.maxUploadSize {
		return apperrors.ErrPayloadTooLarge
	}
	return nil
}

// ValidateSignature checks that r starts with the ZIP local file header.
// The reader is rewound when it supports seeking.
func (v *FileValidator) ValidateSignature(r io.Reader) error {
	head := make([]byte, len(zipSignature))
	n, err := io.ReadFull(r, head)
	if seeker, ok := r.(io.Seeker); ok {
		if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
			return fmt.Errorf("failed to rewind upload: %w", serr)
		}
	}
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return fmt.Errorf("failed to read upload: %w", err)
	}

	if !bytes.Equal(head[:n], zipSignature) {
		v.logger.Warn("Rejected upload without workbook signature", slog.Int("bytes_read", n))
		return apperrors.NewWithDetails(
			apperrors.ErrUnsupportedFileType.StatusCode,
			apperrors.ErrUnsupportedFileType.ErrorCode,
			apperrors.ErrUnsupportedFileType.Message,
			"file content is not an .xlsx workbook",
		)
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	testFile.Close()
	os.Remove(testFile.Name())

	v.logger.Debug("Output directory validated", slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist", slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateLedgerFile checks a local workbook the same way uploads are
// checked: name, existence, size and signature.
func (v *FileValidator) ValidateLedgerFile(path string) error {
	if err := v.ValidateUploadName(filepath.Base(path)); err != nil {
		return err
	}
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := v.ValidateSize(info.Size()); err != nil {
		return err
	}
	return v.ValidateSignature(f)
}
