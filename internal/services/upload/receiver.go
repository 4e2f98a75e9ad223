package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mcoot/fiteval/internal/dependencies/random"
	"github.com/mcoot/fiteval/internal/metrics"
	"github.com/mcoot/fiteval/internal/model"
)

// Form field names
const (
	FieldVideo    = "video"
	FieldTestType = "testType"
)

// maxFieldBytes bounds non-file form values
const maxFieldBytes = 1 << 10

// Errors
var (
	ErrMissingInput         = errors.New("missing video or test type")
	ErrUnsupportedMediaType = errors.New("only video files allowed")
	ErrDuplicateFile        = errors.New("only one video file allowed")
	ErrPayloadTooLarge      = errors.New("upload too large")
	ErrMalformed            = errors.New("malformed multipart upload")
)

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Config holds upload settings
type Config struct {
	Dir      string `env:"DIR, default=uploads"`
	MaxBytes int64  `env:"MAX_BYTES, default=209715200"`
}

// DefaultConfig returns default upload configuration
func DefaultConfig() Config {
	return Config{
		Dir:      "uploads",
		MaxBytes: 200 << 20,
	}
}

// Receiver streams a multipart upload into a server-named file
type Receiver struct {
	dir      string
	maxBytes int64
	random   random.Random
	logger   *slog.Logger
}

// New creates a Receiver, creating the upload directory if needed
func New(cfg Config, random random.Random, logger *slog.Logger) (*Receiver, error) {
	if cfg.Dir == "" {
		cfg.Dir = DefaultConfig().Dir
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultConfig().MaxBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Receiver{
		dir:      cfg.Dir,
		maxBytes: cfg.MaxBytes,
		random:   random,
		logger:   logger,
	}, nil
}

// Dir returns the directory uploads are written to
func (rc *Receiver) Dir() string {
	return rc.dir
}

// Receive reads the request body and writes the video part to disk.
// The declared Content-Type of the video part must be video/*; the bytes
// themselves are not inspected. On any error no file is left behind.
func (rc *Receiver) Receive(w http.ResponseWriter, r *http.Request) (asset *model.UploadedAsset, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, rc.maxBytes)

	defer func() {
		if err == nil {
			metrics.UploadBytes.Observe(float64(asset.Size))
			return
		}
		metrics.UploadsRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		if asset != nil {
			rc.discard(asset.Path)
			asset = nil
		}
	}()

	mr, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, ErrMissingInput
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var testType string
	for {
		part, perr := mr.NextPart()
		if errors.Is(perr, io.EOF) {
			break
		}
		if perr != nil {
			return asset, classifyReadError(perr)
		}

		switch {
		case part.FormName() == FieldVideo && part.FileName() != "":
			if asset != nil {
				_ = part.Close()
				return asset, ErrDuplicateFile
			}
			a, werr := rc.writePart(part)
			_ = part.Close()
			if a != nil {
				asset = a
			}
			if werr != nil {
				return asset, werr
			}

		case part.FormName() == FieldTestType:
			v, rerr := readField(part)
			_ = part.Close()
			if rerr != nil {
				return asset, rerr
			}
			testType = v

		default:
			_, derr := io.Copy(io.Discard, part)
			_ = part.Close()
			if derr != nil {
				return asset, classifyReadError(derr)
			}
		}
	}

	testType = strings.ToLower(strings.TrimSpace(testType))
	if asset == nil || testType == "" {
		return asset, ErrMissingInput
	}
	asset.TestType = testType

	rc.logger.Debug("upload received",
		"path", asset.Path,
		"test_type", asset.TestType,
		"size", asset.Size,
		"content_type", asset.ContentType,
	)
	return asset, nil
}

// writePart checks the declared media type and copies the part into a new file.
// A non-nil asset is returned whenever a file was created, even on error.
func (rc *Receiver) writePart(part *multipart.Part) (*model.UploadedAsset, error) {
	contentType := part.Header.Get("Content-Type")
	if !isVideo(contentType) {
		return nil, ErrUnsupportedMediaType
	}

	name := rc.random.ID() + extension(part.FileName())
	path := filepath.Join(rc.dir, name)

	// O_EXCL so a colliding name fails instead of clobbering another request's file
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	asset := &model.UploadedAsset{
		Path:         path,
		OriginalName: part.FileName(),
		ContentType:  contentType,
	}

	n, err := io.Copy(f, part)
	asset.Size = n
	if cerr := f.Close(); err == nil && cerr != nil {
		return asset, fmt.Errorf("close upload file: %w", cerr)
	}
	if err != nil {
		return asset, classifyReadError(err)
	}
	return asset, nil
}

func (rc *Receiver) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.CleanupFailuresTotal.Inc()
		rc.logger.Warn("failed to remove rejected upload", "path", path, "error", err)
	}
}

func readField(part *multipart.Part) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", classifyReadError(err)
	}
	if len(b) > maxFieldBytes {
		return "", fmt.Errorf("%w: field %q too long", ErrMalformed, part.FormName())
	}
	return string(b), nil
}

func isVideo(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "video/")
}

// extension keeps a short alphanumeric client extension, otherwise none
func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if safeExt.MatchString(ext) {
		return ext
	}
	return ""
}

func classifyReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrPayloadTooLarge
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingInput):
		return "missing_input"
	case errors.Is(err, ErrUnsupportedMediaType):
		return "unsupported_media_type"
	case errors.Is(err, ErrDuplicateFile):
		return "duplicate_file"
	case errors.Is(err, ErrPayloadTooLarge):
		return "too_large"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "internal"
	}
}
