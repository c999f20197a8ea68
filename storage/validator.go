package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/princinho/storefront/config"
)

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidType      = errors.New("invalid file type")
)

// FileValidator checks uploads by size, extension and sniffed content type.
// The declared Content-Type header is never trusted.
type FileValidator struct {
	allowedExt  map[string]bool
	allowedMime map[string]bool
	maxSize     int64
}

func NewFileValidator(cfg config.UploadConfig) *FileValidator {
	allowedExt := make(map[string]bool)
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.TrimSpace(strings.ToLower(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowedExt[ext] = true
	}

	allowedMime := make(map[string]bool)
	for _, m := range cfg.AllowedMimeTypes {
		if m = strings.TrimSpace(strings.ToLower(m)); m != "" {
			allowedMime[m] = true
		}
	}

	sizeMB := cfg.MaxSizeMB
	if sizeMB <= 0 {
		sizeMB = 5
	}
	return &FileValidator{
		allowedExt:  allowedExt,
		allowedMime: allowedMime,
		maxSize:     int64(sizeMB) << 20,
	}
}

// ValidateFile returns the sniffed MIME type of an acceptable file.
func (v *FileValidator) ValidateFile(fileHeader *multipart.FileHeader) (string, error) {
	if fileHeader.Size > v.maxSize {
		return "", fmt.Errorf("%w (max %d MB)", ErrFileTooLarge, v.maxSize>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !v.allowedExt[ext] {
		return "", ErrInvalidExtension
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("failed to read file header: %w", err)
	}

	detected := strings.ToLower(http.DetectContentType(buffer[:n]))
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = strings.TrimSpace(detected[:i])
	}
	if !v.allowedMime[detected] {
		return "", ErrInvalidType
	}
	if !extensionMatches(ext, detected) {
		return "", fmt.Errorf("%w: %s content in a %s file", ErrInvalidType, detected, ext)
	}
	return detected, nil
}

// ValidateAll validates files in order and stops at the first failure.
func (v *FileValidator) ValidateAll(files []*multipart.FileHeader) ([]string, error) {
	types := make([]string, 0, len(files))
	for _, fh := range files {
		mt, err := v.ValidateFile(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		types = append(types, mt)
	}
	return types, nil
}

func extensionMatches(ext, mimeType string) bool {
	exts, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(exts) == 0 {
		return true
	}
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	// jpeg has several spellings that mime tables do not always list.
	return mimeType == "image/jpeg" && (ext == ".jpg" || ext == ".jpeg" || ext == ".jfif")
}
