package core

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// DefaultMaxFileSize is the upload cap used when none is configured.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

var (
	ErrNoFile       = errors.New("no file provided")
	ErrNotCSV       = errors.New("invalid csv: only .csv files are accepted")
	ErrEmptyFile    = errors.New("empty file")
	ErrFileTooLarge = errors.New("file too large")
)

// acceptedMimeTypes are the content types browsers send for CSV files.
var acceptedMimeTypes = []string{"text/csv", "application/vnd.ms-excel"}

// IsCSVUpload reports whether a file is accepted as CSV, by a .csv
// extension or by its declared content type.
func IsCSVUpload(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, accepted := range acceptedMimeTypes {
		if mt == accepted {
			return true
		}
	}
	return false
}

// ReadUpload checks an uploaded file and returns its decoded text.
// At most maxSize bytes are read; larger files yield ErrFileTooLarge.
func ReadUpload(r io.Reader, name, contentType string, maxSize int64) (string, error) {
	if r == nil {
		return "", ErrNoFile
	}
	if !IsCSVUpload(name, contentType) {
		return "", ErrNotCSV
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("%w: limit is %s", ErrFileTooLarge, FormatSize(maxSize))
	}
	if len(data) == 0 {
		return "", ErrEmptyFile
	}

	return DecodeUpload(data), nil
}
