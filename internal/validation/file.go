package validation

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

var (
	ErrFileRequired = errors.New("Please select a photo first.")
	ErrInvalidFile  = errors.New("invalid file")
)

// FileError is a user-facing rejection of an upload. It matches ErrInvalidFile.
type FileError struct {
	Message string
}

func (e *FileError) Error() string {
	return e.Message
}

func (e *FileError) Is(target error) bool {
	return target == ErrInvalidFile
}

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes  map[string]bool
	AllowedExtensions map[string]bool
	MaxSize           int64
}

// ImageConstraints applies to daily proofs, mission proofs and boost images.
var ImageConstraints = FileConstraints{
	AllowedMimeTypes: map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	},
	AllowedExtensions: map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".webp": true,
	},
	MaxSize: 5 << 20, // 5MB
}

// ValidateFile checks size, extension and sniffed content type, and returns
// the detected MIME type. The file is rewound before returning.
func ValidateFile(file multipart.File, header *multipart.FileHeader, constraints FileConstraints) (string, error) {
	if file == nil || header == nil {
		return "", ErrFileRequired
	}

	if header.Size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return "", &FileError{Message: fmt.Sprintf("File too large: maximum size is %d MB.", maxMB)}
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !constraints.AllowedExtensions[ext] {
		return "", &FileError{Message: fmt.Sprintf("Invalid file extension: %s.", ext)}
	}

	// Magic numbers, not the client's Content-Type header.
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return "", fmt.Errorf("failed to reset file pointer: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	if !constraints.AllowedMimeTypes[detected] {
		return "", &FileError{Message: fmt.Sprintf("Invalid file type (detected: %s).", detected)}
	}

	return detected, nil
}
