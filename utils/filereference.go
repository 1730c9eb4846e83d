package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// MaxModelFileSize is 100MB in bytes
	MaxModelFileSize = 100 * 1024 * 1024
)

// allowedModelExtensions are the printable model formats the service accepts
var allowedModelExtensions = []string{".stl", ".obj", ".3mf", ".gcode"}

// FileReferenceError represents a file reference validation error
type FileReferenceError struct {
	Code    string
	Message string
}

func (e *FileReferenceError) Error() string {
	return e.Message
}

// ValidateFileReference validates a job's model file reference. The URL
// itself stays opaque; only the declared name and size are checked.
func ValidateFileReference(fileURL, fileName string, fileSize int64) error {
	if strings.TrimSpace(fileURL) == "" {
		return &FileReferenceError{
			Code:    "MISSING_FILE_REFERENCE",
			Message: "fileUrl is required",
		}
	}

	if fileSize > MaxModelFileSize {
		return &FileReferenceError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxModelFileSize/(1024*1024)),
		}
	}
	if fileSize < 0 {
		return &FileReferenceError{
			Code:    "INVALID_FILE_SIZE",
			Message: "File size must not be negative",
		}
	}

	// Extension check runs against the declared name when present,
	// otherwise against the reference itself
	name := fileName
	if name == "" {
		name = fileURL
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range allowedModelExtensions {
		if ext == allowed {
			return nil
		}
	}
	return &FileReferenceError{
		Code:    "INVALID_FILE_FORMAT",
		Message: fmt.Sprintf("Only %s files are allowed", strings.Join(allowedModelExtensions, ", ")),
	}
}

// ParseS3URL splits an object storage reference into bucket and key.
// Understands s3://bucket/key and virtual-hosted HTTPS URLs
// (https://bucket.s3.region.amazonaws.com/key). Returns ok=false for
// anything else.
func ParseS3URL(ref string) (bucket, key string, ok bool) {
	if strings.HasPrefix(ref, "s3://") {
		rest := strings.TrimPrefix(ref, "s3://")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return "", "", false
		}
		return parts[0], parts[1], true
	}

	if strings.HasPrefix(ref, "https://") {
		rest := strings.TrimPrefix(ref, "https://")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 || parts[1] == "" {
			return "", "", false
		}
		host := parts[0]
		if idx := strings.Index(host, ".s3."); idx > 0 {
			return host[:idx], parts[1], true
		}
	}
	return "", "", false
}
