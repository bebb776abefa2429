package pipeline

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"jobpilot/internal/errors"
)

// CVFile is a CV ready to be uploaded for analysis
type CVFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the length of the file content in bytes
func (f CVFile) Size() int64 {
	return int64(len(f.Data))
}

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// DetectType resolves the MIME type of a CV. The supplied content type wins,
// then the file extension, then content sniffing.
func DetectType(f CVFile) string {
	if ct := strings.TrimSpace(f.ContentType); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
		return strings.ToLower(ct)
	}
	if mt, ok := extensionTypes[fileExtension(f.Name)]; ok {
		return mt
	}
	if len(f.Data) == 0 {
		return ""
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(f.Data))
	return mt
}

// ValidateCV checks size and type limits and returns the resolved MIME type
func ValidateCV(f CVFile, maxSize int64, allowed []string) (string, error) {
	if maxSize > 0 && f.Size() > maxSize {
		return "", errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("CV file is %s, the limit is %s", FormatFileSize(f.Size()), FormatFileSize(maxSize)), nil).
			WithContext("size", f.Size())
	}

	mt := DetectType(f)
	if len(allowed) > 0 && !slices.Contains(allowed, mt) {
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedType,
			fmt.Sprintf("unsupported CV type '%s' (PDF, DOC or DOCX required)", mt), nil).
			WithContext("filename", f.Name)
	}
	return mt, nil
}

// ReadCVFile validates that path is a readable regular file and loads it
func ReadCVFile(path string, maxSize int64) (CVFile, error) {
	if path == "" {
		return CVFile{}, errors.NewValidationError(errors.ErrCodeInvalidRequest, "filename cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return CVFile{}, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", path), err)
		}
		return CVFile{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot access file: %s", path), err)
	}
	if info.IsDir() {
		return CVFile{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return CVFile{}, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("CV file is %s, the limit is %s", FormatFileSize(info.Size()), FormatFileSize(maxSize)), nil)
	}

	file, err := os.Open(path)
	if err != nil {
		return CVFile{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return CVFile{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", path), err)
	}

	return CVFile{Name: filepath.Base(path), Data: data}, nil
}

// IsCVCandidate reports whether a file name carries one of the CV extensions
func IsCVCandidate(name string) bool {
	_, ok := extensionTypes[fileExtension(name)]
	return ok
}

func fileExtension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// FormatFileSize returns a human-readable file size
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
