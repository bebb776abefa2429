package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"jobpilot/internal/errors"
	"jobpilot/internal/types"

	"gopkg.in/yaml.v3"
)

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			// Log the error but don't override the main operation result
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	if err := ensureDir(filepath.Dir(filename)); err != nil {
		return err
	}

	err := os.WriteFile(filename, content, 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := ensureDir(filepath.Dir(filename)); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}
	return nil
}

// LoadJobFile reads a job descriptor from a JSON or YAML file
func (fp *FileProcessor) LoadJobFile(filename string) (types.JobDescriptor, error) {
	content, err := fp.ReadFile(filename)
	if err != nil {
		return types.JobDescriptor{}, err
	}

	var job types.JobDescriptor
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &job)
	default:
		dec := json.NewDecoder(bytes.NewReader(content))
		dec.DisallowUnknownFields()
		err = dec.Decode(&job)
	}
	if err != nil {
		return types.JobDescriptor{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Cannot parse job file: %s", filename), err)
	}

	if strings.TrimSpace(job.ID) == "" || strings.TrimSpace(job.Title) == "" {
		return types.JobDescriptor{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Job file %s must set id and title", filename), nil)
	}
	return job, nil
}

// LoadProfileFile reads a profile from a JSON or YAML file
func (fp *FileProcessor) LoadProfileFile(filename string) (types.Profile, error) {
	content, err := fp.ReadFile(filename)
	if err != nil {
		return types.Profile{}, err
	}

	var p types.Profile
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &p)
	default:
		err = json.Unmarshal(content, &p)
	}
	if err != nil {
		return types.Profile{}, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Cannot parse profile file: %s", filename), err)
	}
	return p, nil
}

func ensureDir(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory: %s", dir), err)
	}
	return nil
}
