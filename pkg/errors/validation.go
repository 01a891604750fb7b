package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// departmentCodeRegex matches department slugs such as "montevideo" or
// "cerro-largo". Codes name output directories, so they stay lowercase ASCII.
var departmentCodeRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9_-]*[a-z0-9])?$`)

// ValidateDepartmentCode validates a department code for use as a directory
// name and artifact prefix.
//
// The validation rules are intentionally conservative:
//   - No empty codes
//   - Maximum length of 64 characters
//   - Lowercase letters, digits, '-' and '_' only
func ValidateDepartmentCode(code string) error {
	if code == "" {
		return New(ErrCodeInvalidConfig, "department code cannot be empty")
	}
	if len(code) > 64 {
		return New(ErrCodeInvalidConfig, "department code too long (max 64 characters)")
	}
	if !departmentCodeRegex.MatchString(code) {
		return New(ErrCodeInvalidConfig, "invalid department code: %q", code)
	}
	return nil
}

// ValidateArtifactName validates an artifact filename.
// It ensures the filename is a simple basename without path components.
func ValidateArtifactName(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidPath, "artifact filename cannot be empty")
	}

	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidPath, "artifact filename cannot contain path separators")
	}

	if strings.HasPrefix(filename, ".") {
		return New(ErrCodeInvalidPath, "artifact filename cannot be a hidden file")
	}

	return nil
}

// ValidatePath validates an input path taken from configuration.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
