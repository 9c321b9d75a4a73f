package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateDocumentPath validates the path of a document before it is read
// or written.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Must name a .json file
func ValidateDocumentPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "document path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return New(ErrCodeInvalidPath, "document must be a .json file: %q", path)
	}

	return nil
}

// ValidateName validates an element name entered by the user.
// Empty names are allowed; control characters other than newline are not.
func ValidateName(name string) error {
	if len(name) > 1024 {
		return New(ErrCodeInvalidInput, "name too long (max 1024 characters)")
	}
	for _, r := range name {
		if r != '\n' && unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "name contains invalid control characters")
		}
	}
	return nil
}

// ValidateListenAddr validates a host:port listen address.
func ValidateListenAddr(addr string) error {
	if addr == "" {
		return New(ErrCodeInvalidInput, "listen address cannot be empty")
	}
	if !strings.Contains(addr, ":") {
		return New(ErrCodeInvalidInput, "listen address must be host:port, got %q", addr)
	}
	return nil
}
