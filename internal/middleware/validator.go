package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

// AnalyzableContentTypes are the media kinds the extraction adapter accepts.
var AnalyzableContentTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"application/pdf",
}

// ValidateContentType checks the media kind against the analyzable set
func ValidateContentType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, allowed := range AnalyzableContentTypes {
		if ct == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported content type: %s (allowed: %s)",
		contentType, strings.Join(AnalyzableContentTypes, ", "))
}

// ValidateFilename rejects empty, oversized or path-escaping filenames
func ValidateFilename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if len(name) > 255 {
		return fmt.Errorf("filename too long (max 255 chars)")
	}
	if strings.ContainsAny(name, "/\\\x00") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid characters in filename")
	}
	return nil
}

// ValidateStorageRef checks the blob reference issued by GenerateUploadTarget
func ValidateStorageRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("storage_ref cannot be empty")
	}
	pattern := `^uploads/[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, ref)
	if !matched {
		return fmt.Errorf("invalid storage_ref format")
	}
	return nil
}

// ValidateID checks a document/analysis identifier
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid id format")
	}
	return nil
}

// ValidateSizeBytes bounds the client-reported upload size
func ValidateSizeBytes(size, max int64) error {
	if size <= 0 {
		return fmt.Errorf("size_bytes must be positive")
	}
	if size > max {
		return fmt.Errorf("size_bytes exceeds maximum of %d", max)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
