package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateTransformID validates a transform identifier for safety and
// correctness. Transform ids become URL path segments and store keys, so
// the rules are intentionally conservative:
//   - No empty ids
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidateTransformID(id string) error {
	return validateID("transform id", id)
}

// ValidateTileID validates a tile identifier. Tile ids share the transform
// id rules.
func ValidateTileID(id string) error {
	return validateID("tile id", id)
}

func validateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "%s cannot be empty", kind)
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidID, "%s too long (max 256 characters)", kind)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "%s contains invalid control characters", kind)
		}
	}

	// Check for path traversal patterns
	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
		"/",    // Path separator
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidID, "%s contains invalid characters: %q", kind, pattern)
		}
	}

	return nil
}

// stackNameRegex matches valid render owner, project and stack names.
var stackNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateStackName validates an owner, project or stack name used to
// address a render stack. These names appear as URL path segments.
func ValidateStackName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidStack, "stack name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidStack, "stack name too long (max 256 characters)")
	}

	if !stackNameRegex.MatchString(name) {
		return New(ErrCodeInvalidStack, "invalid stack name: %q", name)
	}

	return nil
}

// classNameRegex matches dotted Java-style class names as used by the
// mpicbg transform vocabulary.
var classNameRegex = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*(\.[A-Za-z_$][A-Za-z0-9_$]*)*$`)

// ValidateClassName validates a leaf transform class name. Unknown class
// names are accepted by the codec, but they still have to look like class
// names to be stored or served.
func ValidateClassName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "class name cannot be empty")
	}

	if len(name) > 512 {
		return New(ErrCodeInvalidInput, "class name too long (max 512 characters)")
	}

	if !classNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid class name: %q", name)
	}

	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
