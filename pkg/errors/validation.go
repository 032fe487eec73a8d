package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name before it is used to build
// upstream URLs or on-disk paths.
//
// The rules are conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, backslash)
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "//", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// componentNameRegex matches an unscoped npm package name, which is what the
// upstream repository uses as a directory name.
var componentNameRegex = regexp.MustCompile(`^[a-z0-9-~][a-z0-9-._~]*$`)

// ValidateComponentName validates an unprefixed component name such as "vf-box".
func ValidateComponentName(name string) error {
	if err := ValidatePackageName(name); err != nil {
		return err
	}
	if !componentNameRegex.MatchString(name) {
		return New(ErrCodeInvalidPackage, "invalid component name: %q", name)
	}
	return nil
}

// ValidateRef validates an upstream release tag or branch name.
func ValidateRef(ref string) error {
	if ref == "" {
		return New(ErrCodeInvalidInput, "release tag cannot be empty")
	}
	for _, r := range ref {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "release tag contains invalid characters")
		}
	}
	if strings.Contains(ref, "..") || strings.HasPrefix(ref, "/") {
		return New(ErrCodeInvalidInput, "release tag cannot contain path traversal sequences")
	}
	return nil
}
