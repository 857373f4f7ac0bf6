// Package errcat classifies failures so the process can exit with a
// meaningful code and logs can be grouped by cause.
package errcat

import "errors"

type Category string

const (
	CategoryInvalidURL  Category = "invalid_url"
	CategoryNetwork     Category = "network"
	CategoryRestricted  Category = "restricted"
	CategoryUnsupported Category = "unsupported"
	CategoryFilesystem  Category = "filesystem"
	CategoryConfig      Category = "config"
)

// CategorizedError attaches a Category to an underlying error.
type CategorizedError struct {
	Category Category
	Err      error
}

func (e CategorizedError) Error() string {
	if e.Err == nil {
		return string(e.Category)
	}
	return e.Err.Error()
}

func (e CategorizedError) Unwrap() error { return e.Err }

// Wrap attaches a category to err. A nil err stays nil.
func Wrap(category Category, err error) error {
	if err == nil {
		return nil
	}
	return CategorizedError{Category: category, Err: err}
}

// Of returns err's category, or empty when err carries none.
func Of(err error) Category {
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}

// ExitCode maps an error to a process exit code. Uncategorized errors
// exit 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Of(err) {
	case CategoryInvalidURL:
		return 2
	case CategoryConfig:
		return 3
	case CategoryNetwork:
		return 4
	case CategoryRestricted:
		return 5
	case CategoryUnsupported:
		return 6
	case CategoryFilesystem:
		return 7
	}
	return 1
}
