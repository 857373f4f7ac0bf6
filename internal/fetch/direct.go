package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"dramasync/internal/errcat"
)

// DirectStrategy streams a raw GET of the URL itself. The last-resort tier;
// only useful when the locator is already a direct media URL, but cheap to
// try once everything else has failed.
type DirectStrategy struct {
	Client *http.Client
}

func (s *DirectStrategy) Name() string { return "direct" }

func (s *DirectStrategy) Fetch(ctx context.Context, videoURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return errcat.Wrap(errcat.CategoryInvalidURL, err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return errcat.Wrap(errcat.CategoryNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnavailableForLegalReasons:
		return errcat.Wrap(errcat.CategoryRestricted, fmt.Errorf("direct download status %d", resp.StatusCode))
	default:
		return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("direct download status %d", resp.StatusCode))
	}

	file, err := os.Create(dest)
	if err != nil {
		return errcat.Wrap(errcat.CategoryFilesystem, fmt.Errorf("opening output file: %w", err))
	}
	defer file.Close()

	if _, err := copyWithContext(ctx, file, resp.Body); err != nil {
		return errcat.Wrap(errcat.CategoryNetwork, fmt.Errorf("streaming response: %w", err))
	}
	return nil
}
