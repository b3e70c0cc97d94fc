package sheets

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/moneytalks-bot/moneytalks/internal/common"
	"google.golang.org/api/googleapi"
)

// mapAPIError translates Sheets API failures into the application's error
// taxonomy: auth problems are permanent and surfaced as setup issues,
// rate limits and server errors are retryable, everything network-shaped
// is worth another attempt.
func mapAPIError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %v", common.ErrPermissionDenied, err),
				Retryable: false,
			}
		case apiErr.Code == http.StatusNotFound:
			return &common.RetryableError{
				Err:       fmt.Errorf("spreadsheet %w: %v", common.ErrNotFound, err),
				Retryable: false,
			}
		case apiErr.Code == http.StatusTooManyRequests:
			return &common.RetryableError{
				Err:       fmt.Errorf("%w: %v", common.ErrRateLimit, err),
				Retryable: true,
			}
		case apiErr.Code >= 500:
			return &common.RetryableError{Err: err, Retryable: true}
		}
		return err
	}

	// Timeouts and connection resets reach here without a structured code.
	return &common.RetryableError{Err: err, Retryable: true}
}
