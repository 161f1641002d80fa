package gcal

import (
	"errors"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/okian/calmate/internal/domain/apperr"
)

// Sentinel errors for gateway wiring.
var (
	ErrNoStore     = errors.New("credential store is required")
	ErrNoRefresher = errors.New("token refresher is required")
)

// statusOf returns the HTTP status carried by a provider error, or 0.
func statusOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// classify maps an upstream failure onto the error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch statusOf(err) {
	case http.StatusUnauthorized:
		return apperr.Wrap(op, apperr.ErrUnauthorized, err)
	case http.StatusNotFound:
		return apperr.Wrap(op, apperr.ErrNotFound, err)
	case http.StatusBadRequest:
		return apperr.Wrap(op, apperr.ErrInvalidArguments, err)
	default:
		return apperr.Wrap(op, apperr.ErrUpstreamUnavailable, err)
	}
}

// outcome labels a call for metrics.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.Code(err)
}
