package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{err: NotFound(ReasonDonationNotFound, "donation not found"), want: http.StatusNotFound},
		{err: Forbidden(ReasonOwnDonation, "cannot request own donation"), want: http.StatusForbidden},
		{err: Conflict(ReasonDuplicatePending, "duplicate pending request"), want: http.StatusConflict},
		{err: Validation(ReasonInvalidQuantity, "bad quantity"), want: http.StatusBadRequest},
		{err: Degraded(ReasonGeocodingUnavailable, "geocoder down", errors.New("timeout")), want: http.StatusServiceUnavailable},
		{err: New(Code("SOMETHING_ELSE"), "X", "x"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestWrappedErrorsAreDetected(t *testing.T) {
	base := Conflict(ReasonDonationUnavailable, "donation is reserved")
	wrapped := fmt.Errorf("create request: %w", base)

	assert.True(t, IsCode(wrapped, CodeConflict))
	assert.False(t, IsCode(wrapped, CodeNotFound))
	assert.Equal(t, ReasonDonationUnavailable, ReasonOf(wrapped))
	assert.Equal(t, "", ReasonOf(errors.New("plain")))

	appErr, ok := As(wrapped)
	assert.True(t, ok)
	assert.Same(t, base, appErr)
}

func TestErrorMessageAndCause(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := Degraded(ReasonGeocodingUnavailable, "geocoding failed", cause).WithDetail("provider", "geoapify")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "EXTERNAL_SERVICE_DEGRADED")
	assert.Contains(t, err.Error(), "i/o timeout")
	assert.Equal(t, "geoapify", err.Details["provider"])
}
