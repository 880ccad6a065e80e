package issuance

import (
	"errors"
	"net/http"
)

// Expected, user-facing failures. These are terminal for the request: the
// system never retries them, the recipient must obtain a fresh code
// out-of-band.
var (
	ErrValidation     = errors.New("malformed request")
	ErrNotFound       = errors.New("access code not found")
	ErrSecretMismatch = errors.New("the code you entered is incorrect")
	ErrDeactivated    = errors.New("this access code has been deactivated")
	ErrExpired        = errors.New("this access code has expired")
	ErrExhausted      = errors.New("this access code has reached its usage limit")
)

// Operator-facing failures. Shown generically to the user, logged in full.
// Not auto-retried: a naive retry after a successful increment risks double
// issuance without an idempotency key.
var (
	ErrCodeGenerationExhausted = errors.New("failed to generate a unique value after maximum attempts")
	ErrRenderFailure           = errors.New("failed to render certificate")
	ErrPersistenceFailure      = errors.New("failed to persist certificate")
)

// UserFacing reports whether the error carries a message safe to show the
// recipient verbatim.
func UserFacing(err error) bool {
	for _, e := range []error{ErrValidation, ErrNotFound, ErrSecretMismatch, ErrDeactivated, ErrExpired, ErrExhausted} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// HTTPStatus maps an issuance error to the response status code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSecretMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, ErrDeactivated), errors.Is(err, ErrExpired):
		return http.StatusGone
	case errors.Is(err, ErrExhausted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the message shown to the recipient. Internal failures
// collapse to a generic message; details stay in the logs.
func UserMessage(err error) string {
	if UserFacing(err) {
		return err.Error()
	}
	return "Something went wrong while issuing your certificate, please try again later"
}
