package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/visualtk/vnintegration/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/ztrue/tracerr"
)

// AuthError reports a missing session in a login response or repeated
// authorization failures.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "authentication failed: " + e.Err.Error() }

// Unwrap ...
func (e *AuthError) Unwrap() error { return e.Err }

// FetchError reports a failed request to the remote service. StatusCode is zero
// when no response was received.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed (status %d): %s", e.StatusCode, e.Err.Error())
	}
	return "fetch failed: " + e.Err.Error()
}

// Unwrap ...
func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a response that could not be decoded.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse failed: " + e.Err.Error() }

// Unwrap ...
func (e *ParseError) Unwrap() error { return e.Err }

// IsAuthError reports whether `err` wraps an AuthError.
func IsAuthError(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsFetchError reports whether `err` wraps a FetchError.
func IsFetchError(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

// IsParseError reports whether `err` wraps a ParseError.
func IsParseError(err error) bool {
	var target *ParseError
	return errors.As(err, &target)
}

// APIError defines a API error.
type APIError struct {
	Code   int    `json:"code"`
	Err    error  `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// NewAPIError returns a new API error. Errors with a code of 500 and above carry a stack trace.
func NewAPIError(code int, err error, detail string) *APIError {
	apiError := &APIError{
		Code:   code,
		Err:    err,
		Detail: detail,
	}
	if code >= 500 {
		apiError.Err = tracerr.Wrap(err)
	}
	return apiError
}

func (e *APIError) Error() string {
	return e.Err.Error()
}

// BindHTTPRequest binds an API error to a HTTP Request's context.
func (e *APIError) BindHTTPRequest(r *http.Request) {
	ctx := context.WithValue(r.Context(), ContextError, e)
	*r = *r.Clone(ctx)
}

// MarshalJSON ...
func (e *APIError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code   int    `json:"code"`
		Error  string `json:"error"`
		Detail string `json:"detail,omitempty"`
	}{
		Code:   e.Code,
		Error:  e.Err.Error(),
		Detail: e.Detail,
	})
}

// ErrorHandler is middleware to log and process HTTP errors.
func ErrorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		err := r.Context().Value(ContextError)
		if err == nil {
			return
		}
		switch err := err.(type) {
		case *APIError:
			log.WithField("error", err).WithField("detail", err.Detail).Error(err)
			util.JSONResponse(w, err, err.Code)
			if err, ok := err.Err.(tracerr.Error); ok {
				frames := err.StackTrace()
				if len(frames) > 4 {
					frames = frames[1:4]
				}
				for _, v := range frames {
					log.Debug(v.String())
				}
			}
		case error:
			log.WithField("error", err).Error(err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
