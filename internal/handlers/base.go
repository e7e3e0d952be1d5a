package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"commentservice/internal/apperr"
	"commentservice/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errMissingUser = errors.New("user query parameter is required")

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error       string `json:"error"`
	ReferenceID string `json:"referenceId"`
}

// FlexInt64 accepts a JSON number or a numeric string.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return apperr.InvalidArgument("invalid id %q", s)
		}
		*f = FlexInt64(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexInt64(n)
	return nil
}

// RenderError aborts the request with the status apperr.HTTPStatus assigns to
// err (404, 400, 410, 409, 403, otherwise 500) and a fresh reference id that
// is logged alongside the error. Messages of 5xx responses are replaced with
// a generic one.
func RenderError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	ref := uuid.NewString()

	entry := logger.For(c).WithError(err).WithField("referenceId", ref)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
		message = "internal server error"
	} else {
		entry.Info("Request rejected")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, ReferenceID: ref})
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	RenderError(c, apperr.InvalidArgument("invalid request: %v", err))
}
