package handler

import (
	"errors"
	"net/http"

	"backend/internal/ocr"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps the service error taxonomy onto HTTP status codes so
// every handler reports failures the same way.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrBalanceViolation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrLookupFailed),
		errors.Is(err, ocr.ErrExtractionFailed),
		errors.Is(err, ocr.ErrInvalidPayload):
		status = http.StatusBadGateway
	case errors.Is(err, ocr.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, response.Error(status, err.Error()))
}
