package response

import (
	"errors"
	"net/http"
	"time"

	"company-wallet/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuccessResponse is the standard success envelope.
type SuccessResponse struct {
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id"`
	Timestamp string      `json:"timestamp"`
}

// ErrorResponse is the standard error envelope. ErrorCode is one of the
// stable apperror codes (PAY_xxx, OTP_xxx, ALW_xxx, CAT_xxx, ...).
type ErrorResponse struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// OK sends a 200 response with data.
func OK(c *gin.Context, data interface{}) {
	success(c, http.StatusOK, data)
}

// Created sends a 201 response with data.
func Created(c *gin.Context, data interface{}) {
	success(c, http.StatusCreated, data)
}

// Error maps err onto the error envelope. An *apperror.AppError anywhere in
// the chain decides the status and code; anything else is a 500 whose cause
// is kept off the wire.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		appErr = apperror.New("SYS_000", "Internal server error", http.StatusInternalServerError)
	}
	if err != nil {
		_ = c.Error(err)
	}
	c.JSON(appErr.HTTPStatus, ErrorResponse{
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
		RequestID: requestID(c),
		Timestamp: timestamp(),
	})
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Data:      data,
		RequestID: requestID(c),
		Timestamp: timestamp(),
	})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// requestID returns the id set by the RequestID middleware, or a fresh one.
func requestID(c *gin.Context) string {
	if s := c.GetString("request_id"); s != "" {
		return s
	}
	return uuid.New().String()
}
