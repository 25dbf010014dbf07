// Package response writes the JSON envelope shared by every API route.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the API envelope. Code is a stable machine-readable reason, set only on failures.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Generic failure codes, used when the caller has nothing more specific.
const (
	CodeInvalidRequest = "invalid_request"
	CodeUnauthorized   = "unauthorized"
	CodeForbidden      = "forbidden"
	CodeNotFound       = "not_found"
	CodeGone           = "gone"
	CodeConflict       = "conflict"
	CodeUnavailable    = "unavailable"
	CodeInternal       = "internal"
)

var statusCodes = map[int]string{
	http.StatusBadRequest:          CodeInvalidRequest,
	http.StatusUnauthorized:        CodeUnauthorized,
	http.StatusForbidden:           CodeForbidden,
	http.StatusNotFound:            CodeNotFound,
	http.StatusGone:                CodeGone,
	http.StatusConflict:            CodeConflict,
	http.StatusServiceUnavailable:  CodeUnavailable,
	http.StatusInternalServerError: CodeInternal,
}

// OK sends 200 with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends 201 with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Fail aborts the request with status and a failure body. An empty code falls back to the
// generic code for status.
func Fail(c *gin.Context, status int, code, msg string) {
	if code == "" {
		code = statusCodes[status]
	}
	c.AbortWithStatusJSON(status, Body{Error: msg, Code: code})
}

func BadRequest(c *gin.Context, msg string) { Fail(c, http.StatusBadRequest, "", msg) }

func Unauthorized(c *gin.Context, msg string) { Fail(c, http.StatusUnauthorized, "", msg) }

func Forbidden(c *gin.Context, msg string) { Fail(c, http.StatusForbidden, "", msg) }

func NotFound(c *gin.Context, msg string) { Fail(c, http.StatusNotFound, "", msg) }

func ServiceUnavailable(c *gin.Context, msg string) {
	Fail(c, http.StatusServiceUnavailable, "", msg)
}

func Internal(c *gin.Context, msg string) { Fail(c, http.StatusInternalServerError, "", msg) }
