package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-registry/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Fields  []string    `json:"fields,omitempty"`
	Data    interface{} `json:"data"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondWithMessage sends a success response that carries only a message.
func RespondWithMessage(c *gin.Context, status int, message string) {
	c.JSON(status, &Response{Status: "success", Message: message})
}

// RespondWithError sends an error response. Application errors keep their
// status and message; anything else is reported as an internal error.
func RespondWithError(c *gin.Context, err error) {
	status, resp := ErrorResponse(err)
	c.AbortWithStatusJSON(status, resp)
}

// ErrorResponse builds the status and body RespondWithError would send.
func ErrorResponse(err error) (int, *Response) {
	appErr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError, NewErrorResponse("internal server error")
	}
	resp := NewErrorResponse(appErr.Message)
	resp.Fields = appErr.Fields
	return appErr.StatusCode(), resp
}
