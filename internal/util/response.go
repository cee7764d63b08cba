// Package util holds the JSON envelope shared by every API handler.
package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the wire shape of every API reply. Code is 0 on success and -1
// on failure; aggregates, profiles and tokens all travel under Data.
type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// Success writes a 200 reply wrapping data in the envelope.
func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{Data: data, Message: message})
}

// Error writes a failure reply with the given HTTP status. err may be an
// error or a plain string; the message is also logged so upstream and
// repository failures surface in the server log.
func Error(c *gin.Context, status int, err interface{}) {
	var msg string
	switch e := err.(type) {
	case error:
		msg = e.Error()
	case string:
		msg = e
	default:
		msg = "internal server error"
	}

	zap.S().Errorf("api error (%d): %s", status, msg)

	c.JSON(status, Response{Code: -1, Message: msg})
}
