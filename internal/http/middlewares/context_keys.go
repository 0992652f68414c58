package middlewares

import (
	"github.com/gin-gonic/gin"
)

const (
	CtxRequestID = "request_id"
)

// abort ends the chain with the same envelope the handlers use.
func abort(c *gin.Context, status int, key, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status": "error",
		"key":    key,
		"msg":    msg,
		"data":   gin.H{},
	})
}
