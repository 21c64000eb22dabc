package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func RecoveryWithLog() gin.HandlerFunc {
	return RecoveryWithLogger(logrus.StandardLogger())
}

// RecoveryWithLogger turns a panic into a 500 and logs it with the stack.
func RecoveryWithLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				LoggerFrom(c, log).WithFields(logrus.Fields{
					"panic":  r,
					"method": c.Request.Method,
					"path":   c.Request.URL.Path,
					"stack":  string(debug.Stack()),
				}).Error("panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
