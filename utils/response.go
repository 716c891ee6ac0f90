package utils

import (
	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response. extra fields, if given, are
// merged into the body (used to attach min_required on bid rejections).
func JSONError(c *gin.Context, status int, err error, message string, extra ...map[string]any) {
	body := gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	}
	for _, fields := range extra {
		for k, v := range fields {
			body[k] = v
		}
	}
	c.JSON(status, body)
}
