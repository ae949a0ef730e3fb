package utils

import "github.com/gin-gonic/gin"

func JSONSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, gin.H{"success": true, "data": data})
}

// JSONError writes the structured error body used by every controller.
func JSONError(c *gin.Context, code int, errCode, message string, details ...string) {
	body := gin.H{
		"code":    errCode,
		"message": message,
	}
	if len(details) > 0 && details[0] != "" {
		body["details"] = details[0]
	}
	c.JSON(code, gin.H{"success": false, "error": body})
}
