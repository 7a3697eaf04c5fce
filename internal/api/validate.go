package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// bindJSON decodes the request body into req and checks its
// `validate:` struct tags with go-playground/validator/v10, mirroring
// pkg/config's Validate — gin's ShouldBindJSON only honors `binding:`
// tags, so the request models' `validate:` tags otherwise go
// unchecked. Writes a 400 response and returns false on either
// failure; handlers should return immediately when it does.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
