package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Every response carries a result discriminator: "success" or "fail".

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func respondFail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"result": "fail", "msg": msg})
}

func respondInternal(c *gin.Context) {
	respondFail(c, http.StatusInternalServerError, "Server Error")
}

// respondBindingError maps a validator failure to a field+message list
// and anything else (malformed JSON, type mismatch) to a plain fail.
func respondBindingError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fieldErrors := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fieldErrors = append(fieldErrors, FieldError{
				Field:   strings.ToLower(fe.Field()),
				Message: validationMessage(fe),
			})
		}
		c.JSON(http.StatusBadRequest, gin.H{"result": "fail", "errors": fieldErrors})
		return
	}

	respondFail(c, http.StatusBadRequest, "Invalid request body")
}

func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Please include a valid email"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	}
	return field + " is invalid"
}
