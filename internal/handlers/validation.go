package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/charlesng35/tronobserver/internal/tron"
	appErrors "github.com/charlesng35/tronobserver/pkg/errors"
	"github.com/charlesng35/tronobserver/pkg/response"
	appValidator "github.com/charlesng35/tronobserver/pkg/validator"
)

var (
	validatorsOnce sync.Once
	validatorsErr  error
)

func registerValidators() error {
	validatorsOnce.Do(func() {
		validatorsErr = appValidator.RegisterValidation("tron_address", func(fl validator.FieldLevel) bool {
			return tron.ValidateAddress(fl.Field().String())
		})
	})
	return validatorsErr
}

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewValidation(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case "tron_address":
				messages = append(messages, fmt.Sprintf("%s must be a valid TRON address", field))
			case "gte":
				messages = append(messages, fmt.Sprintf("%s must be greater than or equal to %s", field, failure.Param))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}

// parsePositiveIntQuery reads an optional integer query parameter that must be >= 1.
// Invalid values are answered with a validation error and ok is false.
func parsePositiveIntQuery(c *gin.Context, key string, fallback int) (int, bool) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback, true
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		response.Error(c, appErrors.NewValidation(fmt.Sprintf("%s must be an integer", prettifyFieldName(key))))
		return 0, false
	}
	if err := appValidator.ValidateVar(key, parsed, "gte=1"); err != nil {
		response.Error(c, appErrors.NewValidation(formatValidationError(err)))
		return 0, false
	}
	return parsed, true
}
