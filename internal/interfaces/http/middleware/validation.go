package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// skuCodePattern matches codes like TEE-NVY-M or CAP_BLK_OS
var skuCodePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{1,63}$`)

// SetupValidator installs RegisterValidations on gin's binding validator
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	return RegisterValidations(v)
}

// RegisterValidations reports fields by their json (or form) name and adds
// the sku_code tag. iso4217 and iso3166_1_alpha2 are validator built-ins.
func RegisterValidations(v *validator.Validate) error {
	v.RegisterTagNameFunc(fieldName)
	return v.RegisterValidation("sku_code", func(fl validator.FieldLevel) bool {
		return skuCodePattern.MatchString(fl.Field().String())
	})
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form", "uri"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return ""
}

// HandleValidationError aborts with a 400 that lists every rejected field.
// Errors that are not validator errors, such as malformed JSON, produce an
// empty detail list.
func HandleValidationError(c *gin.Context, err error) {
	var details []dto.ValidationDetail
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details = make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{
				Field:   fe.Field(),
				Message: fieldMessage(fe),
				Code:    fe.Tag(),
			})
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.Invalid(c.GetString("request_id"), details))
}

var fixedMessages = map[string]string{
	"required":         "This field is required",
	"uuid":             "Invalid UUID format",
	"iso4217":          "Must be an ISO 4217 currency code",
	"iso3166_1_alpha2": "Must be an ISO 3166-1 alpha-2 country code",
	"sku_code":         "Must be 2-64 upper-case letters, digits, '-' or '_'",
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fixedMessages[fe.Tag()]; ok {
		return msg
	}
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "min", "gte":
		return "Must be at least " + fe.Param() + unit
	case "max", "lte":
		return "Must be at most " + fe.Param() + unit
	case "oneof":
		return "Must be one of: " + fe.Param()
	default:
		return "Invalid value"
	}
}
