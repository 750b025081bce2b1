package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"medibill/internal/ledger"
)

var registerOnce sync.Once

// RegisterValidators installs the billing binding tags on gin's validator:
// last4 for card identifiers and utr for UPI/NEFT reference tokens. Field
// names in validation errors follow the json tags.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		if err = v.RegisterValidation("last4", func(fl validator.FieldLevel) bool {
			return ledger.ValidLast4(fl.Field().String())
		}); err != nil {
			return
		}
		err = v.RegisterValidation("utr", func(fl validator.FieldLevel) bool {
			return ledger.ValidUTR(fl.Field().String())
		})
	})
	return err
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// bindJSON binds the request body and writes a VALIDATION_ERROR naming the
// first offending field when binding fails.
func bindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		RespondValidationError(c, fieldPath(fe.Namespace()), describeRule(fe))
		return false
	}
	RespondValidationError(c, "body", "request body is not valid JSON: "+err.Error())
	return false
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "must be a valid email address"
	case "last4":
		return "must be the last 4 digits of the card"
	case "utr":
		return "must be a UTR/reference token of 6-35 letters or digits"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
