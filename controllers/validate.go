package controllers

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var nimPattern = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)

func ValidNIM(s string) bool { return nimPattern.MatchString(strings.TrimSpace(s)) }

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags to gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(func(f reflect.StructField) string {
				name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
				if name == "-" {
					return ""
				}
				return name
			})
			_ = v.RegisterValidation("nim", func(fl validator.FieldLevel) bool {
				return ValidNIM(fl.Field().String())
			})
		}
	})
}

// bindError turns binding failures into one readable validation message.
func bindError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			return invalid(field + " is required")
		case "email":
			return invalid("invalid email format")
		case "nim":
			return invalid("invalid NIM format")
		}
		return invalid(fmt.Sprintf("%s is invalid", field))
	}
	return invalid("invalid request body")
}
