package middleware

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs domain validators on gin's binding engine and
// makes validation errors report json field names instead of Go ones.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("national_number", validNationalNumber); err != nil {
		panic(err)
	}
}

// national numbers are exactly 11 digits
func validNationalNumber(fl validator.FieldLevel) bool {
	n := fl.Field().String()
	if len(n) != 11 {
		return false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
