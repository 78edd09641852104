// Package validation registers warbler's custom binding rules on gin's validator.
package validation

import (
	"errors"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

	once    sync.Once
	initErr error
)

// Register 注册 username 规则，可重复调用
func Register() error {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		initErr = v.RegisterValidation("username", validUsername)
	})
	return initErr
}

func validUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}

// Message 把校验错误转成一句给用户看的话
func Message(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid input."
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required."
	case "email":
		return "Invalid email address."
	case "username":
		return "Username may only contain letters, digits, '.', '_' and '-'."
	case "min":
		return field + " must be at least " + fe.Param() + " characters."
	case "max":
		return field + " must be at most " + fe.Param() + " characters."
	case "url":
		return field + " must be a URL."
	default:
		return field + " is invalid."
	}
}
