package service

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/postscript-blog/postscript/util/common"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// messages maps "Struct.Field/tag" to the text shown to the user. String min/max count runes.
var messages = map[string]string{
	"signupInput.Username/username": "Username must be 3-20 characters long and contain only letters, numbers and underscores.",
	"signupInput.Email/required":    "Please enter a valid email address.",
	"signupInput.Email/email":       "Please enter a valid email address.",
	"signupInput.Password/min":      "Password must be at least 6 characters long.",
	"signupInput.Password/max":      "Password must be at most 72 characters long.",
	"passwordInput.Password/min":    "Password must be at least 6 characters long.",
	"passwordInput.Password/max":    "Password must be at most 72 characters long.",
	"postInput.Title/min":           "Title must be between 3 and 100 characters.",
	"postInput.Title/max":           "Title must be between 3 and 100 characters.",
	"postInput.Content/min":         "Content must be at least 10 characters long.",
	"profileInput.Bio/max":          "Bio must be under 200 characters.",
	"commentInput.Content/min":      "Comment cannot be empty.",
	"commentInput.Content/max":      "Comment must be at most 1000 characters.",
}

// check validates v and turns every failing rule into one ValidationError.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.Server(err, "validate input")
	}
	details := make([]string, 0, len(verrs))
	seen := make(map[string]bool)
	for _, fe := range verrs {
		msg, ok := messages[fe.StructNamespace()+"/"+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid.", fe.Field())
		}
		if !seen[msg] {
			seen[msg] = true
			details = append(details, msg)
		}
	}
	return common.Validations(details)
}

type signupInput struct {
	Username string `validate:"username"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=6,max=72"`
}

type passwordInput struct {
	Password string `validate:"min=6,max=72"`
}

type postInput struct {
	Title   string `validate:"min=3,max=100"`
	Content string `validate:"min=10"`
}

type profileInput struct {
	Bio string `validate:"max=200"`
}

type commentInput struct {
	Content string `validate:"min=1,max=1000"`
}
