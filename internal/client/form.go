package client

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// MaxDescription and MaxTags bound what the snippet form accepts.
const (
	MaxDescription = 200
	MaxTags        = 10
)

// FormData is what a user fills in to create or edit a snippet. Code is raw
// text here; the Library encodes it for the wire.
type FormData struct {
	Code        string   `json:"code"        validate:"required"`
	Description string   `json:"description" validate:"required,max=200"`
	Language    string   `json:"language"    validate:"required,language"`
	Tags        []string `json:"tags"        validate:"max=10"`
}

// FieldError is one form problem, addressed to the field by its JSON name.
type FieldError struct {
	Field   string
	Message string
}

// FormError collects every failing field.
type FormError struct {
	Fields []FieldError
}

func (e *FormError) Error() string {
	return strings.Join(lo.Map(e.Fields, func(f FieldError, _ int) string {
		return f.Message
	}), "; ")
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	// "language" accepts only the values of Languages.
	err := v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		_, ok := LookupLanguage(fl.Field().String())
		return ok
	})
	if err != nil {
		panic(fmt.Sprintf("client: registering language validation: %v", err))
	}
	return v
}

// Validate checks the form. It returns a *FormError listing every bad field.
func (f FormData) Validate() error {
	err := formValidator.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	return &FormError{Fields: lo.Map([]validator.FieldError(verrs), func(fe validator.FieldError, _ int) FieldError {
		return FieldError{Field: fe.Field(), Message: formMessage(fe)}
	})}
}

func formMessage(fe validator.FieldError) string {
	switch fe.Field() + "/" + fe.Tag() {
	case "code/required":
		return "Code cannot be empty"
	case "description/required":
		return "Description cannot be empty"
	case "description/max":
		return fmt.Sprintf("Description must be %d characters or less", MaxDescription)
	case "language/required":
		return "Language is required"
	case "language/language":
		return fmt.Sprintf("Unknown language %q", fe.Value())
	case "tags/max":
		return fmt.Sprintf("Maximum of %d tags allowed", MaxTags)
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// AddTag appends tag after trimming it. Blank and already-present tags are
// ignored, so the result never holds duplicates introduced here.
func AddTag(tags []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	if tag == "" || lo.Contains(tags, tag) {
		return tags
	}
	return append(tags, tag)
}

// RemoveTag drops every occurrence of tag.
func RemoveTag(tags []string, tag string) []string {
	return lo.Without(tags, tag)
}

// ParseTags splits comma-separated input and adds each piece with AddTag.
func ParseTags(input string) []string {
	tags := []string{}
	for _, part := range strings.Split(input, ",") {
		tags = AddTag(tags, part)
	}
	return tags
}
