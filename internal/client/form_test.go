package client

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() FormData {
	return FormData{Code: "x", Description: "d", Language: "python", Tags: []string{"a"}}
}

func TestFormData_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *FormData)
		field   string
		message string
	}{
		{name: "valid", mutate: func(*FormData) {}},
		{name: "no tags is fine", mutate: func(f *FormData) { f.Tags = nil }},
		{name: "200 character description", mutate: func(f *FormData) { f.Description = strings.Repeat("é", 200) }},
		{
			name:    "empty code",
			mutate:  func(f *FormData) { f.Code = "" },
			field:   "code",
			message: "Code cannot be empty",
		},
		{
			name:    "empty description",
			mutate:  func(f *FormData) { f.Description = "" },
			field:   "description",
			message: "Description cannot be empty",
		},
		{
			name:    "long description",
			mutate:  func(f *FormData) { f.Description = strings.Repeat("a", 201) },
			field:   "description",
			message: "Description must be 200 characters or less",
		},
		{
			name:    "empty language",
			mutate:  func(f *FormData) { f.Language = "" },
			field:   "language",
			message: "Language is required",
		},
		{
			name:    "unknown language",
			mutate:  func(f *FormData) { f.Language = "cobol" },
			field:   "language",
			message: `Unknown language "cobol"`,
		},
		{
			name:    "too many tags",
			mutate:  func(f *FormData) { f.Tags = strings.Split("1,2,3,4,5,6,7,8,9,10,11", ",") },
			field:   "tags",
			message: "Maximum of 10 tags allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)

			err := f.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var formErr *FormError
			require.ErrorAs(t, err, &formErr)
			require.Len(t, formErr.Fields, 1)
			assert.Equal(t, tt.field, formErr.Fields[0].Field)
			assert.Equal(t, tt.message, formErr.Fields[0].Message)
		})
	}
}

func TestFormData_ValidateReportsEveryField(t *testing.T) {
	err := FormData{}.Validate()

	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	assert.Len(t, formErr.Fields, 3)
	assert.Equal(t, "Code cannot be empty; Description cannot be empty; Language is required", err.Error())
}

func TestTagEditing(t *testing.T) {
	tags := AddTag(nil, "  react ")
	tags = AddTag(tags, "react")
	tags = AddTag(tags, "   ")
	tags = AddTag(tags, "hooks")
	assert.Equal(t, []string{"react", "hooks"}, tags)

	assert.Equal(t, []string{"hooks"}, RemoveTag(tags, "react"))
	assert.Equal(t, []string{"a", "b"}, ParseTags(" a, b ,a,,"))
	assert.Equal(t, []string{}, ParseTags(""))
}

func TestNewFormValidator(t *testing.T) {
	var v *validator.Validate
	require.NotPanics(t, func() { v = newFormValidator() })

	assert.NoError(t, v.Var("python", "language"))
	assert.Error(t, v.Var("cobol", "language"))
}
