package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-registry/pkg/errors"
)

type form struct {
	Name   string `json:"name" binding:"required,max=5"`
	Email  string `json:"email" binding:"omitempty,email"`
	Born   string `json:"born" binding:"omitempty,datetime=2006-01-02"`
	Gender string `json:"gender" binding:"omitempty,oneof=male female"`
}

func TestValidate(t *testing.T) {
	v := New()

	tests := []struct {
		name   string
		input  form
		fields []string
	}{
		{name: "valid", input: form{Name: "Ada"}},
		{name: "optional fields set", input: form{Name: "Ada", Email: "ada@example.com", Born: "1815-12-10", Gender: "female"}},
		{name: "missing name", input: form{}, fields: []string{"name is required"}},
		{name: "too long", input: form{Name: "Lovelace"}, fields: []string{"name must be at most 5 characters"}},
		{name: "bad email", input: form{Name: "Ada", Email: "nope"}, fields: []string{"email must be a valid email"}},
		{name: "bad date", input: form{Name: "Ada", Born: "10/12/1815"}, fields: []string{"born must be a date formatted as 2006-01-02"}},
		{name: "bad gender", input: form{Name: "Ada", Gender: "x"}, fields: []string{"gender must be one of: male, female"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.input)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			appErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrBadRequest, appErr.Code)
			assert.Equal(t, tt.fields, appErr.Fields)
		})
	}
}

func TestValidateField(t *testing.T) {
	v := New()
	assert.NoError(t, v.ValidateField("email", "ada@example.com", "email"))

	err := v.ValidateField("email", "nope", "required", "email")
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"email must be a valid email"}, appErr.Fields)
}
