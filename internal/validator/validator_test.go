package validator

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
)

func TestValidator_KeepsFirstMessagePerField(t *testing.T) {
	v := New()
	v.AddError("email", "first")
	v.AddError("email", "second")

	assert.False(t, v.IsValid())
	assert.Equal(t, "first", v.Errors["email"])
}

func TestValidator_Check(t *testing.T) {
	v := New()
	v.Check(true, "title", "must be provided")
	assert.True(t, v.IsValid())

	v.Check(false, "title", "must be provided")
	assert.Equal(t, map[string]string{"title": "must be provided"}, v.Errors)
}

func TestValidator_CheckNotBlank(t *testing.T) {
	v := New()
	v.CheckNotBlank("   ", "body", "must be provided")
	v.CheckNotBlank("text", "title", "must be provided")

	assert.Equal(t, map[string]string{"body": "must be provided"}, v.Errors)
}

func TestValidator_CheckEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "valid", email: "u1@x.com", valid: true},
		{name: "missing at", email: "u1.x.com", valid: false},
		{name: "blank", email: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.CheckEmail(tt.email, "email")
			assert.Equal(t, tt.valid, v.IsValid(), v.Errors)
		})
	}
}

func TestValidator_CheckRules(t *testing.T) {
	v := New()
	v.CheckRules("this username is far too long for the field", "username", validation.Length(1, 10))

	assert.Contains(t, v.Errors, "username")
}
