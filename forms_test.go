package pagelet_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karloscodes/pagelet"
	"github.com/karloscodes/pagelet/testsupport"
)

type signupForm struct {
	Name     string `fillable:"true" validate:"required,min=2,max=10" label:"Name"`
	Email    string `fillable:"true" form:"email_address" validate:"required" label:"Email"`
	Age      int    `fillable:"true" validate:"min=18"`
	Admin    bool   `fillable:"true"`
	Internal string
}

func TestFillModel(t *testing.T) {
	log := testsupport.NewTestLogger()

	t.Run("fills only fillable fields", func(t *testing.T) {
		fields := url.Values{
			"name":          {"alice"},
			"email_address": {"alice@example.com"},
			"age":           {"30"},
			"admin":         {"on"},
			"internal":      {"nope"},
		}

		var form signupForm
		require.NoError(t, pagelet.FillModel(fields, &form, log))

		assert.Equal(t, "alice", form.Name)
		assert.Equal(t, "alice@example.com", form.Email)
		assert.Equal(t, 30, form.Age)
		assert.True(t, form.Admin)
		assert.Empty(t, form.Internal)
	})

	t.Run("missing fields leave the model untouched", func(t *testing.T) {
		form := signupForm{Name: "keep"}
		require.NoError(t, pagelet.FillModel(url.Values{}, &form, log))
		assert.Equal(t, "keep", form.Name)
	})

	t.Run("rejects non-pointer models", func(t *testing.T) {
		assert.Error(t, pagelet.FillModel(url.Values{}, signupForm{}, log))
	})
}

func TestValidateForm(t *testing.T) {
	t.Run("valid form has no errors", func(t *testing.T) {
		errs := pagelet.ValidateForm(&signupForm{Name: "alice", Email: "a@b.c", Age: 30})
		assert.False(t, errs.HasErrors())
	})

	t.Run("reports required and range violations", func(t *testing.T) {
		errs := pagelet.ValidateForm(&signupForm{Name: "a", Age: 12})

		require.True(t, errs.HasErrors())
		assert.Equal(t, "Name must be at least 2 characters", errs.GetFirst("name"))
		assert.Equal(t, "Email is required", errs.GetFirst("email_address"))
		assert.Contains(t, errs.GetFirst("age"), "at least 18")
	})

	t.Run("max length is enforced", func(t *testing.T) {
		errs := pagelet.ValidateForm(&signupForm{Name: "waytoolongname", Email: "a@b.c", Age: 30})
		assert.Equal(t, "Name must be at most 10 characters", errs.GetFirst("name"))
	})

	t.Run("error string joins field messages", func(t *testing.T) {
		errs := make(pagelet.ValidationErrors)
		errs.Add("name", "is required")
		assert.Equal(t, "name: is required", errs.Error())
		assert.Equal(t, "", errs.GetFirst("other"))
	})
}
