package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	t.Run("api error carries its status through wrapping", func(t *testing.T) {
		err := fmt.Errorf("saving: %w", &APIError{Status: http.StatusConflict, Op: "RegisterEmail"})
		assert.Equal(t, http.StatusConflict, StatusOf(err))
		assert.ErrorIs(t, err, ErrDuplicateLabel)
	})

	t.Run("transport errors report 500", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("connection refused")))
	})

	t.Run("code is exposed", func(t *testing.T) {
		err := &APIError{Status: 422, Code: CodeIncorrectPassword}
		assert.Equal(t, CodeIncorrectPassword, CodeOf(err))
		assert.Empty(t, CodeOf(errors.New("x")))
		assert.Contains(t, err.Error(), "incorrect_password")
	})
}

func TestAuthorizationClone(t *testing.T) {
	orig := Authorization{
		GrantedTo:      "acme",
		Organizations:  []string{"acme.dev"},
		Emailaddresses: []AuthorizationMap{{RequestedLabel: "main", RealLabel: "home"}},
	}

	work := orig.Clone()
	require.NoError(t, work.SetMapping(CategoryEmail, "main", "work"))
	work.SetOrganization("acme.dev", false)
	require.NoError(t, work.SetFlag("name", true))

	assert.Equal(t, "home", orig.Emailaddresses[0].RealLabel)
	assert.Equal(t, []string{"acme.dev"}, orig.Organizations)
	assert.False(t, orig.Name)
	assert.Equal(t, "work", work.Emailaddresses[0].RealLabel)
	assert.Empty(t, work.Organizations)
}

func TestAuthorizationSetMapping(t *testing.T) {
	var a Authorization
	require.NoError(t, a.SetMapping(CategoryBank, "salary", "main"))
	require.NoError(t, a.SetMapping(CategoryBank, "salary", ""))
	assert.Empty(t, a.Bankaccounts)

	assert.Error(t, a.SetMapping("pets", "x", "y"))
	assert.Error(t, a.SetFlag("twitter", true))
}

func TestPendingCount(t *testing.T) {
	invs := []Invitation{
		{Organization: "a", Role: "member", Status: InvitationPending},
		{Organization: "b", Role: "owner", Status: InvitationAccepted},
		{Organization: "c", Role: "member", Status: InvitationPending},
	}
	assert.Equal(t, 2, PendingCount(invs))
	assert.Equal(t, "a/member", invs[0].Key())
}

func TestValidate(t *testing.T) {
	t.Run("valid email form", func(t *testing.T) {
		assert.NoError(t, Validate(EmailForm{Label: "work", EmailAddress: "me@example.com"}))
	})

	t.Run("label rules", func(t *testing.T) {
		err := Validate(EmailForm{Label: "x", EmailAddress: "me@example.com"})
		require.Error(t, err)
		assert.Equal(t, map[string]string{"label": "label"}, FieldErrors(err))
	})

	t.Run("passwords must repeat", func(t *testing.T) {
		err := Validate(PasswordForm{CurrentPassword: "old", NewPassword: "secret1", RepeatPassword: "secret2"})
		require.Error(t, err)
		assert.Equal(t, "eqfield", FieldErrors(err)["repeatPassword"])
	})

	t.Run("embedded address fields are checked", func(t *testing.T) {
		err := Validate(AddressForm{Label: "home"})
		require.Error(t, err)
		fields := FieldErrors(err)
		assert.Contains(t, fields, "street")
		assert.Contains(t, fields, "city")
	})

	t.Run("sms code must be numeric", func(t *testing.T) {
		assert.Error(t, Validate(SMSCodeForm{SMSCode: "12ab"}))
		assert.NoError(t, Validate(SMSCodeForm{SMSCode: "123456"}))
	})

	t.Run("non validation errors map to nil", func(t *testing.T) {
		assert.Nil(t, FieldErrors(errors.New("boom")))
	})
}

func TestUserHelpers(t *testing.T) {
	u := User{Username: "jdoe"}
	u.EnsureMaps()
	u.Email["home"] = "j@example.com"
	assert.Equal(t, "jdoe", u.DisplayName())
	u.Firstname, u.Lastname = "John", "Doe"
	assert.Equal(t, "John Doe", u.DisplayName())
	assert.False(t, u.Facebook.IsLinked())
	assert.False(t, u.Github.IsLinked())
}

func TestUserClone(t *testing.T) {
	u := &User{Username: "jdoe"}
	u.EnsureMaps()
	u.Phone["mobile"] = "+3247"

	c := u.Clone()
	c.Phone["desk"] = "+329"
	c.VerifiedPhones["mobile"] = "+3247"

	assert.NotContains(t, u.Phone, "desk")
	assert.Empty(t, u.VerifiedPhones)
	assert.Equal(t, "+3247", c.Phone["mobile"])
}
