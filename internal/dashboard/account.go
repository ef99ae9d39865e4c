package dashboard

import (
	"context"
	"net/http"

	"github.com/nfrund/userhome/internal/domain"
)

// Alert shown after a password change.
const (
	PasswordUpdatedTitle   = "Password updated"
	PasswordUpdatedMessage = "Your password has been changed."
)

// ChangePassword submits a password change. A rejected current password or
// a too weak new one keeps the dialog open with the error on the current
// password field.
func (v *View) ChangePassword(ctx context.Context, current, next string) Outcome[struct{}] {
	err := v.svc.Profile.UpdatePassword(ctx, v.Username, current, next)
	if err == nil {
		return closed(struct{}{})
	}
	if domain.StatusOf(err) == http.StatusUnprocessableEntity {
		switch code := domain.CodeOf(err); code {
		case domain.CodeIncorrectPassword, domain.CodeInvalidPassword:
			return invalid[struct{}]("currentPassword", code)
		}
		return invalid[struct{}]("", "")
	}
	return redirect[struct{}](err)
}

// EditName saves the name and mirrors it into the cached profile.
func (v *View) EditName(ctx context.Context, firstname, lastname string) Outcome[struct{}] {
	if err := v.svc.Profile.UpdateName(ctx, v.Username, firstname, lastname); err != nil {
		return redirect[struct{}](err)
	}
	v.updateUser(func(u *domain.User) {
		u.Firstname = firstname
		u.Lastname = lastname
	})
	return closed(struct{}{})
}
