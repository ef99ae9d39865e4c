// Package dashboard holds the presentation logic of the account dashboard:
// per-view section caches, dialog state machines and the rules that turn
// identity API answers into dialog outcomes. It knows nothing about HTTP or
// HTML; the userhome module drives it and renders what it returns.
package dashboard

import (
	"context"

	"github.com/nfrund/userhome/internal/domain"
)

// ProfileService reads and edits a user's profile.
type ProfileService interface {
	GetUser(ctx context.Context, username string) (*domain.User, error)
	GetVerifiedPhones(ctx context.Context, username string) (map[string]string, error)

	RegisterEmail(ctx context.Context, username, label, address string) error
	UpdateEmail(ctx context.Context, username, oldLabel, newLabel, address string) error
	DeleteEmail(ctx context.Context, username, label string) error
	RegisterPhone(ctx context.Context, username, label, number string) error
	UpdatePhone(ctx context.Context, username, oldLabel, newLabel, number string) error
	DeletePhone(ctx context.Context, username, label string) error
	RegisterAddress(ctx context.Context, username, label string, addr domain.Address) error
	UpdateAddress(ctx context.Context, username, oldLabel, newLabel string, addr domain.Address) error
	DeleteAddress(ctx context.Context, username, label string) error
	RegisterBankAccount(ctx context.Context, username, label string, bank domain.BankAccount) error
	UpdateBankAccount(ctx context.Context, username, oldLabel, newLabel string, bank domain.BankAccount) error
	DeleteBankAccount(ctx context.Context, username, label string) error

	UpdateName(ctx context.Context, username, firstname, lastname string) error
	UpdatePassword(ctx context.Context, username, current, next string) error
	DeleteFacebook(ctx context.Context, username string) error
	DeleteGithub(ctx context.Context, username string) error

	SendPhoneVerification(ctx context.Context, username, label string) (string, error)
	VerifyPhone(ctx context.Context, username, label, validationKey, code string) error

	GetAuthorizations(ctx context.Context, username string) ([]domain.Authorization, error)
	SaveAuthorization(ctx context.Context, username string, auth domain.Authorization) error
	DeleteAuthorization(ctx context.Context, username, grantedTo string) error
}

// NotificationService lists and answers invitations.
type NotificationService interface {
	GetNotifications(ctx context.Context, username string) (*domain.Notifications, error)
	AcceptInvitation(ctx context.Context, username string, inv domain.Invitation) error
	RejectInvitation(ctx context.Context, username string, inv domain.Invitation) error
}

// OrganizationService lists the organizations of a user.
type OrganizationService interface {
	GetUserOrganizations(ctx context.Context, username string) (*domain.Organizations, error)
}

// ConfigService provides the OAuth client ids for social linking.
type ConfigService interface {
	GetClientConfig(ctx context.Context) (*domain.ClientConfig, error)
}

// Services bundles the collaborators of a view. The identity client
// implements all of them.
type Services struct {
	Profile       ProfileService
	Notifications NotificationService
	Organizations OrganizationService
	Config        ConfigService
}

// Events receives what a view wants pushed to its browser outside of a
// request/response cycle.
type Events interface {
	PhoneVerified(ctx context.Context, viewID, label, number string)
	// NotificationsReloaded reports the open-request count of username after
	// viewID reloaded its notifications.
	NotificationsReloaded(ctx context.Context, viewID, username string, pending int)
	// ViewClosed is called once a view was closed or reaped.
	ViewClosed(viewID string)
}

type nopEvents struct{}

func (nopEvents) PhoneVerified(context.Context, string, string, string)      {}
func (nopEvents) NotificationsReloaded(context.Context, string, string, int) {}
func (nopEvents) ViewClosed(string)                                          {}
