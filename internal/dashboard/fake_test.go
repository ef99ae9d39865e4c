package dashboard

import (
	"context"
	"maps"
	"net/http"
	"sync"

	"github.com/nfrund/userhome/internal/domain"
)

// fakeIdentity implements every service interface in memory. Each call is
// counted by operation name; errs makes an operation fail.
type fakeIdentity struct {
	mu            sync.Mutex
	user          *domain.User
	verified      map[string]string
	notifications *domain.Notifications
	orgs          *domain.Organizations
	auths         []domain.Authorization
	config        domain.ClientConfig
	validationKey string

	calls map[string]int
	errs  map[string]error
	// inviteErrs fails single invitations, keyed by Invitation.Key.
	inviteErrs map[string]error
	// block, when set, holds GetNotifications until closed.
	block chan struct{}
	saved []domain.Authorization
}

func newFakeIdentity() *fakeIdentity {
	u := &domain.User{
		Username:  "alice",
		Firstname: "Alice",
		Email:     map[string]string{"main": "alice@example.com"},
		Phone:     map[string]string{"mobile": "+32470000001", "home": "+3220000002"},
		Address:   map[string]domain.Address{"home": {Street: "Rabbit Hole", City: "Oxford", Postalcode: "OX1", Country: "UK"}},
		Bank:      map[string]domain.BankAccount{"salary": {IBAN: "BE71096123456769", Country: "BE"}},
		Facebook:  domain.FacebookAccount{ID: "fb-1"},
		Github:    domain.GithubAccount{Login: "alice"},
	}
	return &fakeIdentity{
		user:     u,
		verified: map[string]string{"mobile": "+32470000001"},
		notifications: &domain.Notifications{Invitations: []domain.Invitation{
			{Organization: "court", Role: "member", Status: domain.InvitationPending},
			{Organization: "chess", Role: "owner", Status: domain.InvitationPending},
			{Organization: "croquet", Role: "member", Status: domain.InvitationRejected},
		}},
		orgs: &domain.Organizations{Owner: []string{"wonderland"}},
		auths: []domain.Authorization{{
			Username:       "alice",
			GrantedTo:      "tea-party",
			Organizations:  []string{"wonderland"},
			Emailaddresses: []domain.AuthorizationMap{{RequestedLabel: "contact", RealLabel: "main"}},
			Name:           true,
		}},
		config:        domain.ClientConfig{FacebookClientID: "fb-client", GithubClientID: "gh-client"},
		validationKey: "key-1",
		calls:         make(map[string]int),
		errs:          make(map[string]error),
		inviteErrs:    make(map[string]error),
	}
}

func apiErr(status int, code string) error {
	return &domain.APIError{Status: status, Code: code}
}

func (f *fakeIdentity) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.errs[op]
}

func (f *fakeIdentity) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeIdentity) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeIdentity) setVerified(label, number string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified[label] = number
}

func (f *fakeIdentity) GetUser(ctx context.Context, username string) (*domain.User, error) {
	if err := f.call("GetUser"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user.Clone(), nil
}

func (f *fakeIdentity) GetVerifiedPhones(ctx context.Context, username string) (map[string]string, error) {
	if err := f.call("GetVerifiedPhones"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.verified), nil
}

func (f *fakeIdentity) RegisterEmail(ctx context.Context, username, label, address string) error {
	return f.call("RegisterEmail")
}

func (f *fakeIdentity) UpdateEmail(ctx context.Context, username, oldLabel, newLabel, address string) error {
	return f.call("UpdateEmail")
}

func (f *fakeIdentity) DeleteEmail(ctx context.Context, username, label string) error {
	return f.call("DeleteEmail")
}

func (f *fakeIdentity) RegisterPhone(ctx context.Context, username, label, number string) error {
	return f.call("RegisterPhone")
}

func (f *fakeIdentity) UpdatePhone(ctx context.Context, username, oldLabel, newLabel, number string) error {
	return f.call("UpdatePhone")
}

func (f *fakeIdentity) DeletePhone(ctx context.Context, username, label string) error {
	return f.call("DeletePhone")
}

func (f *fakeIdentity) RegisterAddress(ctx context.Context, username, label string, addr domain.Address) error {
	return f.call("RegisterAddress")
}

func (f *fakeIdentity) UpdateAddress(ctx context.Context, username, oldLabel, newLabel string, addr domain.Address) error {
	return f.call("UpdateAddress")
}

func (f *fakeIdentity) DeleteAddress(ctx context.Context, username, label string) error {
	return f.call("DeleteAddress")
}

func (f *fakeIdentity) RegisterBankAccount(ctx context.Context, username, label string, bank domain.BankAccount) error {
	return f.call("RegisterBankAccount")
}

func (f *fakeIdentity) UpdateBankAccount(ctx context.Context, username, oldLabel, newLabel string, bank domain.BankAccount) error {
	return f.call("UpdateBankAccount")
}

func (f *fakeIdentity) DeleteBankAccount(ctx context.Context, username, label string) error {
	return f.call("DeleteBankAccount")
}

func (f *fakeIdentity) UpdateName(ctx context.Context, username, firstname, lastname string) error {
	return f.call("UpdateName")
}

func (f *fakeIdentity) UpdatePassword(ctx context.Context, username, current, next string) error {
	return f.call("UpdatePassword")
}

func (f *fakeIdentity) DeleteFacebook(ctx context.Context, username string) error {
	return f.call("DeleteFacebook")
}

func (f *fakeIdentity) DeleteGithub(ctx context.Context, username string) error {
	return f.call("DeleteGithub")
}

func (f *fakeIdentity) SendPhoneVerification(ctx context.Context, username, label string) (string, error) {
	if err := f.call("SendPhoneVerification"); err != nil {
		return "", err
	}
	return f.validationKey, nil
}

func (f *fakeIdentity) VerifyPhone(ctx context.Context, username, label, validationKey, code string) error {
	if err := f.call("VerifyPhone"); err != nil {
		return err
	}
	if validationKey != f.validationKey || code != "123456" {
		return apiErr(http.StatusUnprocessableEntity, domain.CodeInvalidCode)
	}
	return nil
}

func (f *fakeIdentity) GetAuthorizations(ctx context.Context, username string) ([]domain.Authorization, error) {
	if err := f.call("GetAuthorizations"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Authorization, len(f.auths))
	for i, a := range f.auths {
		out[i] = a.Clone()
	}
	return out, nil
}

func (f *fakeIdentity) SaveAuthorization(ctx context.Context, username string, auth domain.Authorization) error {
	if err := f.call("SaveAuthorization"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, auth)
	return nil
}

func (f *fakeIdentity) DeleteAuthorization(ctx context.Context, username, grantedTo string) error {
	return f.call("DeleteAuthorization")
}

func (f *fakeIdentity) GetNotifications(ctx context.Context, username string) (*domain.Notifications, error) {
	if err := f.call("GetNotifications"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := *f.notifications
	return &n, nil
}

func (f *fakeIdentity) answer(op string, inv domain.Invitation, status string) error {
	if err := f.call(op); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.inviteErrs[inv.Key()]; err != nil {
		return err
	}
	invs := make([]domain.Invitation, len(f.notifications.Invitations))
	copy(invs, f.notifications.Invitations)
	for i := range invs {
		if invs[i].Key() == inv.Key() {
			invs[i].Status = status
		}
	}
	f.notifications = &domain.Notifications{Invitations: invs}
	return nil
}

func (f *fakeIdentity) AcceptInvitation(ctx context.Context, username string, inv domain.Invitation) error {
	return f.answer("AcceptInvitation", inv, domain.InvitationAccepted)
}

func (f *fakeIdentity) RejectInvitation(ctx context.Context, username string, inv domain.Invitation) error {
	return f.answer("RejectInvitation", inv, domain.InvitationRejected)
}

func (f *fakeIdentity) GetUserOrganizations(ctx context.Context, username string) (*domain.Organizations, error) {
	if err := f.call("GetUserOrganizations"); err != nil {
		return nil, err
	}
	return f.orgs, nil
}

func (f *fakeIdentity) GetClientConfig(ctx context.Context) (*domain.ClientConfig, error) {
	if err := f.call("GetClientConfig"); err != nil {
		return nil, err
	}
	cfg := f.config
	return &cfg, nil
}

func (f *fakeIdentity) services() Services {
	return Services{Profile: f, Notifications: f, Organizations: f, Config: f}
}

// recordedEvents collects pushed events.
type recordedEvents struct {
	mu       sync.Mutex
	verified []string
	reloads  []int
	closed   []string
}

func (r *recordedEvents) PhoneVerified(ctx context.Context, viewID, label, number string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verified = append(r.verified, label+"="+number)
}

func (r *recordedEvents) NotificationsReloaded(ctx context.Context, viewID, username string, pending int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads = append(r.reloads, pending)
}

func (r *recordedEvents) ViewClosed(viewID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, viewID)
}

func (r *recordedEvents) closedViews() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

func (r *recordedEvents) snapshot() ([]string, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.verified...), append([]int(nil), r.reloads...)
}
