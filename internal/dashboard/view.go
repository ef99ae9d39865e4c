package dashboard

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/nfrund/userhome/internal/domain"
)

// Section names a lazily loaded part of the dashboard.
type Section string

const (
	SectionNotifications  Section = "notifications"
	SectionOrganizations  Section = "organizations"
	SectionProfile        Section = "profile"
	SectionVerifiedPhones Section = "verified-phones"
	SectionAuthorizations Section = "authorizations"
)

// NoNotificationsMessage is the banner shown when nothing awaits an answer.
const NoNotificationsMessage = "No unhandled notifications"

// View is the state of one open dashboard: the sections fetched so far, the
// invitation selection and the dialogs that outlive a single request.
type View struct {
	ID       string
	Username string

	svc          Services
	events       Events
	pollInterval time.Duration
	log          *slog.Logger

	notifications  Loadable[*domain.Notifications]
	organizations  Loadable[*domain.Organizations]
	user           Loadable[*domain.User]
	verifiedPhones Loadable[map[string]string]
	authorizations Loadable[[]domain.Authorization]

	mu       sync.Mutex
	selected map[string]bool
	phone    *PhoneVerification
	grants   map[string]*AuthorizationDialog
	lastSeen time.Time
}

func newView(id, username string, svc Services, events Events, pollInterval time.Duration, now time.Time) *View {
	return &View{
		ID:           id,
		Username:     username,
		svc:          svc,
		events:       events,
		pollInterval: pollInterval,
		log:          slog.Default().With("view_id", id, "user", username),
		selected:     make(map[string]bool),
		grants:       make(map[string]*AuthorizationDialog),
		lastSeen:     now,
	}
}

// SelectedTab parses the tab query parameter; anything that is not a
// non-negative number selects the first tab.
func SelectedTab(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// LoadNotifications fetches the notifications once per view.
func (v *View) LoadNotifications(ctx context.Context) (*domain.Notifications, error) {
	return v.notifications.Load(ctx, func(ctx context.Context) (*domain.Notifications, error) {
		return v.svc.Notifications.GetNotifications(ctx, v.Username)
	})
}

// LoadOrganizations fetches owned and joined organizations once per view.
func (v *View) LoadOrganizations(ctx context.Context) (*domain.Organizations, error) {
	return v.organizations.Load(ctx, func(ctx context.Context) (*domain.Organizations, error) {
		return v.svc.Organizations.GetUserOrganizations(ctx, v.Username)
	})
}

// LoadUser fetches the profile once per view and then its verified phones.
// A failure to load the verified phones leaves the profile usable.
func (v *View) LoadUser(ctx context.Context) (*domain.User, error) {
	_, err := v.user.Load(ctx, func(ctx context.Context) (*domain.User, error) {
		u, err := v.svc.Profile.GetUser(ctx, v.Username)
		if err != nil {
			return nil, err
		}
		u.EnsureMaps()
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	if err := v.LoadVerifiedPhones(ctx); err != nil {
		v.log.Warn("Failed to load verified phones", "error", err)
	}
	return v.User(), nil
}

// LoadVerifiedPhones fetches the verified phones once per view and merges
// them into the cached profile.
func (v *View) LoadVerifiedPhones(ctx context.Context) error {
	phones, err := v.verifiedPhones.Load(ctx, func(ctx context.Context) (map[string]string, error) {
		return v.svc.Profile.GetVerifiedPhones(ctx, v.Username)
	})
	if err != nil {
		return err
	}
	v.user.Update(func(u *domain.User) *domain.User {
		maps.Copy(u.VerifiedPhones, phones)
		return u
	})
	return nil
}

// LoadAuthorizations fetches the grants once per view. The profile is loaded
// first because the grant dialog offers the user's labels.
func (v *View) LoadAuthorizations(ctx context.Context) ([]domain.Authorization, error) {
	if _, err := v.LoadUser(ctx); err != nil {
		return nil, err
	}
	_, err := v.authorizations.Load(ctx, func(ctx context.Context) ([]domain.Authorization, error) {
		return v.svc.Profile.GetAuthorizations(ctx, v.Username)
	})
	if err != nil {
		return nil, err
	}
	return v.Authorizations(), nil
}

// Invalidate forgets a section so its next load fetches again.
func (v *View) Invalidate(section Section) {
	switch section {
	case SectionNotifications:
		v.notifications.Reset()
	case SectionOrganizations:
		v.organizations.Reset()
	case SectionProfile:
		v.user.Reset()
		v.verifiedPhones.Reset()
	case SectionVerifiedPhones:
		v.verifiedPhones.Reset()
	case SectionAuthorizations:
		v.authorizations.Reset()
	}
}

// State reports the load state of a section.
func (v *View) State(section Section) LoadState {
	switch section {
	case SectionNotifications:
		return v.notifications.State()
	case SectionOrganizations:
		return v.organizations.State()
	case SectionProfile:
		return v.user.State()
	case SectionVerifiedPhones:
		return v.verifiedPhones.State()
	case SectionAuthorizations:
		return v.authorizations.State()
	}
	return NotLoaded
}

// User returns a copy of the cached profile, or nil before it loaded.
func (v *View) User() *domain.User {
	var out *domain.User
	v.user.Read(func(u *domain.User) { out = u.Clone() })
	return out
}

// updateUser edits the cached profile in place.
func (v *View) updateUser(fn func(u *domain.User)) {
	v.user.Update(func(u *domain.User) *domain.User {
		fn(u)
		return u
	})
}

// Notifications returns the cached notifications, or nil before they loaded.
func (v *View) Notifications() *domain.Notifications {
	n, state, _ := v.notifications.Get()
	if state != Loaded {
		return nil
	}
	return n
}

// Organizations returns the cached organizations, or nil before they loaded.
func (v *View) Organizations() *domain.Organizations {
	o, state, _ := v.organizations.Get()
	if state != Loaded {
		return nil
	}
	return o
}

// Authorizations returns a copy of the cached grants.
func (v *View) Authorizations() []domain.Authorization {
	var out []domain.Authorization
	v.authorizations.Read(func(auths []domain.Authorization) {
		out = make([]domain.Authorization, len(auths))
		for i, a := range auths {
			out[i] = a.Clone()
		}
	})
	return out
}

// PendingCount is the number of invitations awaiting an answer; it also
// drives the open-request badge.
func (v *View) PendingCount() int {
	n := v.Notifications()
	if n == nil {
		return 0
	}
	return domain.PendingCount(n.Invitations)
}

// NotificationMessage is the banner above the notification list.
func (v *View) NotificationMessage() string {
	if v.Notifications() == nil || v.PendingCount() > 0 {
		return ""
	}
	return NoNotificationsMessage
}

// SetSelected marks or unmarks an invitation for a bulk answer.
func (v *View) SetSelected(key string, on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if on {
		v.selected[key] = true
	} else {
		delete(v.selected, key)
	}
}

// IsSelected reports whether an invitation is marked.
func (v *View) IsSelected(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected[key]
}

// HasSelection reports whether any listed invitation is marked.
func (v *View) HasSelection() bool {
	return len(v.selectedInvitations()) > 0
}

// selectedInvitations returns the marked invitations in list order.
func (v *View) selectedInvitations() []domain.Invitation {
	n := v.Notifications()
	if n == nil {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []domain.Invitation
	for _, inv := range n.Invitations {
		if v.selected[inv.Key()] {
			out = append(out, inv)
		}
	}
	return out
}

func (v *View) clearSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.selected)
}

// Accept accepts every selected invitation.
func (v *View) Accept(ctx context.Context) (BatchResult, error) {
	return v.answer(ctx, "Accepted", v.svc.Notifications.AcceptInvitation)
}

// Reject rejects every selected invitation.
func (v *View) Reject(ctx context.Context) (BatchResult, error) {
	return v.answer(ctx, "Rejected", v.svc.Notifications.RejectInvitation)
}

// answer sends one request per selected invitation concurrently and waits for
// all of them. Only when every request succeeded is the selection cleared
// and the notifications reloaded; the returned error is that reload's.
func (v *View) answer(ctx context.Context, verb string, send func(context.Context, string, domain.Invitation) error) (BatchResult, error) {
	selected := v.selectedInvitations()
	res := BatchResult{Verb: verb, Items: make([]BatchItem, len(selected))}

	var wg sync.WaitGroup
	for i, inv := range selected {
		res.Items[i].Invitation = inv
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.Items[i].Err = send(ctx, v.Username, inv)
		}()
	}
	wg.Wait()

	if !res.OK() {
		for _, item := range res.Failed() {
			v.log.Warn("Invitation answer failed", "verb", verb, "invitation", item.Invitation.Key(), "error", item.Err)
		}
		return res, nil
	}

	v.clearSelection()
	v.Invalidate(SectionNotifications)
	n, err := v.LoadNotifications(ctx)
	if err != nil {
		return res, err
	}
	v.events.NotificationsReloaded(ctx, v.ID, v.Username, domain.PendingCount(n.Invitations))
	return res, nil
}

// touch records activity for idle reaping.
func (v *View) touch(now time.Time) {
	v.mu.Lock()
	v.lastSeen = now
	v.mu.Unlock()
}

func (v *View) idleSince() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// teardown stops everything the view runs in the background.
func (v *View) teardown() {
	v.ClosePhoneVerification()
	v.mu.Lock()
	clear(v.grants)
	v.mu.Unlock()
	v.events.ViewClosed(v.ID)
}

// authorizationIndex finds a grant by the organization it is granted to.
func authorizationIndex(auths []domain.Authorization, grantedTo string) int {
	return slices.IndexFunc(auths, func(a domain.Authorization) bool { return a.GrantedTo == grantedTo })
}
