package dashboard

import (
	"context"
	"fmt"
	"slices"

	"github.com/nfrund/userhome/internal/domain"
)

// Requested is what a third party asked for in a grant, derived from the
// grant as it was when the dialog opened.
type Requested struct {
	// Labels are the requested labels per category.
	Labels        map[string][]string
	Organizations []string
	Name          bool
	Facebook      bool
	Github        bool
}

// AuthorizationDialog edits a working copy of one grant so the edit can be
// cancelled.
type AuthorizationDialog struct {
	GrantedTo string

	original domain.Authorization
	working  domain.Authorization
	v        *View
}

// OpenAuthorization opens the grant dialog for grantedTo. Opening it again
// starts over from the cached grant.
func (v *View) OpenAuthorization(grantedTo string) (*AuthorizationDialog, error) {
	auths := v.Authorizations()
	if auths == nil {
		return nil, fmt.Errorf("open authorization %q: authorizations not loaded", grantedTo)
	}
	idx := authorizationIndex(auths, grantedTo)
	if idx < 0 {
		return nil, fmt.Errorf("open authorization %q: %w", grantedTo, domain.ErrNotFound)
	}

	d := &AuthorizationDialog{
		GrantedTo: grantedTo,
		original:  auths[idx].Clone(),
		working:   auths[idx].Clone(),
		v:         v,
	}
	v.mu.Lock()
	v.grants[grantedTo] = d
	v.mu.Unlock()
	return d, nil
}

// AuthorizationDialog returns the open grant dialog for grantedTo.
func (v *View) AuthorizationDialog(grantedTo string) (*AuthorizationDialog, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	d, ok := v.grants[grantedTo]
	return d, ok
}

func (v *View) dropAuthorizationDialog(grantedTo string) {
	v.mu.Lock()
	delete(v.grants, grantedTo)
	v.mu.Unlock()
}

// Working returns a copy of the edited grant.
func (d *AuthorizationDialog) Working() domain.Authorization {
	d.v.mu.Lock()
	defer d.v.mu.Unlock()
	return d.working.Clone()
}

// Requested derives the toggle model from the original grant.
func (d *AuthorizationDialog) Requested() Requested {
	r := Requested{
		Labels:        make(map[string][]string),
		Organizations: slices.Clone(d.original.Organizations),
		Name:          d.original.Name,
		Facebook:      d.original.Facebook,
		Github:        d.original.Github,
	}
	for _, category := range []string{domain.CategoryEmail, domain.CategoryPhone, domain.CategoryAddress, domain.CategoryBank} {
		mappings, _ := d.original.Mappings(category)
		for _, m := range mappings {
			r.Labels[category] = append(r.Labels[category], m.RequestedLabel)
		}
	}
	return r
}

// Map points a requested label at one of the user's labels; an empty
// realLabel withholds it.
func (d *AuthorizationDialog) Map(category, requestedLabel, realLabel string) error {
	d.v.mu.Lock()
	defer d.v.mu.Unlock()
	return d.working.SetMapping(category, requestedLabel, realLabel)
}

// Toggle switches one of the name, facebook or github grants, or shares an
// organization membership when field is "organizations".
func (d *AuthorizationDialog) Toggle(field, key string, on bool) error {
	d.v.mu.Lock()
	defer d.v.mu.Unlock()
	if field == "organizations" {
		d.working.SetOrganization(key, on)
		return nil
	}
	return d.working.SetFlag(field, on)
}

// Save submits the working copy and replaces the cached grant with it.
func (d *AuthorizationDialog) Save(ctx context.Context) Outcome[domain.Authorization] {
	working := d.Working()
	if err := d.v.svc.Profile.SaveAuthorization(ctx, d.v.Username, working); err != nil {
		return redirect[domain.Authorization](err)
	}
	d.v.replaceAuthorization(working)
	d.v.dropAuthorizationDialog(d.GrantedTo)
	return closed(working)
}

// Cancel discards the edit and puts the original grant back.
func (d *AuthorizationDialog) Cancel() Outcome[domain.Authorization] {
	d.v.replaceAuthorization(d.original.Clone())
	d.v.dropAuthorizationDialog(d.GrantedTo)
	return closed(d.original.Clone())
}

// Remove deletes the grant.
func (d *AuthorizationDialog) Remove(ctx context.Context) Outcome[domain.Authorization] {
	if err := d.v.svc.Profile.DeleteAuthorization(ctx, d.v.Username, d.GrantedTo); err != nil {
		return redirect[domain.Authorization](err)
	}
	d.v.authorizations.Update(func(auths []domain.Authorization) []domain.Authorization {
		return slices.DeleteFunc(slices.Clone(auths), func(a domain.Authorization) bool {
			return a.GrantedTo == d.GrantedTo
		})
	})
	d.v.dropAuthorizationDialog(d.GrantedTo)
	return closed(domain.Authorization{})
}

func (v *View) replaceAuthorization(auth domain.Authorization) {
	v.authorizations.Update(func(auths []domain.Authorization) []domain.Authorization {
		out := slices.Clone(auths)
		if idx := authorizationIndex(out, auth.GrantedTo); idx >= 0 {
			out[idx] = auth
		} else {
			out = append(out, auth)
		}
		return out
	})
}
