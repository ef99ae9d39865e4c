package dashboard

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nfrund/userhome/internal/domain"
)

// Provider is a social identity provider.
type Provider string

const (
	ProviderFacebook Provider = "facebook"
	ProviderGithub   Provider = "github"
)

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderFacebook, ProviderGithub:
		return p, nil
	}
	return "", fmt.Errorf("unknown provider %q: %w", s, domain.ErrNotFound)
}

// SocialDialog shows a linked social account and can unlink it. Linking is a
// separate redirect flow, see LinkURL.
type SocialDialog struct {
	Provider Provider
	Facebook domain.FacebookAccount
	Github   domain.GithubAccount

	v *View
}

// SocialDialog opens the dialog of a provider over the cached profile.
func (v *View) SocialDialog(provider Provider) (*SocialDialog, error) {
	u := v.User()
	if u == nil {
		return nil, fmt.Errorf("open %s dialog: profile not loaded", provider)
	}
	return &SocialDialog{Provider: provider, Facebook: u.Facebook, Github: u.Github, v: v}, nil
}

// Linked reports whether the provider's account is linked.
func (d *SocialDialog) Linked() bool {
	if d.Provider == ProviderFacebook {
		return d.Facebook.IsLinked()
	}
	return d.Github.IsLinked()
}

// Unlink removes the link and clears the cached account.
func (d *SocialDialog) Unlink(ctx context.Context) Outcome[struct{}] {
	p := d.v.svc.Profile
	var err error
	if d.Provider == ProviderFacebook {
		err = p.DeleteFacebook(ctx, d.v.Username)
	} else {
		err = p.DeleteGithub(ctx, d.v.Username)
	}
	if err != nil {
		return redirect[struct{}](err)
	}

	d.v.updateUser(func(u *domain.User) {
		if d.Provider == ProviderFacebook {
			u.Facebook = domain.FacebookAccount{}
		} else {
			u.Github = domain.GithubAccount{}
		}
	})
	return closed(struct{}{})
}

// LinkURL is where the browser goes to link a provider. origin is the
// scheme and host the dashboard is served from; Facebook sends the user back
// to its callback there.
func LinkURL(ctx context.Context, cfg ConfigService, provider Provider, origin string) (string, error) {
	conf, err := cfg.GetClientConfig(ctx)
	if err != nil {
		return "", err
	}
	switch provider {
	case ProviderFacebook:
		q := url.Values{}
		q.Set("client_id", conf.FacebookClientID)
		q.Set("response_type", "code")
		q.Set("redirect_uri", origin+"/facebook_callback")
		return "https://www.facebook.com/dialog/oauth?" + q.Encode(), nil
	case ProviderGithub:
		return "https://github.com/login/oauth/authorize/?client_id=" + url.QueryEscape(conf.GithubClientID), nil
	}
	return "", fmt.Errorf("unknown provider %q: %w", provider, domain.ErrNotFound)
}
