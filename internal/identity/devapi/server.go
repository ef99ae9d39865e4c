package devapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/domain"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/storage"
)

// DefaultSMSCode is the code every phone verification accepts unless
// WithSMSCode says otherwise.
const DefaultSMSCode = "123456"

const minPasswordLength = 6

type account struct {
	profile     domain.User
	password    string
	verified    map[string]bool
	orgs        domain.Organizations
	invitations []domain.Invitation
	auths       []domain.Authorization
	// validation keys of verifications in flight, by phone label
	pending map[string]string
}

// Server serves the identity API from memory.
type Server struct {
	mu       sync.Mutex
	config   domain.ClientConfig
	accounts map[string]*account

	smsCode    string
	signingKey []byte
	tokenTTL   time.Duration
	now        func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithSMSCode sets the code phone verifications accept.
func WithSMSCode(code string) Option {
	return func(s *Server) { s.smsCode = code }
}

// WithSigningKey makes the API require HS256 access tokens signed with key
// and lets /dev/login issue them. Without a key every request is accepted.
func WithSigningKey(key []byte) Option {
	return func(s *Server) { s.signingKey = key }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer seeds a server from f.
func NewServer(f *Fixture, opts ...Option) *Server {
	s := &Server{
		config:   f.Config,
		accounts: make(map[string]*account, len(f.Users)),
		smsCode:  DefaultSMSCode,
		tokenTTL: 8 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	for name, u := range f.Users {
		profile := u.Profile
		profile.Username = name
		profile.EnsureMaps()
		profile.VerifiedPhones = nil

		acc := &account{
			profile:     profile,
			password:    u.Password,
			verified:    make(map[string]bool, len(u.VerifiedPhones)),
			orgs:        u.Organizations,
			invitations: slices.Clone(u.Invitations),
			pending:     make(map[string]string),
		}
		for _, label := range u.VerifiedPhones {
			acc.verified[label] = true
		}
		for _, a := range u.Authorizations {
			a.Username = name
			acc.auths = append(acc.auths, a.Clone())
		}
		s.accounts[name] = acc
	}
	return s
}

// Register mounts the API routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/config", s.getConfig)
	e.GET("/dev/login", s.login)
	e.POST("/dev/users/:username/phonenumbers/:label/confirm", s.confirmPhone)

	u := e.Group("/api/users/:username", s.authorize)
	u.GET("", s.getUser)

	registerLabeled(u, s, "/emailaddresses", emailField)
	registerLabeled(u, s, "/phonenumbers", phoneField)
	registerLabeled(u, s, "/addresses", addressField)
	registerLabeled(u, s, "/banks", bankField)
	u.GET("/phonenumbers", s.listPhones)
	u.POST("/phonenumbers/:label/activate", s.sendPhoneVerification)
	u.PUT("/phonenumbers/:label/activate", s.verifyPhone)

	u.PUT("/name", s.updateName)
	u.PUT("/password", s.updatePassword)
	u.DELETE("/facebook", s.deleteFacebook)
	u.DELETE("/github", s.deleteGithub)

	u.GET("/authorizations", s.listAuthorizations)
	u.PUT("/authorizations/:grantedTo", s.saveAuthorization)
	u.DELETE("/authorizations/:grantedTo", s.deleteAuthorization)

	u.GET("/notifications", s.getNotifications)
	u.GET("/organizations", s.getOrganizations)
	u.POST("/organizations/:globalid/roles/:role", s.acceptInvitation)
	u.DELETE("/organizations/:globalid/roles/:role", s.rejectInvitation)
}

func apiError(c echo.Context, status int, code string) error {
	if code != "" {
		return c.JSON(status, map[string]string{"error": code})
	}
	return c.String(status, http.StatusText(status))
}

// authorize checks the bearer token against the username in the path.
func (s *Server) authorize(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(s.signingKey) == 0 {
			return next(c)
		}
		raw := c.Request().Header.Get(echo.HeaderAuthorization)
		if len(raw) < len("Bearer ") {
			return apiError(c, http.StatusUnauthorized, "")
		}
		token, err := jwt.Parse(raw[len("Bearer "):], func(*jwt.Token) (any, error) {
			return s.signingKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
		if err != nil {
			return apiError(c, http.StatusUnauthorized, "")
		}
		claims, _ := token.Claims.(jwt.MapClaims)
		if name, _ := claims["username"].(string); name != c.Param("username") {
			return apiError(c, http.StatusForbidden, "")
		}
		return next(c)
	}
}

// withAccount runs fn under the lock with the account named in the path.
func (s *Server) withAccount(c echo.Context, fn func(acc *account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[c.Param("username")]
	if !ok {
		return apiError(c, http.StatusNotFound, "")
	}
	return fn(acc)
}

func (s *Server) getConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, s.config)
}

func (s *Server) getUser(c echo.Context) error {
	return s.withAccount(c, func(acc *account) error {
		return c.JSON(http.StatusOK, acc.profile)
	})
}

type labeledPhone struct {
	Label       string `json:"label"`
	Phonenumber string `json:"phonenumber"`
}

func (s *Server) listPhones(c echo.Context) error {
	onlyVerified := c.QueryParam("validated") == "true"
	return s.withAccount(c, func(acc *account) error {
		out := make([]labeledPhone, 0, len(acc.profile.Phone))
		for label, number := range acc.profile.Phone {
			if onlyVerified && !acc.verified[label] {
				continue
			}
			out = append(out, labeledPhone{Label: label, Phonenumber: number})
		}
		slices.SortFunc(out, func(a, b labeledPhone) int {
			switch {
			case a.Label < b.Label:
				return -1
			case a.Label > b.Label:
				return 1
			}
			return 0
		})
		return c.JSON(http.StatusOK, out)
	})
}

func (s *Server) sendPhoneVerification(c echo.Context) error {
	label := c.Param("label")
	return s.withAccount(c, func(acc *account) error {
		if _, ok := acc.profile.Phone[label]; !ok {
			return apiError(c, http.StatusNotFound, "")
		}
		key := uuid.NewString()
		acc.pending[label] = key
		slog.Debug("Development SMS sent", "user", acc.profile.Username, "label", label, "code", s.smsCode)
		return c.JSON(http.StatusOK, domain.VerificationStart{ValidationKey: key})
	})
}

func (s *Server) verifyPhone(c echo.Context) error {
	var body struct {
		SMSCode       string `json:"smscode"`
		ValidationKey string `json:"validationkey"`
	}
	if err := c.Bind(&body); err != nil {
		return apiError(c, http.StatusBadRequest, "")
	}
	label := c.Param("label")
	return s.withAccount(c, func(acc *account) error {
		if _, ok := acc.profile.Phone[label]; !ok {
			return apiError(c, http.StatusNotFound, "")
		}
		key, ok := acc.pending[label]
		if !ok || key != body.ValidationKey || body.SMSCode != s.smsCode {
			return apiError(c, http.StatusUnprocessableEntity, domain.CodeInvalidCode)
		}
		delete(acc.pending, label)
		acc.verified[label] = true
		return c.NoContent(http.StatusNoContent)
	})
}

// ConfirmPhone marks a phone verified as if the user had followed the link in
// the text message. A running dashboard poll picks it up.
func (s *Server) ConfirmPhone(username, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return fmt.Errorf("confirm phone: user %q: %w", username, domain.ErrNotFound)
	}
	if _, ok := acc.profile.Phone[label]; !ok {
		return fmt.Errorf("confirm phone: label %q: %w", label, domain.ErrNotFound)
	}
	delete(acc.pending, label)
	acc.verified[label] = true
	return nil
}

func (s *Server) confirmPhone(c echo.Context) error {
	if err := s.ConfirmPhone(c.Param("username"), c.Param("label")); err != nil {
		return apiError(c, http.StatusNotFound, "")
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) updateName(c echo.Context) error {
	var body struct {
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
	}
	if err := c.Bind(&body); err != nil {
		return apiError(c, http.StatusBadRequest, "")
	}
	return s.withAccount(c, func(acc *account) error {
		acc.profile.Firstname = body.Firstname
		acc.profile.Lastname = body.Lastname
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) updatePassword(c echo.Context) error {
	var body struct {
		Current string `json:"currentpassword"`
		New     string `json:"newpassword"`
	}
	if err := c.Bind(&body); err != nil {
		return apiError(c, http.StatusBadRequest, "")
	}
	return s.withAccount(c, func(acc *account) error {
		if body.Current != acc.password {
			return apiError(c, http.StatusUnprocessableEntity, domain.CodeIncorrectPassword)
		}
		if len(body.New) < minPasswordLength {
			return apiError(c, http.StatusUnprocessableEntity, domain.CodeInvalidPassword)
		}
		acc.password = body.New
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) deleteFacebook(c echo.Context) error {
	return s.withAccount(c, func(acc *account) error {
		acc.profile.Facebook = domain.FacebookAccount{}
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) deleteGithub(c echo.Context) error {
	return s.withAccount(c, func(acc *account) error {
		acc.profile.Github = domain.GithubAccount{}
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) listAuthorizations(c echo.Context) error {
	return s.withAccount(c, func(acc *account) error {
		out := acc.auths
		if out == nil {
			out = []domain.Authorization{}
		}
		return c.JSON(http.StatusOK, out)
	})
}

func (s *Server) saveAuthorization(c echo.Context) error {
	var auth domain.Authorization
	if err := c.Bind(&auth); err != nil {
		return apiError(c, http.StatusBadRequest, "")
	}
	auth.GrantedTo = c.Param("grantedTo")
	auth.Username = c.Param("username")
	return s.withAccount(c, func(acc *account) error {
		idx := slices.IndexFunc(acc.auths, func(a domain.Authorization) bool { return a.GrantedTo == auth.GrantedTo })
		if idx < 0 {
			acc.auths = append(acc.auths, auth)
		} else {
			acc.auths[idx] = auth
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) deleteAuthorization(c echo.Context) error {
	grantedTo := c.Param("grantedTo")
	return s.withAccount(c, func(acc *account) error {
		idx := slices.IndexFunc(acc.auths, func(a domain.Authorization) bool { return a.GrantedTo == grantedTo })
		if idx < 0 {
			return apiError(c, http.StatusNotFound, "")
		}
		acc.auths = slices.Delete(acc.auths, idx, idx+1)
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) getNotifications(c echo.Context) error {
	return s.withAccount(c, func(acc *account) error {
		n := domain.Notifications{
			Invitations:      []domain.Invitation{},
			Approvals:        []json.RawMessage{},
			ContractRequests: []json.RawMessage{},
		}
		for _, inv := range acc.invitations {
			if inv.IsPending() {
				n.Invitations = append(n.Invitations, inv)
			}
		}
		return c.JSON(http.StatusOK, n)
	})
}

func (s *Server) getOrganizations(c echo.Context) error {
	return s.withAccount(c, func(acc *account) error {
		orgs := acc.orgs
		if orgs.Owner == nil {
			orgs.Owner = []string{}
		}
		if orgs.Member == nil {
			orgs.Member = []string{}
		}
		return c.JSON(http.StatusOK, orgs)
	})
}

// answerInvitation resolves the pending invitation named in the path.
func (s *Server) answerInvitation(c echo.Context, status string) error {
	org, role := c.Param("globalid"), c.Param("role")
	return s.withAccount(c, func(acc *account) error {
		idx := slices.IndexFunc(acc.invitations, func(inv domain.Invitation) bool {
			return inv.Organization == org && inv.Role == role && inv.IsPending()
		})
		if idx < 0 {
			return apiError(c, http.StatusNotFound, "")
		}
		acc.invitations[idx].Status = status
		if status == domain.InvitationAccepted {
			if role == "owner" {
				acc.orgs.Owner = append(acc.orgs.Owner, org)
			} else {
				acc.orgs.Member = append(acc.orgs.Member, org)
			}
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func (s *Server) acceptInvitation(c echo.Context) error {
	return s.answerInvitation(c, domain.InvitationAccepted)
}

func (s *Server) rejectInvitation(c echo.Context) error {
	return s.answerInvitation(c, domain.InvitationRejected)
}

// login issues an access token cookie for a fixture user and redirects to
// the dashboard.
func (s *Server) login(c echo.Context) error {
	username := c.QueryParam("username")
	s.mu.Lock()
	_, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok {
		return apiError(c, http.StatusNotFound, "")
	}

	token, err := s.IssueToken(username)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  s.now().Add(s.tokenTTL),
	})

	next := c.QueryParam("next")
	if next == "" || next[0] != '/' {
		next = "/user"
	}
	return c.Redirect(http.StatusSeeOther, next)
}

// IssueToken signs an access token for username. Without a signing key the
// token is signed with an empty key and only useful to clients that do not
// verify it.
func (s *Server) IssueToken(username string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"username": username,
		"sub":      username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
}

// Fixture returns the current state in fixture form.
func (s *Server) Fixture() *Fixture {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := &Fixture{Config: s.config, Users: make(map[string]*FixtureUser, len(s.accounts))}
	for name, acc := range s.accounts {
		fu := &FixtureUser{
			Profile:        cloneProfile(acc.profile),
			Password:       acc.password,
			Organizations:  acc.orgs,
			Invitations:    slices.Clone(acc.invitations),
			Authorizations: make([]domain.Authorization, 0, len(acc.auths)),
		}
		for label := range acc.verified {
			fu.VerifiedPhones = append(fu.VerifiedPhones, label)
		}
		slices.Sort(fu.VerifiedPhones)
		for _, a := range acc.auths {
			fu.Authorizations = append(fu.Authorizations, a.Clone())
		}
		f.Users[name] = fu
	}
	return f
}

// Snapshot writes the current state to path in store.
func (s *Server) Snapshot(ctx context.Context, store storage.Store, path string) error {
	raw, err := json.MarshalIndent(s.Fixture(), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if _, err := store.Save(ctx, path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

func cloneProfile(u domain.User) domain.User {
	u.Email = maps.Clone(u.Email)
	u.Phone = maps.Clone(u.Phone)
	u.Address = maps.Clone(u.Address)
	u.Bank = maps.Clone(u.Bank)
	return u
}
