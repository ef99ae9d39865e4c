// Package identity is the HTTP client for the identity API that owns user
// profiles, organizations, notifications and authorizations.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nfrund/userhome/internal/domain"
)

type tokenKey struct{}

// WithToken returns a copy of ctx carrying the caller's access token. Every
// request made with that context is sent with it as a bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the access token stored by WithToken.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok && token != ""
}

// Client talks to the identity API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a client that sends requests through hc.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
	}
}

// errorBody is the JSON body the identity API sends with 4xx answers.
type errorBody struct {
	Error string `json:"error"`
}

func userPath(username string, parts ...string) string {
	p := "/api/users/" + url.PathEscape(username)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// do sends one request. in is JSON-encoded when non-nil; out is decoded from
// a 2xx body when non-nil. Non-2xx answers become *domain.APIError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := TokenFrom(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &domain.APIError{Status: resp.StatusCode, Op: op}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
			apiErr.Code = eb.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// GetUser fetches the full profile of username.
func (c *Client) GetUser(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, "GetUser", http.MethodGet, userPath(username), nil, &user); err != nil {
		return nil, err
	}
	user.EnsureMaps()
	return &user, nil
}

type labeledPhone struct {
	Label       string `json:"label"`
	Phonenumber string `json:"phonenumber"`
}

// GetVerifiedPhones returns the verified phone numbers keyed by label.
func (c *Client) GetVerifiedPhones(ctx context.Context, username string) (map[string]string, error) {
	var phones []labeledPhone
	path := userPath(username, "phonenumbers") + "?validated=true"
	if err := c.do(ctx, "GetVerifiedPhones", http.MethodGet, path, nil, &phones); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(phones))
	for _, p := range phones {
		out[p.Label] = p.Phonenumber
	}
	return out, nil
}

type labeledEmail struct {
	Label        string `json:"label"`
	EmailAddress string `json:"emailaddress"`
}

func (c *Client) RegisterEmail(ctx context.Context, username, label, address string) error {
	return c.do(ctx, "RegisterEmail", http.MethodPost, userPath(username, "emailaddresses"),
		labeledEmail{Label: label, EmailAddress: address}, nil)
}

func (c *Client) UpdateEmail(ctx context.Context, username, oldLabel, newLabel, address string) error {
	return c.do(ctx, "UpdateEmail", http.MethodPut, userPath(username, "emailaddresses", oldLabel),
		labeledEmail{Label: newLabel, EmailAddress: address}, nil)
}

func (c *Client) DeleteEmail(ctx context.Context, username, label string) error {
	return c.do(ctx, "DeleteEmail", http.MethodDelete, userPath(username, "emailaddresses", label), nil, nil)
}

func (c *Client) RegisterPhone(ctx context.Context, username, label, number string) error {
	return c.do(ctx, "RegisterPhone", http.MethodPost, userPath(username, "phonenumbers"),
		labeledPhone{Label: label, Phonenumber: number}, nil)
}

func (c *Client) UpdatePhone(ctx context.Context, username, oldLabel, newLabel, number string) error {
	return c.do(ctx, "UpdatePhone", http.MethodPut, userPath(username, "phonenumbers", oldLabel),
		labeledPhone{Label: newLabel, Phonenumber: number}, nil)
}

func (c *Client) DeletePhone(ctx context.Context, username, label string) error {
	return c.do(ctx, "DeletePhone", http.MethodDelete, userPath(username, "phonenumbers", label), nil, nil)
}

type labeledAddress struct {
	Label string `json:"label"`
	domain.Address
}

func (c *Client) RegisterAddress(ctx context.Context, username, label string, addr domain.Address) error {
	return c.do(ctx, "RegisterAddress", http.MethodPost, userPath(username, "addresses"),
		labeledAddress{Label: label, Address: addr}, nil)
}

func (c *Client) UpdateAddress(ctx context.Context, username, oldLabel, newLabel string, addr domain.Address) error {
	return c.do(ctx, "UpdateAddress", http.MethodPut, userPath(username, "addresses", oldLabel),
		labeledAddress{Label: newLabel, Address: addr}, nil)
}

func (c *Client) DeleteAddress(ctx context.Context, username, label string) error {
	return c.do(ctx, "DeleteAddress", http.MethodDelete, userPath(username, "addresses", label), nil, nil)
}

type labeledBank struct {
	Label string `json:"label"`
	domain.BankAccount
}

func (c *Client) RegisterBankAccount(ctx context.Context, username, label string, bank domain.BankAccount) error {
	return c.do(ctx, "RegisterBankAccount", http.MethodPost, userPath(username, "banks"),
		labeledBank{Label: label, BankAccount: bank}, nil)
}

func (c *Client) UpdateBankAccount(ctx context.Context, username, oldLabel, newLabel string, bank domain.BankAccount) error {
	return c.do(ctx, "UpdateBankAccount", http.MethodPut, userPath(username, "banks", oldLabel),
		labeledBank{Label: newLabel, BankAccount: bank}, nil)
}

func (c *Client) DeleteBankAccount(ctx context.Context, username, label string) error {
	return c.do(ctx, "DeleteBankAccount", http.MethodDelete, userPath(username, "banks", label), nil, nil)
}

// UpdateName replaces the first and last name.
func (c *Client) UpdateName(ctx context.Context, username, firstname, lastname string) error {
	body := map[string]string{"firstname": firstname, "lastname": lastname}
	return c.do(ctx, "UpdateName", http.MethodPut, userPath(username, "name"), body, nil)
}

// UpdatePassword changes the password. A wrong current password or a weak new
// one is answered with 422 and an error code.
func (c *Client) UpdatePassword(ctx context.Context, username, current, next string) error {
	body := map[string]string{"currentpassword": current, "newpassword": next}
	return c.do(ctx, "UpdatePassword", http.MethodPut, userPath(username, "password"), body, nil)
}

func (c *Client) DeleteFacebook(ctx context.Context, username string) error {
	return c.do(ctx, "DeleteFacebook", http.MethodDelete, userPath(username, "facebook"), nil, nil)
}

func (c *Client) DeleteGithub(ctx context.Context, username string) error {
	return c.do(ctx, "DeleteGithub", http.MethodDelete, userPath(username, "github"), nil, nil)
}

// SendPhoneVerification asks the API to text a code to the phone under label.
func (c *Client) SendPhoneVerification(ctx context.Context, username, label string) (string, error) {
	var start domain.VerificationStart
	err := c.do(ctx, "SendPhoneVerification", http.MethodPost,
		userPath(username, "phonenumbers", label, "activate"), nil, &start)
	if err != nil {
		return "", err
	}
	return start.ValidationKey, nil
}

// VerifyPhone submits the code the user received.
func (c *Client) VerifyPhone(ctx context.Context, username, label, validationKey, code string) error {
	body := map[string]string{"smscode": code, "validationkey": validationKey}
	return c.do(ctx, "VerifyPhone", http.MethodPut,
		userPath(username, "phonenumbers", label, "activate"), body, nil)
}

func (c *Client) GetAuthorizations(ctx context.Context, username string) ([]domain.Authorization, error) {
	var auths []domain.Authorization
	if err := c.do(ctx, "GetAuthorizations", http.MethodGet, userPath(username, "authorizations"), nil, &auths); err != nil {
		return nil, err
	}
	return auths, nil
}

func (c *Client) SaveAuthorization(ctx context.Context, username string, auth domain.Authorization) error {
	return c.do(ctx, "SaveAuthorization", http.MethodPut,
		userPath(username, "authorizations", auth.GrantedTo), auth, nil)
}

func (c *Client) DeleteAuthorization(ctx context.Context, username, grantedTo string) error {
	return c.do(ctx, "DeleteAuthorization", http.MethodDelete,
		userPath(username, "authorizations", grantedTo), nil, nil)
}

func (c *Client) GetNotifications(ctx context.Context, username string) (*domain.Notifications, error) {
	var n domain.Notifications
	if err := c.do(ctx, "GetNotifications", http.MethodGet, userPath(username, "notifications"), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// AcceptInvitation joins the organization of inv in its role.
func (c *Client) AcceptInvitation(ctx context.Context, username string, inv domain.Invitation) error {
	return c.do(ctx, "AcceptInvitation", http.MethodPost,
		userPath(username, "organizations", inv.Organization, "roles", inv.Role), inv, nil)
}

// RejectInvitation declines inv.
func (c *Client) RejectInvitation(ctx context.Context, username string, inv domain.Invitation) error {
	return c.do(ctx, "RejectInvitation", http.MethodDelete,
		userPath(username, "organizations", inv.Organization, "roles", inv.Role), nil, nil)
}

func (c *Client) GetUserOrganizations(ctx context.Context, username string) (*domain.Organizations, error) {
	var orgs domain.Organizations
	if err := c.do(ctx, "GetUserOrganizations", http.MethodGet, userPath(username, "organizations"), nil, &orgs); err != nil {
		return nil, err
	}
	return &orgs, nil
}

// GetClientConfig fetches the OAuth client ids used to link social accounts.
func (c *Client) GetClientConfig(ctx context.Context) (*domain.ClientConfig, error) {
	var cfg domain.ClientConfig
	if err := c.do(ctx, "GetClientConfig", http.MethodGet, "/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
