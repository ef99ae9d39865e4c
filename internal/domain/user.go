package domain

import "maps"

// User is the profile record the identity API returns for a username.
// Every labeled category is keyed by a user-chosen label that is unique
// within that category.
type User struct {
	Username  string                 `json:"username"`
	Firstname string                 `json:"firstname"`
	Lastname  string                 `json:"lastname"`
	Email     map[string]string      `json:"email"`
	Phone     map[string]string      `json:"phone"`
	Address   map[string]Address     `json:"address"`
	Bank      map[string]BankAccount `json:"bank"`
	Facebook  FacebookAccount        `json:"facebook"`
	Github    GithubAccount          `json:"github"`

	// VerifiedPhones is not part of the user document; the dashboard fills it
	// from a separate fetch once the user has loaded.
	VerifiedPhones map[string]string `json:"-"`
}

// EnsureMaps replaces nil category maps with empty ones so callers can
// insert without checking.
func (u *User) EnsureMaps() {
	if u.Email == nil {
		u.Email = make(map[string]string)
	}
	if u.Phone == nil {
		u.Phone = make(map[string]string)
	}
	if u.Address == nil {
		u.Address = make(map[string]Address)
	}
	if u.Bank == nil {
		u.Bank = make(map[string]BankAccount)
	}
	if u.VerifiedPhones == nil {
		u.VerifiedPhones = make(map[string]string)
	}
}

// Clone returns a copy that shares no maps with u.
func (u *User) Clone() *User {
	c := *u
	c.Email = maps.Clone(u.Email)
	c.Phone = maps.Clone(u.Phone)
	c.Address = maps.Clone(u.Address)
	c.Bank = maps.Clone(u.Bank)
	c.VerifiedPhones = maps.Clone(u.VerifiedPhones)
	return &c
}

// DisplayName returns "first last", falling back to the username.
func (u *User) DisplayName() string {
	switch {
	case u.Firstname != "" && u.Lastname != "":
		return u.Firstname + " " + u.Lastname
	case u.Firstname != "":
		return u.Firstname
	case u.Lastname != "":
		return u.Lastname
	}
	return u.Username
}

// Address is a postal address stored under a label.
type Address struct {
	Street     string `json:"street" form:"street" validate:"required,max=100"`
	Nr         string `json:"nr" form:"nr" validate:"max=10"`
	Other      string `json:"other" form:"other" validate:"max=100"`
	City       string `json:"city" form:"city" validate:"required,max=50"`
	Postalcode string `json:"postalcode" form:"postalcode" validate:"required,max=10"`
	Country    string `json:"country" form:"country" validate:"required,max=50"`
}

// BankAccount is a bank account stored under a label.
type BankAccount struct {
	IBAN    string `json:"iban" form:"iban" validate:"required,max=34"`
	BIC     string `json:"bic" form:"bic" validate:"max=11"`
	Country string `json:"country" form:"country" validate:"required,max=40"`
}

// FacebookAccount is the linked Facebook identity. An empty ID means the
// account is not linked.
type FacebookAccount struct {
	ID      string `json:"id"`
	Link    string `json:"link"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// IsLinked reports whether a Facebook account is linked.
func (f FacebookAccount) IsLinked() bool { return f.ID != "" }

// GithubAccount is the linked GitHub identity.
type GithubAccount struct {
	Login     string `json:"login"`
	ID        int64  `json:"id"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
	Name      string `json:"name"`
}

// IsLinked reports whether a GitHub account is linked.
func (g GithubAccount) IsLinked() bool { return g.Login != "" }

// Organizations lists the global ids of organizations a user owns or is a
// member of.
type Organizations struct {
	Owner  []string `json:"owner"`
	Member []string `json:"member"`
}

// ClientConfig carries the OAuth client identifiers needed to start a
// social-account link.
type ClientConfig struct {
	FacebookClientID string `json:"facebookclientid"`
	GithubClientID   string `json:"githubclientid"`
}

// VerificationStart is returned when a phone verification code was sent.
type VerificationStart struct {
	ValidationKey string `json:"validationkey"`
}
