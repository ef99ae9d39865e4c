package domain

import (
	"fmt"
	"slices"
)

// Authorization categories that hold label mappings.
const (
	CategoryEmail   = "emailaddresses"
	CategoryPhone   = "phonenumbers"
	CategoryAddress = "addresses"
	CategoryBank    = "bankaccounts"
)

// AuthorizationMap links the label a third party asked for to the label of
// the user's entry that is actually shared.
type AuthorizationMap struct {
	RequestedLabel string `json:"requestedlabel"`
	RealLabel      string `json:"reallabel"`
}

// Authorization records which parts of a profile the organization in
// GrantedTo may read.
type Authorization struct {
	Username       string             `json:"username"`
	GrantedTo      string             `json:"grantedTo"`
	Organizations  []string           `json:"organizations"`
	Emailaddresses []AuthorizationMap `json:"emailaddresses,omitempty"`
	Phonenumbers   []AuthorizationMap `json:"phonenumbers,omitempty"`
	Addresses      []AuthorizationMap `json:"addresses,omitempty"`
	Bankaccounts   []AuthorizationMap `json:"bankaccounts,omitempty"`
	Facebook       bool               `json:"facebook,omitempty"`
	Github         bool               `json:"github,omitempty"`
	Name           bool               `json:"name,omitempty"`
}

// Clone returns a deep copy so edits to the copy never reach the original.
func (a Authorization) Clone() Authorization {
	c := a
	c.Organizations = slices.Clone(a.Organizations)
	c.Emailaddresses = slices.Clone(a.Emailaddresses)
	c.Phonenumbers = slices.Clone(a.Phonenumbers)
	c.Addresses = slices.Clone(a.Addresses)
	c.Bankaccounts = slices.Clone(a.Bankaccounts)
	return c
}

// Mappings returns the label mappings of a category.
func (a *Authorization) Mappings(category string) ([]AuthorizationMap, error) {
	switch category {
	case CategoryEmail:
		return a.Emailaddresses, nil
	case CategoryPhone:
		return a.Phonenumbers, nil
	case CategoryAddress:
		return a.Addresses, nil
	case CategoryBank:
		return a.Bankaccounts, nil
	}
	return nil, fmt.Errorf("unknown authorization category %q", category)
}

// SetMapping points requestedLabel at realLabel within a category. An empty
// realLabel withdraws the mapping.
func (a *Authorization) SetMapping(category, requestedLabel, realLabel string) error {
	current, err := a.Mappings(category)
	if err != nil {
		return err
	}
	next := make([]AuthorizationMap, 0, len(current)+1)
	for _, m := range current {
		if m.RequestedLabel != requestedLabel {
			next = append(next, m)
		}
	}
	if realLabel != "" {
		next = append(next, AuthorizationMap{RequestedLabel: requestedLabel, RealLabel: realLabel})
	}
	switch category {
	case CategoryEmail:
		a.Emailaddresses = next
	case CategoryPhone:
		a.Phonenumbers = next
	case CategoryAddress:
		a.Addresses = next
	case CategoryBank:
		a.Bankaccounts = next
	}
	return nil
}

// SetFlag toggles one of the boolean grants (name, facebook, github).
func (a *Authorization) SetFlag(name string, on bool) error {
	switch name {
	case "name":
		a.Name = on
	case "facebook":
		a.Facebook = on
	case "github":
		a.Github = on
	default:
		return fmt.Errorf("unknown authorization flag %q", name)
	}
	return nil
}

// SetOrganization adds or removes a shared organization membership.
func (a *Authorization) SetOrganization(globalID string, on bool) {
	idx := slices.Index(a.Organizations, globalID)
	switch {
	case on && idx < 0:
		a.Organizations = append(a.Organizations, globalID)
	case !on && idx >= 0:
		a.Organizations = slices.Delete(a.Organizations, idx, idx+1)
	}
}
