package devapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/domain"
)

// labeledField describes one labeled category of the profile.
type labeledField[T comparable] struct {
	entries func(acc *account) map[string]T
	decode  func(c echo.Context) (string, T, error)
	// moved runs after an entry was renamed, changed or (newLabel == "")
	// removed.
	moved func(acc *account, oldLabel, newLabel string, changed bool)
}

func registerLabeled[T comparable](g *echo.Group, s *Server, path string, f labeledField[T]) {
	g.POST(path, func(c echo.Context) error {
		label, value, err := f.decode(c)
		if err != nil || label == "" {
			return apiError(c, http.StatusBadRequest, "")
		}
		return s.withAccount(c, func(acc *account) error {
			m := f.entries(acc)
			if _, exists := m[label]; exists {
				return apiError(c, http.StatusConflict, "")
			}
			m[label] = value
			return c.NoContent(http.StatusCreated)
		})
	})

	g.PUT(path+"/:label", func(c echo.Context) error {
		oldLabel := c.Param("label")
		label, value, err := f.decode(c)
		if err != nil || label == "" {
			return apiError(c, http.StatusBadRequest, "")
		}
		return s.withAccount(c, func(acc *account) error {
			m := f.entries(acc)
			previous, ok := m[oldLabel]
			if !ok {
				return apiError(c, http.StatusNotFound, "")
			}
			if _, exists := m[label]; exists && label != oldLabel {
				return apiError(c, http.StatusConflict, "")
			}
			delete(m, oldLabel)
			m[label] = value
			if f.moved != nil {
				f.moved(acc, oldLabel, label, previous != value)
			}
			return c.NoContent(http.StatusNoContent)
		})
	})

	g.DELETE(path+"/:label", func(c echo.Context) error {
		label := c.Param("label")
		return s.withAccount(c, func(acc *account) error {
			m := f.entries(acc)
			if _, ok := m[label]; !ok {
				return apiError(c, http.StatusNotFound, "")
			}
			delete(m, label)
			if f.moved != nil {
				f.moved(acc, label, "", true)
			}
			return c.NoContent(http.StatusNoContent)
		})
	})
}

var emailField = labeledField[string]{
	entries: func(acc *account) map[string]string { return acc.profile.Email },
	decode: func(c echo.Context) (string, string, error) {
		var body struct {
			Label        string `json:"label"`
			EmailAddress string `json:"emailaddress"`
		}
		err := c.Bind(&body)
		return body.Label, body.EmailAddress, err
	},
}

var phoneField = labeledField[string]{
	entries: func(acc *account) map[string]string { return acc.profile.Phone },
	decode: func(c echo.Context) (string, string, error) {
		var body labeledPhone
		err := c.Bind(&body)
		return body.Label, body.Phonenumber, err
	},
	// A verified number keeps its status across a rename; a new number has to
	// be verified again.
	moved: func(acc *account, oldLabel, newLabel string, changed bool) {
		wasVerified := acc.verified[oldLabel]
		delete(acc.verified, oldLabel)
		delete(acc.pending, oldLabel)
		if wasVerified && !changed && newLabel != "" {
			acc.verified[newLabel] = true
		}
	},
}

var addressField = labeledField[domain.Address]{
	entries: func(acc *account) map[string]domain.Address { return acc.profile.Address },
	decode: func(c echo.Context) (string, domain.Address, error) {
		var body struct {
			Label string `json:"label"`
			domain.Address
		}
		err := c.Bind(&body)
		return body.Label, body.Address, err
	},
}

var bankField = labeledField[domain.BankAccount]{
	entries: func(acc *account) map[string]domain.BankAccount { return acc.profile.Bank },
	decode: func(c echo.Context) (string, domain.BankAccount, error) {
		var body struct {
			Label string `json:"label"`
			domain.BankAccount
		}
		err := c.Bind(&body)
		return body.Label, body.BankAccount, err
	},
}
