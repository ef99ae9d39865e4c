// Package components renders the dashboard: the page shell, its lazily
// loaded sections and the dialogs. Fragments that replace something already
// on the page are rendered with an out-of-band flag so one htmx response or
// socket push can update several places at once.
package components

import (
	"maps"
	"net/url"
	"slices"

	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/domain"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"
)

// ViewHeader carries the view id on every htmx request of a dashboard.
const ViewHeader = "X-View-ID"

// Element ids swapped by responses and pushes.
const (
	DashboardID  = "dashboard"
	TabsID       = "tabs"
	PanelID      = "panel"
	BadgeID      = "open-requests"
	DialogSlotID = "dialog"
)

// SectionID is the element id of a dashboard section.
func SectionID(name string) string {
	return "section-" + name
}

var fieldMessages = map[string]string{
	"required":                   "This field is required.",
	"label":                      "Use 2 to 50 letters, digits, spaces, dashes or underscores.",
	"email":                      "Enter a valid email address.",
	"min":                        "This value is too short.",
	"max":                        "This value is too long.",
	"numeric":                    "Enter digits only.",
	"eqfield":                    "The passwords do not match.",
	dashboard.KeyDuplicate:       "This label is already in use.",
	domain.CodeIncorrectPassword: "The current password is incorrect.",
	domain.CodeInvalidPassword:   "The new password is not strong enough.",
	domain.CodeInvalidCode:       "This code is not valid.",
}

// ErrorText is the message shown under a field for a validation tag or an
// identity API error code.
func ErrorText(code string) string {
	if msg, ok := fieldMessages[code]; ok {
		return msg
	}
	return "This value is not valid."
}

// EmptyDialogOOB closes whatever dialog is open.
func EmptyDialogOOB() g.Node {
	return h.Div(h.ID(DialogSlotID), hx.SwapOOB("true"))
}

func oob(on bool) g.Node {
	return g.If(on, hx.SwapOOB("true"))
}

func esc(s string) string {
	return url.PathEscape(s)
}

func sortedLabels[T any](m map[string]T) []string {
	return slices.Sorted(maps.Keys(m))
}

// dialogButton opens a dialog into the dialog slot.
func dialogButton(path, text string) g.Node {
	return h.Button(h.Type("button"), h.Class("link"),
		hx.Get(path), hx.Target("#"+DialogSlotID),
		g.Text(text),
	)
}
