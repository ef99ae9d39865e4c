package components

import (
	"fmt"
	"strings"

	"github.com/nfrund/userhome/internal/domain"
	"github.com/nfrund/userhome/web/src/templates/layouts"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"
)

// NotificationsData is the state of the notifications section.
type NotificationsData struct {
	Notifications *domain.Notifications
	// Message is the banner above the list, empty when there is none.
	Message      string
	Selected     func(key string) bool
	HasSelection bool
}

// NotificationsSection lists the pending invitations with their selection
// boxes and the bulk answer buttons, followed by the approval and contract
// request counts.
func NotificationsSection(d NotificationsData, swap bool) g.Node {
	var pending []domain.Invitation
	approvals, contracts := 0, 0
	if n := d.Notifications; n != nil {
		for _, inv := range n.Invitations {
			if inv.IsPending() {
				pending = append(pending, inv)
			}
		}
		approvals, contracts = len(n.Approvals), len(n.ContractRequests)
	}
	selected := d.Selected
	if selected == nil {
		selected = func(string) bool { return false }
	}
	target := "#" + SectionID("notifications")

	return h.Section(h.ID(SectionID("notifications")), h.Class("section"), oob(swap),
		h.H2(g.Text("Invitations")),
		g.If(d.Message != "", h.P(h.Class("banner"), g.Text(d.Message))),
		g.If(len(pending) > 0, g.Group{
			h.Ul(h.Class("entries"), g.Map(pending, func(inv domain.Invitation) g.Node {
				return invitationRow(inv, selected(inv.Key()), target)
			})),
			h.Div(h.Class("actions"),
				answerButton("accept", "Accept", target, d.HasSelection),
				answerButton("reject", "Reject", target, d.HasSelection),
			),
		}),
		h.H2(g.Text("Approvals")),
		h.P(g.Textf("%d pending approvals", approvals)),
		h.H2(g.Text("Contract requests")),
		h.P(g.Textf("%d pending contract requests", contracts)),
	)
}

func invitationRow(inv domain.Invitation, selected bool, target string) g.Node {
	return h.Li(
		h.Label(
			h.Input(h.Type("checkbox"), h.Name("on"), h.Value("true"),
				g.If(selected, h.Checked()),
				hx.Post("/user/invitations/"+esc(inv.Organization)+"/"+esc(inv.Role)+"/select"),
				hx.Target(target), hx.Swap("outerHTML"),
			),
			g.Textf(" %s as %s", inv.Organization, inv.Role),
		),
	)
}

func answerButton(action, text, target string, enabled bool) g.Node {
	return h.Button(h.Type("button"), h.Class("button"),
		hx.Post("/user/invitations/"+action),
		hx.Target(target), hx.Swap("outerHTML"),
		g.If(!enabled, h.Disabled()),
		g.Text(text),
	)
}

// OrganizationsSection lists the organizations the user owns and belongs
// to.
func OrganizationsSection(o *domain.Organizations, swap bool) g.Node {
	if o == nil {
		o = &domain.Organizations{}
	}
	return h.Section(h.ID(SectionID("organizations")), h.Class("section"), oob(swap),
		h.H2(g.Text("Owner")),
		organizationList(o.Owner, "You do not own any organization."),
		h.H2(g.Text("Member")),
		organizationList(o.Member, "You are not a member of any organization."),
	)
}

func organizationList(ids []string, empty string) g.Node {
	if len(ids) == 0 {
		return h.P(h.Class("muted"), g.Text(empty))
	}
	return h.Ul(h.Class("entries"), g.Map(ids, func(id string) g.Node {
		return h.Li(g.Text(id))
	}))
}

// ProfileSection shows the name, every labeled category, the social
// accounts and the password entry point. Each entry opens its dialog.
func ProfileSection(u *domain.User, swap bool) g.Node {
	if u == nil {
		u = &domain.User{}
		u.EnsureMaps()
	}
	return h.Section(h.ID(SectionID("profile")), h.Class("section"), oob(swap),
		h.Div(h.Class("profile-name"),
			h.H2(g.Text(u.DisplayName())),
			dialogButton("/user/name", "Edit name"),
		),
		labeledBlock("Email addresses", "email", sortedLabels(u.Email), func(label string) g.Node {
			return g.Text(u.Email[label])
		}),
		labeledBlock("Phone numbers", "phone", sortedLabels(u.Phone), func(label string) g.Node {
			if _, ok := u.VerifiedPhones[label]; ok {
				return g.Group{g.Text(u.Phone[label]), h.Span(h.Class("verified"), g.Text(" verified"))}
			}
			return g.Group{
				g.Text(u.Phone[label] + " "),
				dialogButton("/user/phone/"+esc(label)+"/verify", "Verify"),
			}
		}),
		labeledBlock("Addresses", "address", sortedLabels(u.Address), func(label string) g.Node {
			return g.Text(FormatAddress(u.Address[label]))
		}),
		labeledBlock("Bank accounts", "bank", sortedLabels(u.Bank), func(label string) g.Node {
			b := u.Bank[label]
			if b.BIC == "" {
				return g.Text(b.IBAN)
			}
			return g.Textf("%s (%s)", b.IBAN, b.BIC)
		}),
		h.H3(g.Text("Social accounts")),
		h.Ul(h.Class("entries"),
			socialRow("facebook", u.Facebook.IsLinked(), u.Facebook.Name),
			socialRow("github", u.Github.IsLinked(), u.Github.Login),
		),
		h.H3(g.Text("Password")),
		dialogButton("/user/password", "Change password"),
	)
}

func labeledBlock(title, kind string, labels []string, value func(label string) g.Node) g.Node {
	return h.Div(h.Class("labeled "+kind),
		h.H3(g.Text(title)),
		h.Ul(h.Class("entries"), g.Map(labels, func(label string) g.Node {
			return h.Li(
				h.Strong(g.Text(label)), g.Text(": "), value(label), g.Text(" "),
				dialogButton("/user/"+kind+"/"+esc(label), "Edit"),
			)
		})),
		dialogButton("/user/"+kind+"/new", "Add"),
	)
}

func socialRow(provider string, linked bool, name string) g.Node {
	status := "Not linked"
	if linked {
		status = "Linked as " + name
	}
	return h.Li(
		h.Strong(g.Text(layouts.Title(provider))), g.Text(": "+status+" "),
		dialogButton("/user/social/"+provider, "Manage"),
	)
}

// FormatAddress renders an address on one line.
func FormatAddress(a domain.Address) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(a.Street + " " + a.Nr))
	if a.Other != "" {
		b.WriteString(", " + a.Other)
	}
	fmt.Fprintf(&b, ", %s %s, %s", a.Postalcode, a.City, a.Country)
	return b.String()
}

// AuthorizationsSection lists the organizations the user granted access to.
func AuthorizationsSection(auths []domain.Authorization, swap bool) g.Node {
	return h.Section(h.ID(SectionID("authorizations")), h.Class("section"), oob(swap),
		h.H2(g.Text("Authorizations")),
		g.If(len(auths) == 0, h.P(h.Class("muted"), g.Text("You have not authorized any organization."))),
		h.Ul(h.Class("entries"), g.Map(auths, func(a domain.Authorization) g.Node {
			return h.Li(
				h.Strong(g.Text(a.GrantedTo)), g.Text(" "),
				dialogButton("/user/authorizations/"+esc(a.GrantedTo), "Edit"),
			)
		})),
	)
}
