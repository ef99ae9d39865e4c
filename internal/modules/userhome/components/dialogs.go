package components

import (
	"encoding/json"
	"slices"

	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/domain"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"
)

type formField struct {
	name  string
	title string
	kind  string
}

var labelField = formField{"label", "Label", "text"}

var labeledFields = map[dashboard.Kind][]formField{
	dashboard.KindEmail: {labelField, {"emailaddress", "Email address", "email"}},
	dashboard.KindPhone: {labelField, {"phonenumber", "Phone number", "tel"}},
	dashboard.KindAddress: {
		labelField,
		{"street", "Street", "text"},
		{"nr", "Number", "text"},
		{"other", "Other", "text"},
		{"postalcode", "Postal code", "text"},
		{"city", "City", "text"},
		{"country", "Country", "text"},
	},
	dashboard.KindBank: {
		labelField,
		{"iban", "IBAN", "text"},
		{"bic", "BIC", "text"},
		{"country", "Country", "text"},
	},
}

var kindNames = map[dashboard.Kind]string{
	dashboard.KindEmail:   "email address",
	dashboard.KindPhone:   "phone number",
	dashboard.KindAddress: "address",
	dashboard.KindBank:    "bank account",
}

// dialog is the modal frame. Forms inside it target the dialog slot, so a
// response either re-renders the dialog or empties the slot.
func dialog(title string, body ...g.Node) g.Node {
	return h.Div(h.Class("dialog-backdrop"),
		h.Div(h.Class("dialog"), h.Role("dialog"), h.Aria("modal", "true"),
			h.H2(g.Text(title)),
			g.Group(body),
		),
	)
}

func field(f formField, value string, errs map[string]string) g.Node {
	id := "field-" + f.name
	return h.Div(h.Class("field"),
		h.Label(h.For(id), g.Text(f.title)),
		h.Input(h.ID(id), h.Name(f.name), h.Type(f.kind), g.If(f.kind != "password", h.Value(value))),
		g.If(errs[f.name] != "", h.Small(h.Class("field-error"), g.Text(ErrorText(errs[f.name])))),
	)
}

func actions(buttons ...g.Node) g.Node {
	return h.Div(h.Class("actions"), g.Group(buttons))
}

func submitButton(text string) g.Node {
	return h.Button(h.Type("submit"), h.Class("button"), g.Text(text))
}

// dismissButton closes a dialog that keeps no state on the server.
func dismissButton(text string) g.Node {
	return h.Button(h.Type("button"), h.Class("button secondary"), h.Data("dialog-close", ""), g.Text(text))
}

func slotTarget() g.Node {
	return hx.Target("#" + DialogSlotID)
}

// LabeledForm is the state of a labeled-entry dialog.
type LabeledForm struct {
	Kind dashboard.Kind
	// OriginalLabel is empty when a new entry is added.
	OriginalLabel string
	DeleteAllowed bool
	Values        map[string]string
	Errors        map[string]string
}

// LabeledDialog adds, edits or deletes one entry of a labeled category.
func LabeledDialog(f LabeledForm) g.Node {
	base := "/user/" + string(f.Kind)
	title := "Edit " + kindNames[f.Kind]
	submit := hx.Put(base + "/" + esc(f.OriginalLabel))
	if f.OriginalLabel == "" {
		title = "Add " + kindNames[f.Kind]
		submit = hx.Post(base)
	}

	return dialog(title,
		h.Form(submit, slotTarget(),
			g.Map(labeledFields[f.Kind], func(ff formField) g.Node {
				return field(ff, f.Values[ff.name], f.Errors)
			}),
			actions(
				submitButton("Save"),
				g.If(f.DeleteAllowed, h.Button(h.Type("button"), h.Class("button danger"),
					hx.Delete(base+"/"+esc(f.OriginalLabel)), slotTarget(),
					hx.Confirm("Delete "+f.OriginalLabel+"?"),
					g.Text("Delete"),
				)),
				dismissButton("Cancel"),
			),
		),
	)
}

// PasswordDialog changes the password. Password inputs are never echoed
// back.
func PasswordDialog(errs map[string]string) g.Node {
	return dialog("Change password",
		h.Form(hx.Post("/user/password"), slotTarget(),
			field(formField{"currentPassword", "Current password", "password"}, "", errs),
			field(formField{"newPassword", "New password", "password"}, "", errs),
			field(formField{"repeatPassword", "Repeat new password", "password"}, "", errs),
			actions(submitButton("Change password"), dismissButton("Cancel")),
		),
	)
}

// NameDialog edits the first and last name.
func NameDialog(firstname, lastname string, errs map[string]string) g.Node {
	return dialog("Edit name",
		h.Form(hx.Post("/user/name"), slotTarget(),
			field(formField{"firstname", "First name", "text"}, firstname, errs),
			field(formField{"lastname", "Last name", "text"}, lastname, errs),
			actions(submitButton("Save"), dismissButton("Cancel")),
		),
	)
}

// PhoneDialog asks for the code sent to a phone. It also closes by itself
// when the phone is confirmed elsewhere while it is open.
func PhoneDialog(label, number string, state dashboard.PhoneState, errs map[string]string) g.Node {
	cancel := h.Button(h.Type("button"), h.Class("button secondary"),
		hx.Delete("/user/verification"), slotTarget(),
		g.Text("Close"),
	)
	if state == dashboard.PhoneSendFailed {
		return dialog("Verify "+label,
			h.P(h.Class("field-error"), g.Text(dashboard.SendFailedMessage)),
			actions(cancel),
		)
	}
	return dialog("Verify "+label,
		h.P(g.Textf("We sent a code to %s. Enter it below.", number)),
		h.Form(hx.Post("/user/phone/"+esc(label)+"/verify"), slotTarget(),
			field(formField{"smscode", "Code", "text"}, "", errs),
			actions(submitButton("Verify"), cancel),
		),
	)
}

// SocialDialog shows a linked account with an unlink button, or a link to
// start linking one.
func SocialDialog(d *dashboard.SocialDialog) g.Node {
	provider := string(d.Provider)
	title := "Facebook"
	if d.Provider == dashboard.ProviderGithub {
		title = "GitHub"
	}
	if !d.Linked() {
		return dialog(title,
			h.P(g.Textf("No %s account is linked.", title)),
			actions(
				h.A(h.Class("button"), h.Href("/user/social/"+provider+"/link"), g.Text("Link "+title)),
				dismissButton("Close"),
			),
		)
	}

	var details g.Node
	if d.Provider == dashboard.ProviderFacebook {
		details = h.Div(h.Class("social"),
			g.If(d.Facebook.Picture != "", h.Img(h.Src(d.Facebook.Picture), h.Alt(d.Facebook.Name))),
			h.A(h.Href(d.Facebook.Link), h.Target("_blank"), h.Rel("noopener"), g.Text(d.Facebook.Name)),
		)
	} else {
		details = h.Div(h.Class("social"),
			g.If(d.Github.AvatarURL != "", h.Img(h.Src(d.Github.AvatarURL), h.Alt(d.Github.Login))),
			h.A(h.Href(d.Github.HTMLURL), h.Target("_blank"), h.Rel("noopener"), g.Text(d.Github.Login)),
			g.If(d.Github.Name != "", h.P(g.Text(d.Github.Name))),
		)
	}
	return dialog(title,
		details,
		actions(
			h.Button(h.Type("button"), h.Class("button danger"),
				hx.Delete("/user/social/"+provider), slotTarget(),
				hx.Confirm("Unlink your "+title+" account?"),
				g.Text("Unlink"),
			),
			dismissButton("Close"),
		),
	)
}

// AuthorizationData is the state of the grant dialog.
type AuthorizationData struct {
	GrantedTo string
	Working   domain.Authorization
	Requested dashboard.Requested
	// User offers the labels a requested label can be mapped to.
	User *domain.User
}

var categoryTitles = []struct {
	category string
	title    string
}{
	{domain.CategoryEmail, "Email addresses"},
	{domain.CategoryPhone, "Phone numbers"},
	{domain.CategoryAddress, "Addresses"},
	{domain.CategoryBank, "Bank accounts"},
}

// AuthorizationDialog edits what an organization may see. Every change is
// posted immediately and kept in a working copy until saved or cancelled.
func AuthorizationDialog(d AuthorizationData) g.Node {
	base := "/user/authorizations/" + esc(d.GrantedTo)
	user := d.User
	if user == nil {
		user = &domain.User{}
	}
	userLabels := map[string][]string{
		domain.CategoryEmail:   sortedLabels(user.Email),
		domain.CategoryPhone:   sortedLabels(user.Phone),
		domain.CategoryAddress: sortedLabels(user.Address),
		domain.CategoryBank:    sortedLabels(user.Bank),
	}

	var rows g.Group
	for _, ct := range categoryTitles {
		requested := d.Requested.Labels[ct.category]
		if len(requested) == 0 {
			continue
		}
		current, _ := d.Working.Mappings(ct.category)
		rows = append(rows, h.FieldSet(
			h.Legend(g.Text(ct.title)),
			g.Map(requested, func(label string) g.Node {
				return mappingSelect(base, ct.category, label, realLabel(current, label), userLabels[ct.category])
			}),
		))
	}

	var flags g.Group
	for _, f := range []struct {
		name, title string
		requested   bool
		on          bool
	}{
		{"name", "Name", d.Requested.Name, d.Working.Name},
		{"facebook", "Facebook account", d.Requested.Facebook, d.Working.Facebook},
		{"github", "GitHub account", d.Requested.Github, d.Working.Github},
	} {
		if f.requested {
			flags = append(flags, toggle(base, f.name, "", f.title, f.on))
		}
	}

	return dialog("Authorization for "+d.GrantedTo,
		h.Div(h.Class("grant"),
			rows,
			g.If(len(flags) > 0, h.FieldSet(h.Legend(g.Text("Profile")), flags)),
			g.If(len(d.Requested.Organizations) > 0, h.FieldSet(
				h.Legend(g.Text("Organizations")),
				g.Map(d.Requested.Organizations, func(org string) g.Node {
					return toggle(base, "organizations", org, org, slices.Contains(d.Working.Organizations, org))
				}),
			)),
		),
		actions(
			h.Button(h.Type("button"), h.Class("button"), hx.Put(base), slotTarget(), g.Text("Save")),
			h.Button(h.Type("button"), h.Class("button danger"), hx.Delete(base), slotTarget(),
				hx.Confirm("Remove the authorization for "+d.GrantedTo+"?"),
				g.Text("Remove"),
			),
			h.Button(h.Type("button"), h.Class("button secondary"), hx.Post(base+"/cancel"), slotTarget(), g.Text("Cancel")),
		),
	)
}

func realLabel(mappings []domain.AuthorizationMap, requested string) string {
	for _, m := range mappings {
		if m.RequestedLabel == requested {
			return m.RealLabel
		}
	}
	return ""
}

func mappingSelect(base, category, requested, current string, labels []string) g.Node {
	vals, _ := json.Marshal(map[string]string{"category": category, "requested": requested})
	return h.Div(h.Class("field"),
		h.Label(g.Text(requested),
			h.Select(h.Name("real"),
				hx.Post(base+"/toggle"), hx.Trigger("change"), hx.Vals(string(vals)), slotTarget(),
				h.Option(h.Value(""), g.If(current == "", h.Selected()), g.Text("Do not share")),
				g.Map(labels, func(l string) g.Node {
					return h.Option(h.Value(l), g.If(l == current, h.Selected()), g.Text(l))
				}),
			),
		),
	)
}

func toggle(base, fieldName, key, title string, on bool) g.Node {
	vals, _ := json.Marshal(map[string]string{"field": fieldName, "key": key})
	return h.Div(h.Class("field"),
		h.Label(
			h.Input(h.Type("checkbox"), h.Name("on"), h.Value("true"), g.If(on, h.Checked()),
				hx.Post(base+"/toggle"), hx.Vals(string(vals)), slotTarget(),
			),
			g.Text(" "+title),
		),
	)
}
