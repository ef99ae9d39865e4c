package userhome

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/domain"
	"github.com/nfrund/userhome/internal/modules/userhome/components"
	"github.com/nfrund/userhome/web/src/templates/layouts"
	g "maragu.dev/gomponents"
)

// bindBody binds only the form body; the view query parameter and the path
// label must not leak into the form.
func bindBody(c echo.Context, form any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// validate reports the failing fields of form. A nil map and nil error mean
// the form is valid.
func validate(c echo.Context, form any) (map[string]string, error) {
	err := c.Validate(form)
	if err == nil {
		return nil, nil
	}
	if errs := domain.FieldErrors(err); errs != nil {
		return errs, nil
	}
	return nil, err
}

// finish answers a dialog submission: closed dialogs render their
// out-of-band updates, invalid ones are shown again and anything else
// replaces the page with the error page.
func finish[T any](c echo.Context, out dashboard.Outcome[T], closed func() error, reshow func(errs map[string]string) error) error {
	switch out.Kind {
	case dashboard.Closed:
		return closed()
	case dashboard.Invalid:
		var errs map[string]string
		if out.Field != "" {
			errs = map[string]string{out.Field: out.Code}
		}
		return reshow(errs)
	}
	return redirect(c, out.RedirectPath())
}

// profileClosed empties the dialog slot and refreshes the profile.
func (h *Handler) profileClosed(c echo.Context, v *dashboard.View, extra ...any) func() error {
	return func() error {
		return h.fragment(c, append([]any{components.ProfileSection(v.User(), true)}, extra...)...)
	}
}

// labeledKind binds one labeled category to its dialog and form.
type labeledKind[T any] struct {
	kind   dashboard.Kind
	open   func(v *dashboard.View, label string) (*dashboard.LabeledDialog[T], error)
	bind   func(c echo.Context) (label string, data T, form any, err error)
	values func(label string, data T) map[string]string
}

var emailKind = labeledKind[string]{
	kind: dashboard.KindEmail,
	open: (*dashboard.View).EmailDialog,
	bind: func(c echo.Context) (string, string, any, error) {
		var f domain.EmailForm
		err := bindBody(c, &f)
		return f.Label, f.EmailAddress, f, err
	},
	values: func(label, email string) map[string]string {
		return map[string]string{"label": label, "emailaddress": email}
	},
}

var phoneKind = labeledKind[string]{
	kind: dashboard.KindPhone,
	open: (*dashboard.View).PhoneDialog,
	bind: func(c echo.Context) (string, string, any, error) {
		var f domain.PhoneForm
		err := bindBody(c, &f)
		return f.Label, f.Phonenumber, f, err
	},
	values: func(label, number string) map[string]string {
		return map[string]string{"label": label, "phonenumber": number}
	},
}

var addressKind = labeledKind[domain.Address]{
	kind: dashboard.KindAddress,
	open: (*dashboard.View).AddressDialog,
	bind: func(c echo.Context) (string, domain.Address, any, error) {
		var f domain.AddressForm
		err := bindBody(c, &f)
		return f.Label, f.Address, f, err
	},
	values: func(label string, a domain.Address) map[string]string {
		return map[string]string{
			"label":      label,
			"street":     a.Street,
			"nr":         a.Nr,
			"other":      a.Other,
			"postalcode": a.Postalcode,
			"city":       a.City,
			"country":    a.Country,
		}
	},
}

var bankKind = labeledKind[domain.BankAccount]{
	kind: dashboard.KindBank,
	open: (*dashboard.View).BankDialog,
	bind: func(c echo.Context) (string, domain.BankAccount, any, error) {
		var f domain.BankForm
		err := bindBody(c, &f)
		return f.Label, f.BankAccount, f, err
	},
	values: func(label string, b domain.BankAccount) map[string]string {
		return map[string]string{"label": label, "iban": b.IBAN, "bic": b.BIC, "country": b.Country}
	},
}

// labeledRoutes mounts the dialog routes of one labeled category.
func labeledRoutes[T any](group *echo.Group, h *Handler, k labeledKind[T]) {
	base := "/" + string(k.kind)
	group.GET(base+"/new", h.withView(func(c echo.Context, v *dashboard.View) error {
		return openLabeled(h, c, v, k, "")
	}))
	group.GET(base+"/:label", h.withView(func(c echo.Context, v *dashboard.View) error {
		return openLabeled(h, c, v, k, param(c, "label"))
	}))
	group.POST(base, h.withView(func(c echo.Context, v *dashboard.View) error {
		return saveLabeled(h, c, v, k, "")
	}))
	group.PUT(base+"/:label", h.withView(func(c echo.Context, v *dashboard.View) error {
		return saveLabeled(h, c, v, k, param(c, "label"))
	}))
	group.DELETE(base+"/:label", h.withView(func(c echo.Context, v *dashboard.View) error {
		return removeLabeled(h, c, v, k, param(c, "label"))
	}))
}

func labeledDialog[T any](c echo.Context, v *dashboard.View, k labeledKind[T], label string) (*dashboard.LabeledDialog[T], error) {
	if _, err := v.LoadUser(c.Request().Context()); err != nil {
		return nil, err
	}
	return k.open(v, label)
}

func labeledForm[T any](d *dashboard.LabeledDialog[T], values, errs map[string]string) g.Node {
	return components.LabeledDialog(components.LabeledForm{
		Kind:          d.Kind,
		OriginalLabel: d.OriginalLabel,
		DeleteAllowed: d.DeleteAllowed,
		Values:        values,
		Errors:        errs,
	})
}

func openLabeled[T any](h *Handler, c echo.Context, v *dashboard.View, k labeledKind[T], label string) error {
	d, err := labeledDialog(c, v, k, label)
	if err != nil {
		return fail(c, err)
	}
	return h.fragment(c, labeledForm(d, k.values(d.OriginalLabel, d.Data), nil))
}

func saveLabeled[T any](h *Handler, c echo.Context, v *dashboard.View, k labeledKind[T], label string) error {
	d, err := labeledDialog(c, v, k, label)
	if err != nil {
		return fail(c, err)
	}
	newLabel, data, form, err := k.bind(c)
	if err != nil {
		return err
	}
	reshow := func(errs map[string]string) error {
		return h.fragment(c, labeledForm(d, k.values(newLabel, data), errs))
	}
	errs, err := validate(c, form)
	if err != nil {
		return err
	}
	if errs != nil {
		return reshow(errs)
	}

	out := d.Save(c.Request().Context(), newLabel, data)
	return finish(c, out, h.profileClosed(c, v), reshow)
}

func removeLabeled[T any](h *Handler, c echo.Context, v *dashboard.View, k labeledKind[T], label string) error {
	d, err := labeledDialog(c, v, k, label)
	if err != nil {
		return fail(c, err)
	}
	out := d.Remove(c.Request().Context())
	return finish(c, out, h.profileClosed(c, v), func(errs map[string]string) error {
		return h.fragment(c, labeledForm(d, k.values(d.OriginalLabel, d.Data), errs))
	})
}

func (h *Handler) socialDialog(c echo.Context, v *dashboard.View) (*dashboard.SocialDialog, error) {
	provider, err := dashboard.ParseProvider(c.Param("provider"))
	if err != nil {
		return nil, err
	}
	if _, err := v.LoadUser(c.Request().Context()); err != nil {
		return nil, err
	}
	return v.SocialDialog(provider)
}

func (h *Handler) SocialGet(c echo.Context, v *dashboard.View) error {
	d, err := h.socialDialog(c, v)
	if err != nil {
		return fail(c, err)
	}
	return h.fragment(c, components.SocialDialog(d))
}

func (h *Handler) SocialDelete(c echo.Context, v *dashboard.View) error {
	d, err := h.socialDialog(c, v)
	if err != nil {
		return fail(c, err)
	}
	out := d.Unlink(c.Request().Context())
	return finish(c, out, h.profileClosed(c, v), func(map[string]string) error {
		return h.fragment(c, components.SocialDialog(d))
	})
}

// SocialLinkGet sends the browser to the provider to link an account.
func (h *Handler) SocialLinkGet(c echo.Context, v *dashboard.View) error {
	provider, err := dashboard.ParseProvider(c.Param("provider"))
	if err != nil {
		return fail(c, err)
	}
	link, err := dashboard.LinkURL(c.Request().Context(), h.config, provider, h.origin)
	if err != nil {
		return fail(c, err)
	}
	return redirect(c, link)
}

func authorizationForm(v *dashboard.View, d *dashboard.AuthorizationDialog) g.Node {
	return components.AuthorizationDialog(components.AuthorizationData{
		GrantedTo: d.GrantedTo,
		Working:   d.Working(),
		Requested: d.Requested(),
		User:      v.User(),
	})
}

// openAuthorization returns the grant dialog opened by AuthorizationGet.
func openAuthorization(c echo.Context, v *dashboard.View) (*dashboard.AuthorizationDialog, error) {
	grantedTo := param(c, "grantedTo")
	d, ok := v.AuthorizationDialog(grantedTo)
	if !ok {
		return nil, fmt.Errorf("authorization dialog %q: %w", grantedTo, domain.ErrNotFound)
	}
	return d, nil
}

func (h *Handler) authorizationsClosed(c echo.Context, v *dashboard.View) func() error {
	return func() error {
		return h.fragment(c, components.AuthorizationsSection(v.Authorizations(), true))
	}
}

func (h *Handler) AuthorizationGet(c echo.Context, v *dashboard.View) error {
	if _, err := v.LoadAuthorizations(c.Request().Context()); err != nil {
		return fail(c, err)
	}
	d, err := v.OpenAuthorization(param(c, "grantedTo"))
	if err != nil {
		return fail(c, err)
	}
	return h.fragment(c, authorizationForm(v, d))
}

// AuthorizationTogglePost applies one change to the working copy: a label
// mapping when a category is posted, otherwise a flag or organization.
func (h *Handler) AuthorizationTogglePost(c echo.Context, v *dashboard.View) error {
	d, err := openAuthorization(c, v)
	if err != nil {
		return fail(c, err)
	}
	if category := c.FormValue("category"); category != "" {
		err = d.Map(category, c.FormValue("requested"), c.FormValue("real"))
	} else {
		err = d.Toggle(c.FormValue("field"), c.FormValue("key"), c.FormValue("on") == "true")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.fragment(c, authorizationForm(v, d))
}

func (h *Handler) AuthorizationPut(c echo.Context, v *dashboard.View) error {
	d, err := openAuthorization(c, v)
	if err != nil {
		return fail(c, err)
	}
	out := d.Save(c.Request().Context())
	return finish(c, out, h.authorizationsClosed(c, v), func(map[string]string) error {
		return h.fragment(c, authorizationForm(v, d))
	})
}

func (h *Handler) AuthorizationCancelPost(c echo.Context, v *dashboard.View) error {
	d, err := openAuthorization(c, v)
	if err != nil {
		return fail(c, err)
	}
	return finish(c, d.Cancel(), h.authorizationsClosed(c, v), nil)
}

func (h *Handler) AuthorizationDelete(c echo.Context, v *dashboard.View) error {
	d, err := openAuthorization(c, v)
	if err != nil {
		return fail(c, err)
	}
	out := d.Remove(c.Request().Context())
	return finish(c, out, h.authorizationsClosed(c, v), func(map[string]string) error {
		return h.fragment(c, authorizationForm(v, d))
	})
}

func (h *Handler) PasswordGet(c echo.Context, v *dashboard.View) error {
	return h.fragment(c, components.PasswordDialog(nil))
}

func (h *Handler) PasswordPost(c echo.Context, v *dashboard.View) error {
	var f domain.PasswordForm
	if err := bindBody(c, &f); err != nil {
		return err
	}
	reshow := func(errs map[string]string) error {
		return h.fragment(c, components.PasswordDialog(errs))
	}
	errs, err := validate(c, f)
	if err != nil {
		return err
	}
	if errs != nil {
		return reshow(errs)
	}

	out := v.ChangePassword(c.Request().Context(), f.CurrentPassword, f.NewPassword)
	return finish(c, out, func() error {
		return h.fragment(c, layouts.ToastOOB("success", dashboard.PasswordUpdatedTitle, dashboard.PasswordUpdatedMessage))
	}, reshow)
}

func (h *Handler) NameGet(c echo.Context, v *dashboard.View) error {
	u, err := v.LoadUser(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return h.fragment(c, components.NameDialog(u.Firstname, u.Lastname, nil))
}

func (h *Handler) NamePost(c echo.Context, v *dashboard.View) error {
	var f domain.NameForm
	if err := bindBody(c, &f); err != nil {
		return err
	}
	reshow := func(errs map[string]string) error {
		return h.fragment(c, components.NameDialog(f.Firstname, f.Lastname, errs))
	}
	errs, err := validate(c, f)
	if err != nil {
		return err
	}
	if errs != nil {
		return reshow(errs)
	}
	if _, err := v.LoadUser(c.Request().Context()); err != nil {
		return fail(c, err)
	}

	out := v.EditName(c.Request().Context(), f.Firstname, f.Lastname)
	return finish(c, out, h.profileClosed(c, v), reshow)
}

// PhoneVerifyGet sends a code to the phone and opens the verification
// dialog, which polls until the phone is confirmed.
func (h *Handler) PhoneVerifyGet(c echo.Context, v *dashboard.View) error {
	ctx := c.Request().Context()
	if _, err := v.LoadUser(ctx); err != nil {
		return fail(c, err)
	}
	p, err := v.StartPhoneVerification(ctx, param(c, "label"))
	if err != nil {
		return fail(c, err)
	}
	return h.fragment(c, components.PhoneDialog(p.Label, p.Number, p.State(), nil))
}

func (h *Handler) PhoneVerifyPost(c echo.Context, v *dashboard.View) error {
	label := param(c, "label")
	p := v.PhoneVerification()
	if p == nil || p.Label != label {
		return fail(c, fmt.Errorf("phone verification %q: %w", label, domain.ErrNotFound))
	}
	var f domain.SMSCodeForm
	if err := bindBody(c, &f); err != nil {
		return err
	}
	reshow := func(errs map[string]string) error {
		return h.fragment(c, components.PhoneDialog(p.Label, p.Number, p.State(), errs))
	}
	errs, err := validate(c, f)
	if err != nil {
		return err
	}
	if errs != nil {
		return reshow(errs)
	}

	out := p.Submit(c.Request().Context(), f.SMSCode)
	return finish(c, out, func() error {
		v.ClosePhoneVerification()
		toast := layouts.ToastOOB("success", "Phone verified", fmt.Sprintf("%s (%s) is now verified.", p.Label, p.Number))
		return h.profileClosed(c, v, toast)()
	}, reshow)
}

// VerificationDelete closes the running verification and empties the
// dialog slot.
func (h *Handler) VerificationDelete(c echo.Context, v *dashboard.View) error {
	v.ClosePhoneVerification()
	return h.fragment(c)
}
