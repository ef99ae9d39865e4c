package userhome

import (
	"context"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/domain"
	"github.com/nfrund/userhome/internal/modules/userhome/components"
	"github.com/nfrund/userhome/web/src/templates/layouts"
	g "maragu.dev/gomponents"
)

// section loads a section of the view and renders it.
func (h *Handler) section(ctx context.Context, v *dashboard.View, name string, swap bool) (g.Node, error) {
	switch name {
	case "notifications":
		if _, err := v.LoadNotifications(ctx); err != nil {
			return nil, err
		}
		return components.NotificationsSection(notificationsData(v), swap), nil
	case "profile":
		u, err := v.LoadUser(ctx)
		if err != nil {
			return nil, err
		}
		return components.ProfileSection(u, swap), nil
	case "organizations":
		o, err := v.LoadOrganizations(ctx)
		if err != nil {
			return nil, err
		}
		return components.OrganizationsSection(o, swap), nil
	case "authorizations":
		auths, err := v.LoadAuthorizations(ctx)
		if err != nil {
			return nil, err
		}
		return components.AuthorizationsSection(auths, swap), nil
	}
	return nil, echo.ErrNotFound
}

func notificationsData(v *dashboard.View) components.NotificationsData {
	return components.NotificationsData{
		Notifications: v.Notifications(),
		Message:       v.NotificationMessage(),
		Selected:      v.IsSelected,
		HasSelection:  v.HasSelection(),
	}
}

// SectionGet renders one section. With a tab parameter the request came
// from a tab click and the tab bar is swapped too.
func (h *Handler) SectionGet(c echo.Context, v *dashboard.View) error {
	name := c.Param("name")
	if !slices.Contains(components.Tabs, name) {
		return echo.ErrNotFound
	}
	node, err := h.section(c.Request().Context(), v, name, false)
	if err != nil {
		return fail(c, err)
	}
	nodes := []any{node}
	if raw := c.QueryParam("tab"); raw != "" {
		tab, _ := strconv.Atoi(raw)
		nodes = append(nodes, components.TabBar(tab, v.PendingCount(), true))
	}
	return h.fragment(c, nodes...)
}

// InvitationSelectPost marks or unmarks one invitation.
func (h *Handler) InvitationSelectPost(c echo.Context, v *dashboard.View) error {
	inv := domain.Invitation{Organization: param(c, "org"), Role: param(c, "role")}
	v.SetSelected(inv.Key(), c.FormValue("on") == "true")
	return h.fragment(c, components.NotificationsSection(notificationsData(v), false))
}

func (h *Handler) AcceptPost(c echo.Context, v *dashboard.View) error {
	return h.answer(c, v, v.Accept)
}

func (h *Handler) RejectPost(c echo.Context, v *dashboard.View) error {
	return h.answer(c, v, v.Reject)
}

// answer runs a bulk answer. Any failed item replaces the page with the
// error page of the first failure; on success the reloaded notifications are
// rendered with the summary toast.
func (h *Handler) answer(c echo.Context, v *dashboard.View, run func(context.Context) (dashboard.BatchResult, error)) error {
	if !v.HasSelection() {
		return h.fragment(c, components.NotificationsSection(notificationsData(v), false))
	}
	ctx := c.Request().Context()
	res, err := run(ctx)
	if !res.OK() {
		return redirect(c, dashboard.ErrorPath(res.RedirectStatus()))
	}
	if err != nil {
		return fail(c, err)
	}
	return h.fragment(c,
		components.NotificationsSection(notificationsData(v), false),
		layouts.ToastOOB("success", "", res.Message()),
	)
}
