package components

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/nfrund/userhome/web/src/templates/layouts"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"
)

// Tabs are the dashboard sections in tab order.
var Tabs = []string{"notifications", "profile", "organizations", "authorizations"}

// PageData is what the dashboard shell needs.
type PageData struct {
	ViewID   string
	Username string
	Tab      int
	Pending  int
}

// Page is the dashboard shell. Every htmx request below it names the view,
// and the websocket of the view is opened once it is on screen. Only the
// selected section is loaded; the others load when their tab is clicked.
func Page(d PageData) g.Node {
	tab := d.Tab
	if tab < 0 || tab >= len(Tabs) {
		tab = 0
	}
	headers, _ := json.Marshal(map[string]string{ViewHeader: d.ViewID})

	return h.Div(h.ID(DashboardID),
		hx.Headers(string(headers)),
		hx.Ext("ws"),
		g.Attr("ws-connect", "/user/ws?view="+url.QueryEscape(d.ViewID)),
		h.Header(h.Class("dashboard-header"),
			h.H1(g.Text("Your account")),
			h.P(
				g.Text("Signed in as "), h.Strong(g.Text(d.Username)), g.Text(" · "),
				h.A(h.Href("/logout"), g.Text("Sign out")),
			),
		),
		TabBar(tab, d.Pending, false),
		h.Div(h.ID(PanelID), SectionLoader(Tabs[tab])),
		h.Div(h.ID(DialogSlotID)),
	)
}

// TabBar renders the tabs with active selected. A tab click loads its
// section into the panel and swaps the tab bar out-of-band.
func TabBar(active, pending int, swap bool) g.Node {
	tabs := make(g.Group, 0, len(Tabs))
	for i, name := range Tabs {
		link := fmt.Sprintf("/user?tab=%d", i)
		class := "tab"
		if i == active {
			class += " active"
		}
		tabs = append(tabs, h.A(h.Class(class), h.Href(link),
			hx.Get(fmt.Sprintf("/user/sections/%s?tab=%d", name, i)),
			hx.Target("#"+PanelID),
			hx.PushURL(link),
			g.Text(layouts.Title(name)),
			g.If(name == "notifications", Badge(pending, false)),
		))
	}
	return h.Nav(h.ID(TabsID), h.Class("tabs"), oob(swap), tabs)
}

// Badge is the open-request counter on the notifications tab.
func Badge(pending int, swap bool) g.Node {
	return h.Span(h.ID(BadgeID), h.Class("badge"), oob(swap),
		g.If(pending > 0, g.Textf("%d", pending)),
	)
}

// SectionLoader fetches a section as soon as it is on the page.
func SectionLoader(name string) g.Node {
	return h.Div(h.ID(SectionID(name)), h.Class("section loading"),
		hx.Get("/user/sections/"+name),
		hx.Trigger("load"),
		hx.Swap("outerHTML"),
		g.Text("Loading…"),
	)
}
