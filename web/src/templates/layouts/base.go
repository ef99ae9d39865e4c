package layouts

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"github.com/nfrund/userhome/internal/view"
	g "maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	h "maragu.dev/gomponents/html"
)

const (
	htmxScript   = "https://unpkg.com/htmx.org@2.0.4"
	htmxWSScript = "https://unpkg.com/htmx-ext-ws@2.0.2/ws.js"
)

// ToastSlotID is the container toasts are appended to.
const ToastSlotID = "toasts"

// Base wraps content in the HTML document. Flash messages are rendered as
// toasts.
func Base(title string, flashes []view.FlashMessage, content templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return g.Group{
			g.Raw("<!DOCTYPE html>"),
			h.HTML(h.Lang("en"),
				h.Head(
					h.Meta(h.Charset("utf-8")),
					h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
					h.TitleEl(g.Text(CalculateTitle(title))),
					h.Link(h.Rel("stylesheet"), h.Href("/static/css/app.css")),
					h.Script(h.Src(htmxScript)),
					h.Script(h.Src(htmxWSScript)),
					h.Script(h.Src("/static/js/userhome.js"), h.Defer()),
				),
				h.Body(
					h.Main(h.Class("container"), view.Node(ctx, content)),
					Toasts(flashes),
				),
			),
		}.Render(w)
	})
}

// Toasts renders the toast container.
func Toasts(flashes []view.FlashMessage) g.Node {
	return h.Div(h.ID(ToastSlotID), h.Class("toasts"),
		g.Map(flashes, func(f view.FlashMessage) g.Node {
			return Toast(f.Type, "", f.Text)
		}),
	)
}

// Toast renders one dismissable toast.
func Toast(kind, title, text string) g.Node {
	return h.Div(h.Class("toast toast-"+kind), h.Role("status"),
		g.If(title != "", h.Strong(g.Text(title))),
		h.P(g.Text(text)),
		h.Button(h.Type("button"), h.Class("toast-close"), h.Aria("label", "Dismiss"), g.Text("×")),
	)
}

// ToastOOB appends a toast to the container from an htmx response or socket
// push.
func ToastOOB(kind, title, text string) g.Node {
	return h.Div(h.ID(ToastSlotID), hx.SwapOOB("beforeend"), Toast(kind, title, text))
}
