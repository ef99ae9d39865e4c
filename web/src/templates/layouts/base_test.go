package layouts

import (
	"bytes"
	"context"
	"testing"

	"github.com/nfrund/userhome/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

func TestBase(t *testing.T) {
	var buf bytes.Buffer
	page := Base("Profile", []view.FlashMessage{{Type: "error", Text: "Session expired"}},
		view.Templ(h.P(g.Text("body"))))
	require.NoError(t, page.Render(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, "<title>Profile - Your account</title>")
	assert.Contains(t, out, "<p>body</p>")
	assert.Contains(t, out, `<div class="toast toast-error" role="status"><p>Session expired</p>`)
	assert.Contains(t, out, `id="toasts"`)
}

func TestToastOOB(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ToastOOB("success", "Password updated", "Your password has been changed.").Render(&buf))
	assert.Equal(t, `<div id="toasts" hx-swap-oob="beforeend"><div class="toast toast-success" role="status">`+
		`<strong>Password updated</strong><p>Your password has been changed.</p>`+
		`<button type="button" class="toast-close" aria-label="Dismiss">×</button></div></div>`, buf.String())
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Github", Title("github"))
	assert.Equal(t, "Verified Phones", Title("verified phones"))
	assert.Equal(t, "Your account", CalculateTitle(""))
}
