package userhome

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/userhome/internal/dashboard"
	"github.com/nfrund/userhome/internal/domain"
	"github.com/nfrund/userhome/internal/handlers"
	"github.com/nfrund/userhome/internal/identity"
	"github.com/nfrund/userhome/internal/identity/devapi"
	"github.com/nfrund/userhome/internal/middleware"
	"github.com/nfrund/userhome/internal/pubsub"
	"github.com/nfrund/userhome/internal/rendering"
	"github.com/nfrund/userhome/internal/websocket"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	echo     *echo.Echo
	api      *devapi.Server
	bus      *pubsub.WatermillBridge
	sessions *dashboard.Sessions
	// polls counts the verified phone lookups made against the API.
	polls *atomic.Int64
}

// newTestApp serves the dashboard for alice against the development API.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	f, err := devapi.LoadFixture(afero.NewOsFs(), "../../../testdata/identity.json")
	require.NoError(t, err)
	api := devapi.NewServer(f)
	apiEcho := echo.New()
	polls := new(atomic.Int64)
	apiEcho.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodGet && strings.HasSuffix(c.Request().URL.Path, "/phonenumbers") {
				polls.Add(1)
			}
			return next(c)
		}
	})
	api.Register(apiEcho)
	srv := httptest.NewServer(apiEcho)
	t.Cleanup(srv.Close)

	client := identity.New(srv.URL, 2*time.Second)
	bus := pubsub.NewWatermillBridge()
	t.Cleanup(func() { _ = bus.Close() })
	events := NewEvents(bus)
	views := dashboard.NewSessions(dashboard.Services{
		Profile:       client,
		Notifications: client,
		Organizations: client,
		Config:        client,
	}, dashboard.WithEvents(events), dashboard.WithPollInterval(10*time.Millisecond))
	t.Cleanup(views.CloseAll)

	e := echo.New()
	renderer := rendering.NewUniversalRenderer()
	e.Renderer = renderer
	e.Validator = handlers.NewValidator()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret"))))

	g := e.Group("/user", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.UserContextKey, "alice")
			return next(c)
		}
	})
	NewHandler(views, client, renderer, websocket.NewBridge(bus), "http://localhost:8080").Routes(g, nil)

	return &testApp{echo: e, api: api, bus: bus, sessions: views, polls: polls}
}

var viewIDPattern = regexp.MustCompile(`X-View-ID&#34;:&#34;([^&]+)&#34;`)

// open loads the dashboard and returns the id of the new view.
func (a *testApp) open(t *testing.T) string {
	t.Helper()
	rec := a.request(http.MethodGet, "/user", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	m := viewIDPattern.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2, "page carries the view id")
	return m[1]
}

// request issues an htmx request for view with a form body.
func (a *testApp) request(method, target, viewID string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if viewID != "" {
		req.Header.Set("X-View-ID", viewID)
		req.Header.Set("HX-Request", "true")
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func TestPageGet(t *testing.T) {
	app := newTestApp(t)
	rec := app.request(http.MethodGet, "/user?tab=1", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Signed in as")
	assert.Contains(t, body, `<span id="open-requests" class="badge">2</span>`)
	assert.Contains(t, body, `<a class="tab active" href="/user?tab=1"`)
	assert.Equal(t, 1, app.sessions.Len())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderSetCookie), "view is remembered in the session")
}

func TestSectionGet(t *testing.T) {
	app := newTestApp(t)
	id := app.open(t)

	t.Run("profile", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/sections/profile", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "alice@work.example.com")
		assert.Contains(t, body, "Rabbit Hole 1, OX1 Oxford, UK")
		assert.Contains(t, body, `hx-get="/user/phone/home/verify"`)
		assert.Contains(t, body, "Linked as")
	})

	t.Run("organizations", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/sections/organizations", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "wonderland")
		assert.Contains(t, rec.Body.String(), "tea-party")
	})

	t.Run("tab click swaps the tab bar", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/sections/authorizations?tab=3", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `<a class="tab active" href="/user?tab=3"`)
		assert.Contains(t, rec.Body.String(), `hx-swap-oob="true"`)
	})

	t.Run("unknown section", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/sections/billing", id, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown view reloads the dashboard", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/sections/profile", "gone", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/user", rec.Header().Get("HX-Redirect"))
	})
}

func TestInvitations(t *testing.T) {
	app := newTestApp(t)
	id := app.open(t)
	// A second tab, opened before the first one answers.
	stale := app.open(t)

	reloads := make(chan pubsub.Message, 4)
	require.NoError(t, app.bus.Subscribe(context.Background(), NotificationsReloaded.Name(), func(_ context.Context, msg pubsub.Message) error {
		reloads <- msg
		return nil
	}))

	t.Run("accept without selection changes nothing", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/invitations/accept", id, url.Values{})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "queens-court")
	})

	t.Run("select and accept", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/invitations/queens-court/member/select", id, url.Values{"on": {"true"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "checked")

		rec = app.request(http.MethodPost, "/user/invitations/accept", id, url.Values{})
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.NotContains(t, body, "queens-court")
		assert.Contains(t, body, "chess-club")
		assert.Contains(t, body, "Accepted 1 invitations!")
		assert.Contains(t, body, `hx-swap-oob="beforeend"`)

		select {
		case msg := <-reloads:
			assert.Equal(t, "alice", msg.UserID)
			assert.Equal(t, id, msg.ViewID)
			ev, err := NotificationsReloaded.Decode(msg)
			require.NoError(t, err)
			assert.Equal(t, 1, ev.Pending)
		case <-time.After(time.Second):
			t.Fatal("no reload event")
		}

		for _, inv := range app.api.Fixture().Users["alice"].Invitations {
			if inv.Organization == "queens-court" {
				assert.Equal(t, domain.InvitationAccepted, inv.Status)
			}
		}
	})

	t.Run("failed answer redirects to the error page", func(t *testing.T) {
		// The other tab still lists queens-court as pending.
		rec := app.request(http.MethodPost, "/user/invitations/queens-court/member/select", stale, url.Values{"on": {"true"}})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = app.request(http.MethodPost, "/user/invitations/accept", stale, url.Values{})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/error404", rec.Header().Get("HX-Redirect"))
		assert.NotContains(t, rec.Body.String(), "invitations!")

		select {
		case msg := <-reloads:
			t.Fatalf("notifications reloaded after a failure: %+v", msg)
		case <-time.After(50 * time.Millisecond):
		}

		v, err := app.sessions.Get(stale)
		require.NoError(t, err)
		assert.True(t, v.IsSelected("queens-court/member"), "selection is kept")
	})
}

func TestLabeledDialogs(t *testing.T) {
	app := newTestApp(t)
	id := app.open(t)

	t.Run("open", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/email/work", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `value="alice@work.example.com"`)
		assert.Contains(t, rec.Body.String(), `hx-put="/user/email/work"`)
	})

	t.Run("invalid address is shown again", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/email", id, url.Values{"label": {"other"}, "emailaddress": {"nope"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "field-error")
		assert.Contains(t, rec.Body.String(), `value="nope"`)
	})

	t.Run("duplicate label", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/email", id, url.Values{"label": {"main"}, "emailaddress": {"x@example.com"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "field-error")
		assert.NotContains(t, app.api.Fixture().Users["alice"].Profile.Email, "x@example.com")
	})

	t.Run("save closes the dialog", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/email", id, url.Values{"label": {"home"}, "emailaddress": {"alice@home.example.com"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `hx-swap-oob="true"`)
		assert.Contains(t, rec.Body.String(), "alice@home.example.com")
		assert.Equal(t, "alice@home.example.com", app.api.Fixture().Users["alice"].Profile.Email["home"])
	})

	t.Run("remove", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/user/bank/salary", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, app.api.Fixture().Users["alice"].Profile.Bank, "salary")
	})

	t.Run("missing label shows the error page", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/address/office", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/error404", rec.Header().Get("HX-Redirect"))
	})
}

func TestPasswordPost(t *testing.T) {
	app := newTestApp(t)
	id := app.open(t)

	t.Run("mismatched repeat", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/password", id, url.Values{
			"currentPassword": {"wonderland"}, "newPassword": {"looking-glass"}, "repeatPassword": {"other"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "field-error")
	})

	t.Run("wrong current password", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/password", id, url.Values{
			"currentPassword": {"queen"}, "newPassword": {"looking-glass"}, "repeatPassword": {"looking-glass"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "The current password is incorrect.")
		assert.NotContains(t, rec.Body.String(), "queen")
	})

	t.Run("success", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/password", id, url.Values{
			"currentPassword": {"wonderland"}, "newPassword": {"looking-glass"}, "repeatPassword": {"looking-glass"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), dashboard.PasswordUpdatedTitle)
		assert.Equal(t, "looking-glass", app.api.Fixture().Users["alice"].Password)
	})
}

func TestNamePost(t *testing.T) {
	app := newTestApp(t)
	id := app.open(t)

	rec := app.request(http.MethodPost, "/user/name", id, url.Values{"firstname": {"Alicia"}, "lastname": {"Liddell"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alicia Liddell")
	assert.Equal(t, "Alicia", app.api.Fixture().Users["alice"].Profile.Firstname)
}

func TestPhoneVerification(t *testing.T) {
	app := newTestApp(t)
	id := app.open(t)

	rec := app.request(http.MethodGet, "/user/phone/home/verify", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-post="/user/phone/home/verify"`)

	t.Run("other label", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/phone/mobile/verify", id, url.Values{"smscode": {devapi.DefaultSMSCode}})
		assert.Equal(t, "/error404", rec.Header().Get("HX-Redirect"))
	})

	t.Run("wrong code", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/phone/home/verify", id, url.Values{"smscode": {"000000"}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "This code is not valid.")
	})

	t.Run("right code", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/phone/home/verify", id, url.Values{"smscode": {devapi.DefaultSMSCode}})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "is now verified.")
		assert.Contains(t, app.api.Fixture().Users["alice"].VerifiedPhones, "home")

		v, err := app.sessions.Get(id)
		require.NoError(t, err)
		assert.Nil(t, v.PhoneVerification())
	})

	t.Run("closing without a verification", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/user/verification", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestAuthorizationDialog(t *testing.T) {
	app := newTestApp(t)
	id := app.open(t)

	rec := app.request(http.MethodGet, "/user/authorizations/tea-party", id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hx-put="/user/authorizations/tea-party"`)

	t.Run("toggle then cancel restores the grant", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/authorizations/tea-party/toggle", id, url.Values{"field": {"name"}})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = app.request(http.MethodPost, "/user/authorizations/tea-party/cancel", id, url.Values{})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "tea-party")

		v, err := app.sessions.Get(id)
		require.NoError(t, err)
		assert.True(t, v.Authorizations()[0].Name)
	})

	t.Run("toggle without an open dialog", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/user/authorizations/tea-party/toggle", id, url.Values{"field": {"name"}})
		assert.Equal(t, "/error404", rec.Header().Get("HX-Redirect"))
	})

	t.Run("map and save", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/authorizations/tea-party", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = app.request(http.MethodPost, "/user/authorizations/tea-party/toggle", id, url.Values{
			"category": {domain.CategoryEmail}, "requested": {"contact"}, "real": {"work"},
		})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = app.request(http.MethodPut, "/user/authorizations/tea-party", id, url.Values{})
		require.Equal(t, http.StatusOK, rec.Code)

		auths := app.api.Fixture().Users["alice"].Authorizations
		require.Len(t, auths, 1)
		assert.Equal(t, "work", auths[0].Emailaddresses[0].RealLabel)
	})
}

func TestSocial(t *testing.T) {
	app := newTestApp(t)
	id := app.open(t)

	t.Run("link redirects to the provider", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/user/social/github/link", id, nil)
		assert.Equal(t, "https://github.com/login/oauth/authorize/?client_id=dev-github-client", rec.Header().Get("HX-Redirect"))
	})

	t.Run("unlink", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/user/social/github", id, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, app.api.Fixture().Users["alice"].Profile.Github.Login)
	})
}
