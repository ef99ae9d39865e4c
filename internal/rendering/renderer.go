package rendering

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Renderer renders templ components and gomponents nodes.
type Renderer interface {
	// RenderComponent renders components back to back into one buffer, as
	// needed for htmx responses carrying out-of-band swaps or socket pushes.
	RenderComponent(ctx context.Context, components ...any) ([]byte, error)

	// RenderPage writes components as an HTML response.
	RenderPage(c echo.Context, status int, components ...any) error
}

// UniversalRenderer renders both templ.Component and gomponents.Node values.
// It also serves as the echo.Renderer.
type UniversalRenderer struct{}

var (
	_ Renderer      = (*UniversalRenderer)(nil)
	_ echo.Renderer = (*UniversalRenderer)(nil)
)

func NewUniversalRenderer() *UniversalRenderer {
	return &UniversalRenderer{}
}

// gomponentNode matches gomponents.Node without importing it.
type gomponentNode interface {
	Render(w io.Writer) error
}

func (r *UniversalRenderer) render(ctx context.Context, component any, w io.Writer) error {
	switch c := component.(type) {
	case nil:
		return nil
	case templ.Component:
		return c.Render(ctx, w)
	case gomponentNode:
		return c.Render(w)
	default:
		return fmt.Errorf("unsupported component type %T", component)
	}
}

func (r *UniversalRenderer) RenderComponent(ctx context.Context, components ...any) ([]byte, error) {
	var buf bytes.Buffer
	for _, component := range components {
		if err := r.render(ctx, component, &buf); err != nil {
			return nil, fmt.Errorf("render component: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// RenderPage buffers the output first so a rendering error can still turn
// into an error response.
func (r *UniversalRenderer) RenderPage(c echo.Context, status int, components ...any) error {
	body, err := r.RenderComponent(c.Request().Context(), components...)
	if err != nil {
		return err
	}
	return c.HTMLBlob(status, body)
}

// Render implements echo.Renderer; the component is passed as data.
func (r *UniversalRenderer) Render(w io.Writer, _ string, data any, c echo.Context) error {
	if c.Response().Header().Get(echo.HeaderContentType) == "" {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	}
	return r.render(c.Request().Context(), data, w)
}
