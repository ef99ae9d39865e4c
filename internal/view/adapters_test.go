package view_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/a-h/templ"
	"github.com/nfrund/userhome/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

type ctxKey struct{}

func TestAdapters(t *testing.T) {
	t.Run("node inside templ", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, view.Templ(h.Span(g.Text("x"))).Render(context.Background(), &buf))
		assert.Equal(t, "<span>x</span>", buf.String())
	})

	t.Run("templ inside node keeps the context", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), ctxKey{}, "alice")
		inner := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := io.WriteString(w, ctx.Value(ctxKey{}).(string))
			return err
		})

		var buf bytes.Buffer
		require.NoError(t, h.Div(view.Node(ctx, inner)).Render(&buf))
		assert.Equal(t, "<div>alice</div>", buf.String())
	})
}
