package view

import (
	"context"
	"io"

	"github.com/a-h/templ"
	"maragu.dev/gomponents"
)

// nodeComponent lets a gomponents.Node render inside a templ layout.
type nodeComponent struct {
	node gomponents.Node
}

func (a nodeComponent) Render(_ context.Context, w io.Writer) error {
	if a.node == nil {
		return nil
	}
	return a.node.Render(w)
}

// Templ adapts a gomponents node to templ.Component.
func Templ(node gomponents.Node) templ.Component {
	return nodeComponent{node: node}
}

// componentNode lets a templ.Component render inside a gomponents tree.
type componentNode struct {
	ctx       context.Context
	component templ.Component
}

func (a componentNode) Render(w io.Writer) error {
	return a.component.Render(a.ctx, w)
}

// Node adapts a templ component to gomponents.Node. gomponents does not pass
// a context down, so the caller supplies the one to render with.
func Node(ctx context.Context, component templ.Component) gomponents.Node {
	return componentNode{ctx: ctx, component: component}
}
