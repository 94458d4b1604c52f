package scene

import (
	"errors"
	"fmt"

	"github.com/altplanet/engine/internal/core/slotpool"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

var ErrRootNode = errors.New("scene: root node cannot be removed")

// NodeHandle references a node of one Graph.
type NodeHandle = slotpool.Handle

// Node is one scene-graph entry. Children are owned: removing a node removes
// its subtree.
type Node struct {
	Transform Transform
	Object    *Object
	Light     *Light
	Hidden    bool

	parent   NodeHandle
	children []NodeHandle
	world    mgl64.Mat4
}

func (n *Node) Parent() NodeHandle        { return n.parent }
func (n *Node) Children() []NodeHandle    { return n.children }
func (n *Node) WorldMatrix() mgl64.Mat4   { return n.world }
func (n *Node) WorldPosition() mgl64.Vec3 { return n.world.Col(3).Vec3() }

// RenderStats summarises one UpdateWorld pass.
type RenderStats struct {
	Nodes   int
	Objects int
	Lights  int
}

// Graph is a tree of nodes stored in a fixed-capacity slot pool. Accessed
// only from the game loop goroutine.
type Graph struct {
	nodes *slotpool.Pool[Node]
	root  NodeHandle
	log   *zap.Logger
}

func NewGraph(capacity int, log *zap.Logger) (*Graph, error) {
	nodes, err := slotpool.New(capacity,
		slotpool.WithName[Node]("scene_nodes"),
		slotpool.WithLogger[Node](log),
	)
	if err != nil {
		return nil, fmt.Errorf("scene nodes: %w", err)
	}
	root, err := nodes.Create(Node{Transform: IdentityTransform(), world: mgl64.Ident4()})
	if err != nil {
		return nil, err
	}
	return &Graph{nodes: nodes, root: root, log: log}, nil
}

func (g *Graph) Root() NodeHandle { return g.root }

// Pool exposes the node pool for metrics.
func (g *Graph) Pool() *slotpool.Pool[Node] { return g.nodes }

func (g *Graph) Node(h NodeHandle) (*Node, error) {
	return g.nodes.Get(h)
}

// AddNode creates an empty child of parent.
func (g *Graph) AddNode(parent NodeHandle) (NodeHandle, error) {
	if !g.nodes.Active(parent) {
		return NodeHandle{}, fmt.Errorf("add node: parent %s: %w", parent, slotpool.ErrInvalidHandle)
	}
	h, err := g.nodes.Create(Node{Transform: IdentityTransform(), parent: parent, world: mgl64.Ident4()})
	if err != nil {
		return NodeHandle{}, fmt.Errorf("add node: %w", err)
	}
	p, _ := g.nodes.Get(parent)
	p.children = append(p.children, h)
	return h, nil
}

// SetObject attaches a drawable to h.
func (g *Graph) SetObject(h NodeHandle, obj Object) error {
	n, err := g.nodes.Get(h)
	if err != nil {
		return err
	}
	n.Object = &obj
	return nil
}

// AddLight attaches a point light to h.
func (g *Graph) AddLight(h NodeHandle, light Light) error {
	n, err := g.nodes.Get(h)
	if err != nil {
		return err
	}
	n.Light = &light
	return nil
}

// Remove detaches h from its parent and destroys its whole subtree.
func (g *Graph) Remove(h NodeHandle) error {
	if h == g.root {
		return ErrRootNode
	}
	n, err := g.nodes.Get(h)
	if err != nil {
		return fmt.Errorf("remove node: %w", err)
	}
	if p, err := g.nodes.Get(n.parent); err == nil {
		for i, c := range p.children {
			if c == h {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}
	g.destroySubtree(h)
	return nil
}

func (g *Graph) destroySubtree(h NodeHandle) {
	n, err := g.nodes.Get(h)
	if err != nil {
		return
	}
	for _, c := range n.children {
		g.destroySubtree(c)
	}
	if err := g.nodes.Destroy(h); err != nil {
		g.log.Warn("scene node destroy failed", zap.Stringer("node", h), zap.Error(err))
	}
}

// ClearAll removes every node except the root.
func (g *Graph) ClearAll() {
	root, _ := g.nodes.Get(g.root)
	children := append([]NodeHandle(nil), root.children...)
	for _, c := range children {
		_ = g.Remove(c)
	}
}

// Len counts live nodes, root included.
func (g *Graph) Len() int { return g.nodes.Len() }

// UpdateWorld recomputes every node's world matrix from the root down.
func (g *Graph) UpdateWorld() RenderStats {
	var st RenderStats
	g.updateWorld(g.root, mgl64.Ident4(), &st)
	return st
}

func (g *Graph) updateWorld(h NodeHandle, parent mgl64.Mat4, st *RenderStats) {
	n, err := g.nodes.Get(h)
	if err != nil {
		return
	}
	n.world = parent.Mul4(n.Transform.Matrix())
	st.Nodes++
	if n.Object != nil && !n.Hidden {
		st.Objects++
	}
	if n.Light != nil {
		st.Lights++
	}
	for _, c := range n.children {
		g.updateWorld(c, n.world, st)
	}
}

// Visit calls fn for every live node in slot order.
func (g *Graph) Visit(fn func(NodeHandle, *Node)) {
	g.nodes.ForEach(fn)
}
