package obj

import (
	"math/rand"

	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/common"
	"github.com/quendale/packmule/prefabs"
)

// Side names one of the three fixed attachment points on the controlled
// body.
type Side int

const (
	SideRight Side = iota
	SideLeft
	SideTop
)

// Sides lists all anchor sides in canonical order (Right, Left, Top). The
// order is load-bearing: AllMembers concatenates groups in this order.
var Sides = [3]Side{SideRight, SideLeft, SideTop}

func (s Side) String() string {
	switch s {
	case SideRight:
		return "right"
	case SideLeft:
		return "left"
	case SideTop:
		return "top"
	default:
		return "unknown"
	}
}

// Root is the controlled body as seen by the attachment graph and the
// placement validator. *Player implements it; tests use stubs.
type Root interface {
	Position() cp.Vector
	Angle() float64
	Bounds() common.Rect
	Freeze(frames int)
}

// AttachGraph owns the set of attached cargo, their anchor-side grouping
// and the connection edges between them. All mutations go through Attach
// and DetachCascade; both keep the invariants "an item is in at most one
// group" and "every edge target is a live member or the root".
type AttachGraph struct {
	world  *CollisionWorld
	tuning *prefabs.TuningSpec
	root   Root

	anchors map[Side]cp.Vector // offsets from the root center, unrotated

	groups map[Side][]*CargoItem
	// parents records the connection edge item -> parent; a nil parent
	// means the item connects directly to the root's anchor point.
	// Membership in this map is graph membership.
	parents map[*CargoItem]*CargoItem
	sides   map[*CargoItem]Side
	// offsets holds each member's pose relative to the root center in the
	// root's unrotated frame; SyncPoses re-derives world poses from it.
	offsets map[*CargoItem]cp.Vector

	listeners []AttachListener
	shadows   *ShadowManager
}

func NewAttachGraph(world *CollisionWorld, tuning *prefabs.TuningSpec, root Root, anchors map[Side]cp.Vector) *AttachGraph {
	if tuning == nil {
		tuning = prefabs.DefaultTuning()
	}
	if anchors == nil {
		anchors = map[Side]cp.Vector{}
	}
	return &AttachGraph{
		world:   world,
		tuning:  tuning,
		root:    root,
		anchors: anchors,
		groups:  map[Side][]*CargoItem{},
		parents: map[*CargoItem]*CargoItem{},
		sides:   map[*CargoItem]Side{},
		offsets: map[*CargoItem]cp.Vector{},
	}
}

// SetShadowManager wires the proxy shadow collaborator. Composition-root
// call; may be left nil in tests that don't care about shadows.
func (g *AttachGraph) SetShadowManager(sm *ShadowManager) {
	if g != nil {
		g.shadows = sm
	}
}

func (g *AttachGraph) AddListener(l AttachListener) {
	if g != nil && l != nil {
		g.listeners = append(g.listeners, l)
	}
}

func (g *AttachGraph) notifyFailed(item *CargoItem) {
	for _, l := range g.listeners {
		l.OnAttachFailed(item)
	}
}

// AnchorWorld returns the current world position of a side's anchor point.
func (g *AttachGraph) AnchorWorld(side Side) cp.Vector {
	if g == nil || g.root == nil {
		return cp.Vector{}
	}
	offset := g.anchors[side]
	return g.root.Position().Add(offset.Rotate(cp.ForAngle(g.root.Angle())))
}

// Attach adds item to the graph at anchorPos under side. It rejects an
// item that is already a member, a full anchor group, and a position with
// no connection target in range. On success the item's simulation is
// suspended, its pose snaps to anchorPos, and the controlled body is
// frozen for a few frames so the snap doesn't fight physics resolution.
func (g *AttachGraph) Attach(item *CargoItem, anchorPos cp.Vector, side Side) bool {
	if g == nil || item == nil {
		return false
	}
	if g.IsMember(item) {
		// guarded precondition, not an error
		g.notifyFailed(item)
		return false
	}
	if len(g.groups[side]) >= g.tuning.MaxGroupSize {
		g.notifyFailed(item)
		return false
	}
	parent, ok := g.nearestConnection(anchorPos, side)
	if !ok {
		g.notifyFailed(item)
		return false
	}

	angle := 0.0
	rootPos := cp.Vector{}
	if g.root != nil {
		angle = g.root.Angle()
		rootPos = g.root.Position()
	}
	item.SetPose(anchorPos, angle)
	item.suspendSimulation()

	g.groups[side] = append(g.groups[side], item)
	g.parents[item] = parent
	g.sides[item] = side
	g.offsets[item] = anchorPos.Sub(rootPos).Rotate(cp.ForAngle(-angle))

	if g.root != nil {
		g.root.Freeze(g.tuning.FreezeFrames)
	}
	if g.shadows != nil {
		g.shadows.Schedule(item)
	}
	for _, l := range g.listeners {
		l.OnAttachSucceeded(item)
	}
	return true
}

// nearestConnection finds what a new item at pos would connect to: the
// closest existing member of the side's group within the connection
// distance, else the anchor point itself if it is in range, else nothing.
func (g *AttachGraph) nearestConnection(pos cp.Vector, side Side) (*CargoItem, bool) {
	maxDist := g.tuning.ConnectionDistance
	var best *CargoItem
	bestDist := maxDist
	for _, member := range g.groups[side] {
		d := member.Position().Distance(pos)
		if d <= bestDist {
			best = member
			bestDist = d
		}
	}
	if best != nil {
		return best, true
	}
	if g.AnchorWorld(side).Distance(pos) <= maxDist {
		return nil, true
	}
	return nil, false
}

// DetachCascade removes item together with every member whose edge chain
// terminates at it, dependents first, and returns the removed items in
// removal order. Detaching a non-member is a no-op returning nil.
func (g *AttachGraph) DetachCascade(item *CargoItem) []*CargoItem {
	if g == nil || item == nil {
		return nil
	}
	if !g.IsMember(item) {
		return nil
	}

	// children index for this cascade only; edges are never rewired so
	// building it on demand is cheap and keeps the steady-state maps flat.
	children := map[*CargoItem][]*CargoItem{}
	for child, parent := range g.parents {
		if parent != nil {
			children[parent] = append(children[parent], child)
		}
	}

	visited := map[*CargoItem]bool{}
	var order []*CargoItem
	var walk func(*CargoItem)
	walk = func(it *CargoItem) {
		if visited[it] {
			return
		}
		visited[it] = true
		for _, child := range children[it] {
			walk(child)
		}
		order = append(order, it)
	}
	walk(item)

	for _, it := range order {
		g.removeOne(it)
	}
	return order
}

func (g *AttachGraph) removeOne(item *CargoItem) {
	side, ok := g.sides[item]
	if !ok {
		return
	}

	group := g.groups[side]
	for i, member := range group {
		if member == item {
			g.groups[side] = append(group[:i], group[i+1:]...)
			break
		}
	}
	delete(g.parents, item)
	delete(g.sides, item)
	delete(g.offsets, item)

	item.resumeSimulation(g.detachImpulse(item))

	if g.shadows != nil {
		g.shadows.Remove(item)
	}
	for _, l := range g.listeners {
		l.OnDetached(item)
	}
}

// detachImpulse pushes a freed item away from the root with a little
// jitter so stacked items don't pop along the exact same line.
func (g *AttachGraph) detachImpulse(item *CargoItem) cp.Vector {
	dir := cp.Vector{X: 0, Y: -1}
	if g.root != nil {
		delta := item.Position().Sub(g.root.Position())
		if delta.Length() > 1e-6 {
			dir = delta.Normalize()
		}
	}
	jitter := cp.ForAngle((rand.Float64() - 0.5) * 0.6)
	return dir.Rotate(jitter).Mult(g.tuning.DetachImpulse * item.Weight)
}

func (g *AttachGraph) IsMember(item *CargoItem) bool {
	if g == nil || item == nil {
		return false
	}
	_, ok := g.sides[item]
	return ok
}

// ParentOf returns the connection edge target for item: (nil, true) when
// the item connects directly to the root.
func (g *AttachGraph) ParentOf(item *CargoItem) (*CargoItem, bool) {
	if g == nil {
		return nil, false
	}
	parent, ok := g.parents[item]
	return parent, ok
}

// SideOf returns the anchor side an item is attached under.
func (g *AttachGraph) SideOf(item *CargoItem) (Side, bool) {
	if g == nil {
		return 0, false
	}
	side, ok := g.sides[item]
	return side, ok
}

// MembersOf returns the anchor group for side in attachment order.
func (g *AttachGraph) MembersOf(side Side) []*CargoItem {
	if g == nil {
		return nil
	}
	group := g.groups[side]
	out := make([]*CargoItem, len(group))
	copy(out, group)
	return out
}

// AllMembers concatenates the three anchor groups in Right, Left, Top
// order.
func (g *AttachGraph) AllMembers() []*CargoItem {
	if g == nil {
		return nil
	}
	var out []*CargoItem
	for _, side := range Sides {
		out = append(out, g.groups[side]...)
	}
	return out
}

func (g *AttachGraph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.sides)
}

// MemberRectAt returns the bounds an attached item would occupy if the
// root were rotated to angle. The mover's rotation search probes with it.
func (g *AttachGraph) MemberRectAt(item *CargoItem, angle float64) common.Rect {
	if g == nil || item == nil {
		return common.Rect{}
	}
	offset, ok := g.offsets[item]
	if !ok {
		return item.Rect()
	}
	rootPos := cp.Vector{}
	if g.root != nil {
		rootPos = g.root.Position()
	}
	pos := rootPos.Add(offset.Rotate(cp.ForAngle(angle)))
	return rotatedAABB(pos, item.Width, item.Height, angle)
}

// SyncPoses drives every attached item's pose from the root's current
// pose. Called after the physics step each tick.
func (g *AttachGraph) SyncPoses() {
	if g == nil || g.root == nil {
		return
	}
	rootPos := g.root.Position()
	angle := g.root.Angle()
	rot := cp.ForAngle(angle)
	for item, offset := range g.offsets {
		item.SetPose(rootPos.Add(offset.Rotate(rot)), angle)
	}
}
