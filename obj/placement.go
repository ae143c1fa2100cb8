package obj

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/prefabs"
)

// PlacementValidator decides whether a candidate position for a cargo item
// is legal: connected to the graph, free of terrain overlap, and not
// excessively overlapping the composite. Every check is a pure read-only
// query; the placement preview and debug HUD consume them directly.
type PlacementValidator struct {
	world  *CollisionWorld
	graph  *AttachGraph
	root   Root
	tuning *prefabs.TuningSpec
}

func NewPlacementValidator(world *CollisionWorld, graph *AttachGraph, root Root, tuning *prefabs.TuningSpec) *PlacementValidator {
	if tuning == nil {
		tuning = prefabs.DefaultTuning()
	}
	return &PlacementValidator{world: world, graph: graph, root: root, tuning: tuning}
}

// IsValid reports whether item may be attached with its center at pos. A
// position is valid iff it has a connection target in range, does not
// collide with terrain, and does not excessively overlap existing members
// or the root.
func (v *PlacementValidator) IsValid(pos cp.Vector, item *CargoItem) bool {
	if v == nil || item == nil {
		return false
	}
	side := v.DetermineSide(pos)
	if _, ok := v.NearestConnectionTarget(pos, side); !ok {
		return false
	}
	if v.WouldCollide(item, pos) {
		return false
	}
	if v.WouldOverlapExcessively(item, pos) {
		return false
	}
	return true
}

// WouldCollide checks the candidate bounds against the environment,
// excluding the root's shapes, the item itself, attached cargo and proxy
// shadows. Only terrain counts as blocking.
func (v *PlacementValidator) WouldCollide(item *CargoItem, pos cp.Vector) bool {
	if v == nil || v.world == nil || item == nil {
		return false
	}
	r := item.RectAt(pos)
	for _, shape := range v.world.ShapesIn(r) {
		if shape == item.shape {
			continue
		}
		switch ClassOf(shape) {
		case ClassMule, ClassCargoAttached, ClassProxy:
			continue
		case ClassTerrain:
			return true
		}
	}
	return false
}

// WouldOverlapExcessively rejects candidates that bury the item inside the
// root body or inside an already attached member. The thresholds are
// fractions of the candidate item's own area.
func (v *PlacementValidator) WouldOverlapExcessively(item *CargoItem, pos cp.Vector) bool {
	if v == nil || item == nil {
		return false
	}
	candidate := item.RectAt(pos)
	area := candidate.Area()
	if area <= 0 {
		return false
	}

	if v.root != nil {
		if candidate.IntersectionArea(v.root.Bounds())/area > v.tuning.OverlapMaxVsMule {
			return true
		}
	}
	if v.graph != nil {
		for _, member := range v.graph.AllMembers() {
			if member == item {
				continue
			}
			if candidate.IntersectionArea(member.Rect())/area > v.tuning.OverlapMaxVsCargo {
				return true
			}
		}
	}
	return false
}

// NearestConnectionTarget returns what an item placed at pos would connect
// to on the given side: the closest group member in range, or (nil, true)
// for the anchor point itself. ok=false means the position is floating and
// therefore invalid.
func (v *PlacementValidator) NearestConnectionTarget(pos cp.Vector, side Side) (*CargoItem, bool) {
	if v == nil || v.graph == nil {
		return nil, false
	}
	return v.graph.nearestConnection(pos, side)
}

// DetermineSide classifies a world position against the three anchor
// points: nearest anchor point when one is within the connection distance,
// otherwise an angular sector test around the root (right ±45° from
// horizontal, top 45°–135°, left otherwise).
func (v *PlacementValidator) DetermineSide(pos cp.Vector) Side {
	if v == nil || v.graph == nil {
		return SideRight
	}

	best := SideRight
	bestDist := math.Inf(1)
	for _, side := range Sides {
		d := v.graph.AnchorWorld(side).Distance(pos)
		if d < bestDist {
			best = side
			bestDist = d
		}
	}
	if bestDist <= v.tuning.ConnectionDistance {
		return best
	}

	origin := cp.Vector{}
	if v.root != nil {
		origin = v.root.Position()
	}
	delta := pos.Sub(origin)
	// screen coordinates: positive Y is down, so "up" is negative Y
	angle := math.Atan2(-delta.Y, delta.X)
	deg := angle * 180 / math.Pi
	switch {
	case deg >= -45 && deg <= 45:
		return SideRight
	case deg > 45 && deg < 135:
		return SideTop
	default:
		return SideLeft
	}
}
