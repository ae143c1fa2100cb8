package obj

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/common"
	"github.com/quendale/packmule/prefabs"
)

// blockSignal is a short-lived directional "blocked" flag fed by proxy
// shadow contacts. It auto-clears unless refreshed.
type blockSignal struct {
	dir    cp.Vector
	frames int
}

// Mover is the per-tick movement corrector for the composite shape. The
// physics engine only resolves the root body; the mover predicts, for
// every attached item, whether the next step or rotation would push it
// into terrain and clamps velocity or rotation before integration.
type Mover struct {
	world  *CollisionWorld
	graph  *AttachGraph
	tuning *prefabs.TuningSpec

	body *cp.Body

	blocks []blockSignal

	lastStableY float64
	haveStable  bool

	itemGrounded bool
	horizBlocked bool
	vertBlocked  bool
}

func NewMover(world *CollisionWorld, graph *AttachGraph, tuning *prefabs.TuningSpec) *Mover {
	if tuning == nil {
		tuning = prefabs.DefaultTuning()
	}
	return &Mover{world: world, graph: graph, tuning: tuning}
}

// AttachBody hands the mover the root physics body. Composition-root call.
func (mv *Mover) AttachBody(body *cp.Body) {
	if mv == nil {
		return
	}
	mv.body = body
	if body != nil {
		mv.lastStableY = body.Position().Y
		mv.haveStable = true
	}
}

// ReportBlocked records a directional blocking signal from a proxy shadow
// contact. Signals pointing the same way refresh instead of stacking.
func (mv *Mover) ReportBlocked(dir cp.Vector) {
	if mv == nil {
		return
	}
	if dir.Length() < 1e-6 {
		return
	}
	dir = dir.Normalize()
	for i := range mv.blocks {
		if mv.blocks[i].dir.Dot(dir) > 0.9 {
			mv.blocks[i].frames = mv.tuning.BlockClearFrames
			return
		}
	}
	mv.blocks = append(mv.blocks, blockSignal{dir: dir, frames: mv.tuning.BlockClearFrames})
}

// TickTimers advances the auto-clear countdowns once per tick.
func (mv *Mover) TickTimers() {
	if mv == nil {
		return
	}
	kept := mv.blocks[:0]
	for _, b := range mv.blocks {
		b.frames--
		if b.frames > 0 {
			kept = append(kept, b)
		}
	}
	mv.blocks = kept
}

// blockedToward reports whether any live proxy signal opposes motion in
// direction dir.
func (mv *Mover) blockedToward(dir cp.Vector) bool {
	if mv == nil {
		return false
	}
	for _, b := range mv.blocks {
		if b.dir.Dot(dir) > 0 {
			return true
		}
	}
	return false
}

// CorrectVelocity runs the composite clipping check for an intended
// velocity and returns the clamped velocity. Side effects: positional
// correction of the root body when an item already penetrates terrain,
// and the grounded flag when a vertical block points down.
func (mv *Mover) CorrectVelocity(vel cp.Vector) cp.Vector {
	if mv == nil {
		return vel
	}
	mv.itemGrounded = false
	mv.horizBlocked = false
	mv.vertBlocked = false

	// proxy shadow signals veto aligned components outright
	for _, b := range mv.blocks {
		if vel.Dot(b.dir) <= 0 {
			continue
		}
		if common.Abs(b.dir.X) >= common.Abs(b.dir.Y) {
			vel.X = 0
		} else {
			vel.Y = 0
		}
	}

	if mv.graph == nil || mv.world == nil {
		return vel
	}

	var maxPenX float64
	for _, item := range mv.graph.AllMembers() {
		cur := item.Rect()
		pred := mv.expandToward(cur.Shift(vel.X, vel.Y), vel)

		for _, bb := range mv.world.TerrainHits(pred) {
			h, v := classifyOverlap(pred, cur, bb, vel, mv.tuning.DeepOverlap)
			mv.horizBlocked = mv.horizBlocked || h
			mv.vertBlocked = mv.vertBlocked || v
		}
		// second query at the current bounds catches pre-existing
		// penetration the predicted sweep would miss
		for _, bb := range mv.world.TerrainHits(cur) {
			pen := penetrationX(cur, bb)
			if pen > maxPenX {
				maxPenX = pen
			}
			mv.horizBlocked = true
		}
	}

	if mv.horizBlocked {
		if maxPenX > 0 && mv.body != nil && vel.X != 0 {
			mv.correctPosition(vel, maxPenX)
		}
		vel.X = 0
	}
	if mv.vertBlocked {
		if vel.Y > 0 {
			// moving down into terrain through an item: the composite
			// stands on it
			mv.itemGrounded = true
		}
		// upward hits are ceiling hits; no grounded change
		vel.Y = 0
	}
	return vel
}

// expandToward grows a predicted rect in the travel direction. The
// horizontal margin is deliberately larger than the vertical one: walking
// cargo into a wall is the primary clipping failure, sinking through the
// floor is already softened by ground handling.
func (mv *Mover) expandToward(r common.Rect, vel cp.Vector) common.Rect {
	hm := mv.tuning.HorizontalMargin
	vm := mv.tuning.VerticalMargin
	if vel.X > 0 {
		r.Width += hm
	} else if vel.X < 0 {
		r.X -= hm
		r.Width += hm
	}
	if vel.Y > 0 {
		r.Height += vm
	} else if vel.Y < 0 {
		r.Y -= vm
		r.Height += vm
	}
	return r
}

// classifyOverlap decides whether a terrain bb blocks horizontal motion,
// vertical motion, or both, from the overlap geometry and the travel
// direction.
func classifyOverlap(pred, cur common.Rect, bb cp.BB, vel cp.Vector, deep float64) (horizontal, vertical bool) {
	obstacle := common.Rect{X: bb.L, Y: bb.B, Width: bb.R - bb.L, Height: bb.T - bb.B}
	ow := math.Min(pred.X+pred.Width, obstacle.X+obstacle.Width) - math.Max(pred.X, obstacle.X)
	oh := math.Min(pred.Y+pred.Height, obstacle.Y+obstacle.Height) - math.Max(pred.Y, obstacle.Y)
	if ow <= 0 || oh <= 0 {
		return false, false
	}

	dx := obstacle.CenterX() - cur.CenterX()
	dy := obstacle.CenterY() - cur.CenterY()

	towardX := vel.X != 0 && common.Sign(dx) == common.Sign(vel.X)
	towardY := vel.Y != 0 && common.Sign(dy) == common.Sign(vel.Y)

	// deep on both axes blocks both; otherwise the thinner overlap axis
	// names the contact face
	if ow > deep && oh > deep {
		return towardX, towardY
	}
	if ow < oh {
		return towardX, false
	}
	return false, towardY
}

// penetrationX measures how far r already overlaps bb horizontally.
func penetrationX(r common.Rect, bb cp.BB) float64 {
	ow := math.Min(r.X+r.Width, bb.R) - math.Max(r.X, bb.L)
	oh := math.Min(r.Y+r.Height, bb.T) - math.Max(r.Y, bb.B)
	if ow <= 0 || oh <= 0 {
		return 0
	}
	// a sliver of vertical overlap is a step edge, not a wall
	if oh < 1 {
		return 0
	}
	return ow
}

// correctPosition applies the minimal positional correction opposite the
// travel direction, keeps the vertical coordinate from the correction
// itself, and nudges the body back up toward the last stable height when
// it has sunk below it.
func (mv *Mover) correctPosition(vel cp.Vector, penX float64) {
	pos := mv.body.Position()
	preY := pos.Y
	pos.X -= common.Sign(vel.X) * penX
	pos.Y = preY
	if mv.haveStable {
		drift := pos.Y - mv.lastStableY
		if drift > mv.tuning.StableDriftMargin {
			pos.Y -= math.Min(drift, 1.0)
		}
	}
	mv.body.SetPosition(pos)
}

// UpdateStable records the root's height as the last known stable
// position. Called when the composite is grounded and unblocked.
func (mv *Mover) UpdateStable() {
	if mv == nil || mv.body == nil {
		return
	}
	if mv.horizBlocked {
		return
	}
	mv.lastStableY = mv.body.Position().Y
	mv.haveStable = true
}

// HorizontallyBlocked reports whether the last CorrectVelocity call
// flagged a horizontal block.
func (mv *Mover) HorizontallyBlocked() bool {
	return mv != nil && mv.horizBlocked
}

// ItemGrounded reports whether the last CorrectVelocity call grounded the
// composite through an attached item.
func (mv *Mover) ItemGrounded() bool {
	return mv != nil && mv.itemGrounded
}

// CompositeGrounded casts short rays down from each attached item's bottom
// corners and center; terrain under any of them grounds the whole
// composite even when the root itself is airborne.
func (mv *Mover) CompositeGrounded() bool {
	if mv == nil || mv.graph == nil || mv.world == nil {
		return false
	}
	dist := mv.tuning.GroundCastDistance
	for _, item := range mv.graph.AllMembers() {
		r := item.Rect()
		bottom := r.Y + r.Height
		points := [3]cp.Vector{
			{X: r.X + 1, Y: bottom},
			{X: r.CenterX(), Y: bottom},
			{X: r.X + r.Width - 1, Y: bottom},
		}
		for _, p := range points {
			if mv.world.CastDownHitsTerrain(p, dist) {
				return true
			}
		}
	}
	return false
}

// SafeRotation binary-searches for the largest rotation magnitude, between
// zero and target, at which no attached item's bounds overlap terrain.
func (mv *Mover) SafeRotation(target float64) float64 {
	if mv == nil || target == 0 {
		return target
	}
	if mv.graph == nil || mv.graph.Len() == 0 {
		return target
	}
	if mv.rotationSafe(target) {
		return target
	}

	lo, hi := 0.0, target
	for i := 0; i < 5; i++ {
		mid := (lo + hi) / 2
		if mv.rotationSafe(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func (mv *Mover) rotationSafe(angle float64) bool {
	if mv.world == nil {
		return true
	}
	for _, item := range mv.graph.AllMembers() {
		if mv.world.TerrainOverlaps(mv.graph.MemberRectAt(item, angle)) {
			return false
		}
	}
	return true
}
