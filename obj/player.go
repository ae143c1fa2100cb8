package obj

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/common"
	"github.com/quendale/packmule/prefabs"
	"golang.org/x/image/colornames"
)

// playerState is the interface each concrete locomotion state implements.
type playerState interface {
	Enter(p *Player)
	Exit(p *Player)
	HandleInput(p *Player)
	OnPhysics(p *Player)
	Name() string
}

// setState helper switches states and calls Enter.
func (p *Player) setState(s playerState) {
	p.state.Exit(p)
	p.state = s
	p.state.Enter(p)
}

// Concrete states
type idleState struct{}

func (idleState) Name() string    { return "idle" }
func (idleState) Enter(p *Player) {}
func (idleState) Exit(p *Player)  {}
func (idleState) HandleInput(p *Player) {
	if p.Input.JumpPressed && p.grounded {
		p.setState(stateJumping)
		return
	}
	if p.Input.MoveX != 0 {
		p.setState(stateRunning)
	}
}
func (idleState) OnPhysics(p *Player) {
	if !p.grounded {
		p.setState(stateFalling)
	}
}

type runningState struct{}

func (runningState) Name() string    { return "running" }
func (runningState) Enter(p *Player) {}
func (runningState) Exit(p *Player)  {}
func (runningState) HandleInput(p *Player) {
	if p.Input.JumpPressed && p.grounded {
		p.setState(stateJumping)
		return
	}
	if p.Input.MoveX == 0 {
		p.setState(stateIdle)
	}
}
func (runningState) OnPhysics(p *Player) {
	if !p.grounded {
		p.setState(stateFalling)
	}
}

type jumpingState struct{}

func (jumpingState) Name() string { return "jumping" }
func (jumpingState) Enter(p *Player) {
	if p.body != nil && !p.Frozen() {
		impulse := p.spec.JumpImpulse
		if p.weight != nil {
			// a heavier load dampens the hop but never kills it
			total := p.weight.Snapshot().Total
			base := p.tuning.BaseWeight
			if base <= 0 {
				base = 1
			}
			impulse *= common.Clamp(base/total, 0.55, 1)
		}
		p.body.ApplyImpulseAtLocalPoint(cp.Vector{X: 0, Y: impulse}, cp.Vector{})
	}
}
func (jumpingState) Exit(p *Player)        {}
func (jumpingState) HandleInput(p *Player) {}
func (jumpingState) OnPhysics(p *Player) {
	if p.VelocityY >= 0 {
		p.setState(stateFalling)
	}
}

type fallingState struct{}

func (fallingState) Name() string          { return "falling" }
func (fallingState) Enter(p *Player)       {}
func (fallingState) Exit(p *Player)        {}
func (fallingState) HandleInput(p *Player) {}
func (fallingState) OnPhysics(p *Player) {
	if p.grounded {
		if p.Input != nil && p.Input.MoveX != 0 {
			p.setState(stateRunning)
		} else {
			p.setState(stateIdle)
		}
	}
}

// singletons for each state to avoid allocating on transitions
var (
	stateIdle    playerState = &idleState{}
	stateRunning playerState = &runningState{}
	stateJumping playerState = &jumpingState{}
	stateFalling playerState = &fallingState{}
)

// Player is the controlled body and the root of the cargo composite. The
// attachment graph, placement validator, mover and weight model are wired
// in by the composition root; the player only orchestrates them per tick.
type Player struct {
	common.Rect
	StartX, StartY float64
	VelocityX      float64
	VelocityY      float64

	Input *Input

	spec   *prefabs.MuleSpec
	tuning *prefabs.TuningSpec

	world     *CollisionWorld
	graph     *AttachGraph
	validator *PlacementValidator
	mover     *Mover
	weight    *WeightModel
	shadows   *ShadowManager

	body  *cp.Body
	shape *cp.Shape

	items []*CargoItem
	// attachOrder tracks attachment recency for the quick-detach key
	attachOrder []*CargoItem

	state       playerState
	grounded    bool
	facingRight bool

	// countdown timers, decremented once per tick
	freezeFrames   int
	actionCooldown int

	aimMode bool
	// aim candidate, refreshed each tick while aiming
	aimItem  *CargoItem
	aimPos   cp.Vector
	aimValid bool

	img *ebiten.Image
}

func NewPlayer(x, y float64, input *Input, world *CollisionWorld, spec *prefabs.MuleSpec, tuning *prefabs.TuningSpec) *Player {
	if spec == nil {
		spec = &prefabs.MuleSpec{Width: 32, Height: 48, MoveSpeed: 3, Accel: 0.3, JumpImpulse: -11, PickupRadius: 96}
	}
	if tuning == nil {
		tuning = prefabs.DefaultTuning()
	}
	p := &Player{
		Rect: common.Rect{
			X:      x,
			Y:      y,
			Width:  spec.Width,
			Height: spec.Height,
		},
		StartX:      x,
		StartY:      y,
		Input:       input,
		spec:        spec,
		tuning:      tuning,
		world:       world,
		state:       stateIdle,
		facingRight: true,
	}
	p.state.Enter(p)
	if world != nil {
		world.AttachMule(p)
	}
	return p
}

// Wire connects the carry-system collaborators. Composition-root call,
// once, after construction.
func (p *Player) Wire(graph *AttachGraph, validator *PlacementValidator, mover *Mover, weight *WeightModel, shadows *ShadowManager) {
	p.graph = graph
	p.validator = validator
	p.mover = mover
	p.weight = weight
	p.shadows = shadows
	if mover != nil {
		mover.AttachBody(p.body)
	}
}

// SetCargoItems hands the player the level's cargo pool to pick from.
func (p *Player) SetCargoItems(items []*CargoItem) {
	p.items = items
}

// Position returns the body center in world coordinates.
func (p *Player) Position() cp.Vector {
	if p == nil || p.body == nil {
		return cp.Vector{}
	}
	return p.body.Position()
}

// Angle returns the body rotation in radians.
func (p *Player) Angle() float64 {
	if p == nil || p.body == nil {
		return 0
	}
	return p.body.Angle()
}

func (p *Player) Bounds() common.Rect {
	if p == nil {
		return common.Rect{}
	}
	return p.Rect
}

// Freeze suppresses movement input for the given number of ticks. Attach
// uses it so the snap-into-place doesn't fight the same tick's physics
// resolution.
func (p *Player) Freeze(frames int) {
	if p == nil {
		return
	}
	if frames > p.freezeFrames {
		p.freezeFrames = frames
	}
}

func (p *Player) Frozen() bool {
	return p != nil && p.freezeFrames > 0
}

func (p *Player) Grounded() bool {
	return p != nil && p.grounded
}

func (p *Player) AimMode() bool {
	return p != nil && p.aimMode
}

// AimPreview returns the current attach candidate while aiming: the item
// under consideration, the snap position, and whether placement would be
// accepted.
func (p *Player) AimPreview() (*CargoItem, cp.Vector, bool) {
	if p == nil {
		return nil, cp.Vector{}, false
	}
	return p.aimItem, p.aimPos, p.aimValid
}

func (p *Player) Update() {
	if p.Input != nil {
		p.handleCarryInput()
		p.state.HandleInput(p)

		if p.Input.MoveX < 0 {
			p.facingRight = false
		} else if p.Input.MoveX > 0 {
			p.facingRight = true
		}
	}

	p.applyPhysics()
	p.state.OnPhysics(p)

	if p.freezeFrames > 0 {
		p.freezeFrames--
	}
	if p.actionCooldown > 0 {
		p.actionCooldown--
	}
}

func (p *Player) handleCarryInput() {
	if p.Input.CarryPressed && p.actionCooldown == 0 {
		p.aimMode = !p.aimMode
		p.aimItem = nil
		p.aimValid = false
	}

	if p.aimMode {
		p.updateAimPreview()
		if p.Input.AttackPressed && p.actionCooldown == 0 {
			p.tryAttachAtAim()
		}
		if p.Input.CancelPressed && p.actionCooldown == 0 {
			p.tryCascadeDetachAt(p.Input.MouseWorldX, p.Input.MouseWorldY)
		}
	}

	if p.Input.DetachPressed && p.actionCooldown == 0 {
		p.detachMostRecent()
	}
}

// updateAimPreview picks the nearest free cargo item to the cursor and
// validates the cursor position as its snap point.
func (p *Player) updateAimPreview() {
	p.aimItem = nil
	p.aimValid = false

	cursor := cp.Vector{X: p.Input.MouseWorldX, Y: p.Input.MouseWorldY}
	p.aimPos = cursor

	var best *CargoItem
	bestDist := p.spec.PickupRadius
	for _, item := range p.items {
		if item == nil || item.Attached() {
			continue
		}
		d := item.Position().Distance(cursor)
		if d <= bestDist {
			best = item
			bestDist = d
		}
	}
	if best == nil {
		return
	}
	// the item must also be within reach of the body itself
	if best.Position().Distance(p.Position()) > p.spec.PickupRadius*2 {
		return
	}
	p.aimItem = best
	if p.validator != nil {
		p.aimValid = p.validator.IsValid(cursor, best)
	}
}

func (p *Player) tryAttachAtAim() {
	if p.graph == nil || p.validator == nil || p.aimItem == nil {
		return
	}
	p.actionCooldown = p.tuning.AttachCooldownFrames
	if !p.aimValid {
		// surfaces as a failure notification, never an error
		p.graph.notifyFailed(p.aimItem)
		return
	}
	side := p.validator.DetermineSide(p.aimPos)
	if p.graph.Attach(p.aimItem, p.aimPos, side) {
		p.attachOrder = append(p.attachOrder, p.aimItem)
		p.aimItem = nil
		p.aimValid = false
	}
}

func (p *Player) tryCascadeDetachAt(mx, my float64) {
	if p.graph == nil {
		return
	}
	point := cp.Vector{X: mx, Y: my}
	for _, item := range p.graph.AllMembers() {
		r := item.Rect()
		if point.X >= r.X && point.X <= r.X+r.Width && point.Y >= r.Y && point.Y <= r.Y+r.Height {
			p.actionCooldown = p.tuning.AttachCooldownFrames
			p.forgetDetached(p.graph.DetachCascade(item))
			return
		}
	}
}

func (p *Player) detachMostRecent() {
	if p.graph == nil || len(p.attachOrder) == 0 {
		return
	}
	p.actionCooldown = p.tuning.AttachCooldownFrames
	last := p.attachOrder[len(p.attachOrder)-1]
	p.forgetDetached(p.graph.DetachCascade(last))
}

func (p *Player) forgetDetached(removed []*CargoItem) {
	if len(removed) == 0 {
		return
	}
	gone := make(map[*CargoItem]bool, len(removed))
	for _, item := range removed {
		gone[item] = true
	}
	kept := p.attachOrder[:0]
	for _, item := range p.attachOrder {
		if !gone[item] {
			kept = append(kept, item)
		}
	}
	p.attachOrder = kept
}

func (p *Player) applyPhysics() {
	if p.world == nil || p.body == nil {
		return
	}

	if p.weight != nil {
		p.weight.Recompute()
	}
	if p.mover != nil {
		p.mover.TickTimers()
	}

	moveX := 0.0
	if p.Input != nil && p.freezeFrames == 0 {
		moveX = p.Input.MoveX
	}
	dir := common.Sign(moveX)

	vel := p.body.Velocity()
	speedMult, accelMult := 1.0, 1.0
	if p.weight != nil {
		speedMult = p.weight.SpeedMultiplier(dir)
		accelMult = p.weight.AccelerationMultiplier(dir)
	}
	targetVX := moveX * p.spec.MoveSpeed * speedMult
	accel := p.spec.Accel * accelMult
	if moveX == 0 {
		// brake harder than we accelerate
		accel = p.spec.Accel * 1.5
	}
	vel.X = approach(vel.X, targetVX, accel)

	if p.mover != nil {
		vel = p.mover.CorrectVelocity(vel)
	}
	p.body.SetVelocityVector(vel)

	p.world.BeginStep()
	p.world.Step(1.0)

	if p.graph != nil {
		p.graph.SyncPoses()
	}
	if p.shadows != nil {
		p.shadows.Update()
		p.shadows.SyncLate()
	}

	itemGrounded := false
	if p.mover != nil {
		itemGrounded = p.mover.CompositeGrounded() || p.mover.ItemGrounded()
	}
	p.grounded = p.world.IsGrounded() || itemGrounded

	v := p.body.Velocity()
	if itemGrounded && !p.world.IsGrounded() && v.Y > 0 {
		// standing on cargo that stands on terrain: stop sinking
		p.body.SetVelocity(v.X, 0)
		v = p.body.Velocity()
	}
	p.VelocityX = v.X
	p.VelocityY = v.Y

	if p.grounded && p.mover != nil {
		p.mover.UpdateStable()
	}

	p.applySway(moveX)

	pos := p.body.Position()
	p.Rect.X = pos.X - p.Width/2.0
	p.Rect.Y = pos.Y - p.Height/2.0
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) {
		p.resetToSpawn()
	}
}

// applySway eases the body toward the passive weight tilt when there is
// no steering input, clamped to the largest rotation the composite can
// take without overlapping terrain.
func (p *Player) applySway(moveX float64) {
	target := 0.0
	if moveX == 0 && !p.aimMode && p.weight != nil {
		target = p.weight.PassiveSwayAngle()
	}
	angle := common.Lerp(p.body.Angle(), target, 0.15)
	if p.mover != nil {
		angle = p.mover.SafeRotation(angle)
	}
	p.body.SetAngle(angle)
	p.body.SetAngularVelocity(0)
}

func approach(v, target, step float64) float64 {
	if v < target {
		v += step
		if v > target {
			v = target
		}
	} else if v > target {
		v -= step
		if v < target {
			v = target
		}
	}
	return v
}

func (p *Player) GetState() string {
	if p.state != nil {
		return p.state.Name()
	}
	return "nil"
}

func (p *Player) resetToSpawn() {
	p.Rect.X = p.StartX
	p.Rect.Y = p.StartY
	p.VelocityX = 0
	p.VelocityY = 0
	p.setState(stateIdle)
	if p.body != nil {
		p.body.SetPosition(cp.Vector{X: p.StartX + p.Width/2, Y: p.StartY + p.Height/2})
		p.body.SetVelocity(0, 0)
		p.body.SetAngle(0)
	}
}

func (p *Player) Draw(screen *ebiten.Image, camX, camY, zoom float64) {
	if screen == nil {
		return
	}
	if p.img == nil {
		p.img = ebiten.NewImage(int(p.Width), int(p.Height))
		p.img.Fill(colornames.Crimson)
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(-p.Width/2, -p.Height/2)
	op.GeoM.Rotate(p.Angle())
	pos := p.Position()
	op.GeoM.Scale(zoom, zoom)
	op.GeoM.Translate((pos.X-camX)*zoom, (pos.Y-camY)*zoom)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(p.img, op)
}
