package obj

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/common"
)

const (
	defaultCargoWeight = 1.0
	// fallback bounding box for a cargo prefab that omits its size
	defaultCargoSize = float64(common.TileSize)
)

// CargoItem is an entity eligible for attachment. It lives as a free
// dynamic body until attached; while attached its simulation is suspended
// (kinematic body, sensor shape) and its pose is driven by the attachment
// graph.
type CargoItem struct {
	Kind   string
	Width  float64
	Height float64
	Weight float64
	Color  color.RGBA

	world *CollisionWorld
	body  *cp.Body
	shape *cp.Shape

	origClass Classification
	attached  bool
}

// NewCargoItem creates a free cargo body at world position (x, y) (center)
// and adds it to the space. Zero or negative weight and size fall back to
// defaults instead of failing.
func NewCargoItem(world *CollisionWorld, kind string, x, y, width, height, weight float64, col color.RGBA) *CargoItem {
	if world == nil || world.space == nil {
		return nil
	}
	if width <= 0 {
		width = defaultCargoSize
	}
	if height <= 0 {
		height = defaultCargoSize
	}
	if weight <= 0 {
		weight = defaultCargoWeight
	}

	mass := weight
	body := cp.NewBody(mass, cp.MomentForBox(mass, width, height))
	body.SetPosition(cp.Vector{X: x, Y: y})

	shape := cp.NewBox(body, width, height, 0)
	shape.SetFriction(0.7)
	shape.SetElasticity(0.1)
	shape.SetCollisionType(collisionTypeCargo)
	setClass(shape, ClassCargoFree)

	world.space.AddBody(body)
	world.space.AddShape(shape)

	return &CargoItem{
		Kind:      kind,
		Width:     width,
		Height:    height,
		Weight:    weight,
		Color:     col,
		world:     world,
		body:      body,
		shape:     shape,
		origClass: ClassCargoFree,
	}
}

func (c *CargoItem) Attached() bool {
	return c != nil && c.attached
}

// Angle returns the item's body rotation in radians.
func (c *CargoItem) Angle() float64 {
	if c == nil || c.body == nil {
		return 0
	}
	return c.body.Angle()
}

// Position returns the item's body center in world coordinates.
func (c *CargoItem) Position() cp.Vector {
	if c == nil || c.body == nil {
		return cp.Vector{}
	}
	return c.body.Position()
}

// Rect returns the item's axis-aligned bounds at its current pose. Body
// rotation is folded in by taking the rotated corners' extents.
func (c *CargoItem) Rect() common.Rect {
	return c.RectAt(c.Position())
}

// RectAt returns the item's bounds as if its center were at pos, keeping
// its current rotation.
func (c *CargoItem) RectAt(pos cp.Vector) common.Rect {
	if c == nil {
		return common.Rect{}
	}
	angle := 0.0
	if c.body != nil {
		angle = c.body.Angle()
	}
	return rotatedAABB(pos, c.Width, c.Height, angle)
}

// rotatedAABB computes the axis-aligned bounds of a w×h box centered at pos
// rotated by angle radians.
func rotatedAABB(pos cp.Vector, w, h, angle float64) common.Rect {
	if angle == 0 {
		return common.Rect{X: pos.X - w/2, Y: pos.Y - h/2, Width: w, Height: h}
	}
	rot := cp.ForAngle(angle)
	hw, hh := w/2, h/2
	corners := [4]cp.Vector{
		{X: -hw, Y: -hh}, {X: hw, Y: -hh}, {X: hw, Y: hh}, {X: -hw, Y: hh},
	}
	minX, minY := pos.X, pos.Y
	maxX, maxY := pos.X, pos.Y
	for _, corner := range corners {
		p := pos.Add(corner.Rotate(rot))
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return common.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// SetPose drives the item's world pose while its simulation is suspended.
func (c *CargoItem) SetPose(pos cp.Vector, angle float64) {
	if c == nil || c.body == nil {
		return
	}
	c.body.SetPosition(pos)
	c.body.SetAngle(angle)
}

// suspendSimulation switches the body kinematic and the shape to a sensor
// so the physics engine stops resolving it, and re-tags the shape so
// environment queries exclude it.
func (c *CargoItem) suspendSimulation() {
	if c == nil || c.body == nil || c.shape == nil {
		return
	}
	c.origClass = ClassOf(c.shape)
	c.body.SetVelocity(0, 0)
	c.body.SetAngularVelocity(0)
	c.body.SetType(cp.BODY_KINEMATIC)
	c.shape.SetSensor(true)
	setClass(c.shape, ClassCargoAttached)
	c.attached = true
}

// resumeSimulation restores dynamic simulation and the original
// classification, then applies a detach impulse.
func (c *CargoItem) resumeSimulation(impulse cp.Vector) {
	if c == nil || c.body == nil || c.shape == nil {
		return
	}
	c.shape.SetSensor(false)
	setClass(c.shape, c.origClass)
	c.body.SetType(cp.BODY_DYNAMIC)
	c.body.SetAngularVelocity(0)
	c.body.ApplyImpulseAtWorldPoint(impulse, c.body.Position())
	c.attached = false
}

// RemoveFromSpace takes the item out of the physics space entirely (level
// teardown).
func (c *CargoItem) RemoveFromSpace() {
	if c == nil || c.world == nil || c.world.space == nil {
		return
	}
	if c.shape != nil {
		c.world.space.RemoveShape(c.shape)
	}
	if c.body != nil {
		c.world.space.RemoveBody(c.body)
	}
}

func (c *CargoItem) Draw(screen *ebiten.Image, camX, camY, zoom float64) {
	if c == nil || screen == nil {
		return
	}
	r := c.Rect()
	col := c.Color
	if col.A == 0 {
		col = color.RGBA{R: 0xb5, G: 0x83, B: 0x3f, A: 0xff}
	}
	vector.DrawFilledRect(screen,
		float32((r.X-camX)*zoom), float32((r.Y-camY)*zoom),
		float32(r.Width*zoom), float32(r.Height*zoom),
		col, false)
	if c.attached {
		vector.StrokeRect(screen,
			float32((r.X-camX)*zoom), float32((r.Y-camY)*zoom),
			float32(r.Width*zoom), float32(r.Height*zoom),
			2, color.RGBA{R: 0xff, G: 0xe0, B: 0x82, A: 0xff}, false)
	}
}
