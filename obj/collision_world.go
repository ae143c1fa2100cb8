package obj

import (
	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/common"
)

// blockReporter receives directional blocking signals produced by proxy
// shadow contacts. The composite mover implements it.
type blockReporter interface {
	ReportBlocked(dir cp.Vector)
}

// CollisionWorld owns the chipmunk space and is the single entry point for
// environment collision queries. All query methods are read-only and filter
// by Classification rather than by tag strings.
type CollisionWorld struct {
	level *Level
	space *cp.Space

	muleBody    *cp.Body
	muleShape   *cp.Shape
	groundShape *cp.Shape

	grounded    bool
	groundGrace int

	blocks blockReporter

	handlersReady bool
}

func NewCollisionWorld(level *Level) *CollisionWorld {
	space := cp.NewSpace()
	space.Iterations = 20
	space.SetGravity(cp.Vector{X: 0, Y: common.Gravity})
	cw := &CollisionWorld{level: level, space: space}
	cw.buildStaticShapes()
	return cw
}

func (cw *CollisionWorld) Space() *cp.Space {
	if cw == nil {
		return nil
	}
	return cw.space
}

// SetBlockReporter wires the consumer of proxy contact signals. Called once
// by the composition root.
func (cw *CollisionWorld) SetBlockReporter(r blockReporter) {
	if cw != nil {
		cw.blocks = r
	}
}

func (cw *CollisionWorld) buildStaticShapes() {
	if cw == nil || cw.space == nil || cw.level == nil {
		return
	}
	if len(cw.level.Layers) == 0 {
		return
	}

	for layerIdx, layer := range cw.level.Layers {
		if layer == nil || len(layer) != cw.level.Width*cw.level.Height {
			continue
		}
		if cw.level.LayerMeta == nil || layerIdx >= len(cw.level.LayerMeta) || !cw.level.LayerMeta[layerIdx].HasPhysics {
			continue
		}
		// Merge contiguous solid tiles into larger rectangles so the physics
		// world uses fewer static boxes instead of one box per tile.
		processed := make([]bool, cw.level.Width*cw.level.Height)
		for y := 0; y < cw.level.Height; y++ {
			for x := 0; x < cw.level.Width; x++ {
				idx := y*cw.level.Width + x
				if processed[idx] {
					continue
				}
				if layer[idx] == 0 {
					processed[idx] = true
					continue
				}

				w := 1
				for x+w < cw.level.Width {
					idx2 := y*cw.level.Width + (x + w)
					if processed[idx2] || layer[idx2] == 0 {
						break
					}
					w++
				}

				h := 1
			heightLoop:
				for y+h < cw.level.Height {
					for xi := x; xi < x+w; xi++ {
						idx2 := (y+h)*cw.level.Width + xi
						if processed[idx2] || layer[idx2] == 0 {
							break heightLoop
						}
					}
					h++
				}

				x0 := float64(x * common.TileSize)
				y0 := float64(y * common.TileSize)
				cw.AddStaticBox(common.Rect{
					X:      x0,
					Y:      y0,
					Width:  float64(w * common.TileSize),
					Height: float64(h * common.TileSize),
				})

				for yy := y; yy < y+h; yy++ {
					for xx := x; xx < x+w; xx++ {
						processed[yy*cw.level.Width+xx] = true
					}
				}
			}
		}
	}

	// world bounds matching the level size (pixels)
	worldW := float64(cw.level.Width * common.TileSize)
	worldH := float64(cw.level.Height * common.TileSize)
	if worldW > 0 && worldH > 0 {
		thickness := 1.0
		segments := []struct {
			a cp.Vector
			b cp.Vector
		}{
			{a: cp.Vector{X: 0, Y: 0}, b: cp.Vector{X: worldW, Y: 0}},
			{a: cp.Vector{X: 0, Y: worldH}, b: cp.Vector{X: worldW, Y: worldH}},
			{a: cp.Vector{X: 0, Y: 0}, b: cp.Vector{X: 0, Y: worldH}},
			{a: cp.Vector{X: worldW, Y: 0}, b: cp.Vector{X: worldW, Y: worldH}},
		}
		for _, seg := range segments {
			shape := cp.NewSegment(cw.space.StaticBody, seg.a, seg.b, thickness)
			shape.SetFriction(0.8)
			shape.SetCollisionType(collisionTypeSolid)
			setClass(shape, ClassTerrain)
			cw.space.AddShape(shape)
		}
	}
}

// AddStaticBox adds a terrain-classified static box to the space. The level
// builder uses it for merged tile rectangles; tests use it to stand up
// obstacles without a level file.
func (cw *CollisionWorld) AddStaticBox(r common.Rect) *cp.Shape {
	if cw == nil || cw.space == nil {
		return nil
	}
	bb := cp.BB{L: r.X, B: r.Y, R: r.X + r.Width, T: r.Y + r.Height}
	shape := cp.NewBox2(cw.space.StaticBody, bb, 0)
	shape.SetFriction(0.8)
	shape.SetCollisionType(collisionTypeSolid)
	setClass(shape, ClassTerrain)
	cw.space.AddShape(shape)
	return shape
}

// AttachMule creates the controlled body's physics body and ground sensor.
func (cw *CollisionWorld) AttachMule(p *Player) {
	if cw == nil || cw.space == nil || p == nil {
		return
	}
	if cw.muleBody != nil {
		return
	}

	mass := 1.0
	moment := cp.MomentForBox(mass, p.Width, p.Height)
	body := cp.NewBody(mass, moment)
	body.SetAngle(0)
	body.SetAngularVelocity(0)
	body.SetPosition(cp.Vector{X: p.X + p.Width/2, Y: p.Y + p.Height/2})

	shape := cp.NewBox(body, p.Width, p.Height, 0)
	shape.SetFriction(0.0)
	shape.SetCollisionType(collisionTypeMule)
	setClass(shape, ClassMule)

	groundBB := cp.BB{
		L: -p.Width * 0.45,
		B: p.Height / 2.0,
		R: p.Width * 0.45,
		T: p.Height/2.0 + 2,
	}
	groundShape := cp.NewBox2(body, groundBB, 0)
	groundShape.SetSensor(true)
	groundShape.SetCollisionType(collisionTypeMuleGround)
	setClass(groundShape, ClassMule)

	cw.space.AddBody(body)
	cw.space.AddShape(shape)
	cw.space.AddShape(groundShape)

	cw.muleBody = body
	cw.muleShape = shape
	cw.groundShape = groundShape
	p.body = body
	p.shape = shape

	cw.setupHandlers()
}

func (cw *CollisionWorld) setupHandlers() {
	if cw.handlersReady || cw.space == nil {
		return
	}

	groundHandler := cw.space.NewCollisionHandler(collisionTypeMuleGround, collisionTypeSolid)
	groundHandler.UserData = cw
	groundHandler.PreSolveFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		world, ok := userData.(*CollisionWorld)
		if !ok || world == nil {
			return true
		}
		world.grounded = true
		world.groundGrace = 6
		return true
	}

	// Proxy shadows are sensors; their contacts against terrain become
	// directional blocking signals for the mover. The reported direction
	// points from the composite toward the obstacle.
	proxyHandler := cw.space.NewCollisionHandler(collisionTypeProxy, collisionTypeSolid)
	proxyHandler.UserData = cw
	proxyHandler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		reportProxyContact(arb, userData)
		return true
	}
	proxyHandler.PreSolveFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		reportProxyContact(arb, userData)
		return true
	}

	cw.handlersReady = true
}

func reportProxyContact(arb *cp.Arbiter, userData interface{}) {
	world, ok := userData.(*CollisionWorld)
	if !ok || world == nil || world.blocks == nil {
		return
	}
	shapeA, _ := arb.Shapes()
	n := arb.Normal()
	// The arbiter normal points from A to B; flip so the signal always
	// points from the proxy toward the terrain it touched.
	if ClassOf(shapeA) != ClassProxy {
		n = n.Neg()
	}
	world.blocks.ReportBlocked(n)
}

// TerrainOverlaps reports whether any terrain shape intersects r. Shapes
// classified as mule, attached cargo or proxy never count; neither do free
// cargo items, which the physics engine resolves on its own.
func (cw *CollisionWorld) TerrainOverlaps(r common.Rect) bool {
	return len(cw.TerrainHits(r)) > 0
}

// TerrainHits returns the bounding boxes of all terrain shapes
// intersecting r.
func (cw *CollisionWorld) TerrainHits(r common.Rect) []cp.BB {
	if cw == nil || cw.space == nil {
		return nil
	}
	bb := cp.BB{L: r.X, B: r.Y, R: r.X + r.Width, T: r.Y + r.Height}
	var hits []cp.BB
	cw.space.BBQuery(bb, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
		if ClassOf(shape) != ClassTerrain {
			return
		}
		hits = append(hits, shape.BB())
	}, nil)
	return hits
}

// ShapesIn returns every shape intersecting r regardless of classification.
// The placement validator applies its own exclusion rules on top.
func (cw *CollisionWorld) ShapesIn(r common.Rect) []*cp.Shape {
	if cw == nil || cw.space == nil {
		return nil
	}
	bb := cp.BB{L: r.X, B: r.Y, R: r.X + r.Width, T: r.Y + r.Height}
	var shapes []*cp.Shape
	cw.space.BBQuery(bb, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
		shapes = append(shapes, shape)
	}, nil)
	return shapes
}

// CastDownHitsTerrain casts a segment straight down from p and reports
// whether it strikes terrain within dist.
func (cw *CollisionWorld) CastDownHitsTerrain(p cp.Vector, dist float64) bool {
	if cw == nil || cw.space == nil || dist <= 0 {
		return false
	}
	end := cp.Vector{X: p.X, Y: p.Y + dist}
	hit := false
	cw.space.SegmentQuery(p, end, 0, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ cp.Vector, _ cp.Vector, _ float64, _ interface{}) {
		if ClassOf(shape) == ClassTerrain {
			hit = true
		}
	}, nil)
	return hit
}

// BeginStep clears per-tick contact state before the space steps.
func (cw *CollisionWorld) BeginStep() {
	if cw == nil {
		return
	}
	if cw.groundGrace > 0 {
		cw.groundGrace--
	}
	cw.grounded = false
}

func (cw *CollisionWorld) Step(dt float64) {
	if cw == nil || cw.space == nil {
		return
	}
	cw.space.Step(dt)
}

// IsGrounded reports whether the mule's own ground sensor touched terrain
// this tick (with a few grace frames, matching coyote-time behavior).
func (cw *CollisionWorld) IsGrounded() bool {
	if cw == nil {
		return false
	}
	return cw.grounded || cw.groundGrace > 0
}
