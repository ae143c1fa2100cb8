package obj

import (
	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/prefabs"
)

// ShadowManager maintains one non-colliding trigger shape per attached
// cargo item, mirroring the item's pose so the space can still detect
// contact between the composite and the environment without re-resolving
// collisions against the item's own suspended shape.
//
// Creation is deferred by a few frames after attachment; creating the
// shadow in the same tick as the snap-into-place risks a spurious block
// against terrain the item is still settling out of.
type ShadowManager struct {
	world  *CollisionWorld
	tuning *prefabs.TuningSpec

	pending map[*CargoItem]int
	shadows map[*CargoItem]*proxyShadow
}

type proxyShadow struct {
	body  *cp.Body
	shape *cp.Shape
}

func NewShadowManager(world *CollisionWorld, tuning *prefabs.TuningSpec) *ShadowManager {
	if tuning == nil {
		tuning = prefabs.DefaultTuning()
	}
	return &ShadowManager{
		world:   world,
		tuning:  tuning,
		pending: map[*CargoItem]int{},
		shadows: map[*CargoItem]*proxyShadow{},
	}
}

// Schedule queues shadow creation for a freshly attached item.
func (sm *ShadowManager) Schedule(item *CargoItem) {
	if sm == nil || item == nil {
		return
	}
	if _, exists := sm.shadows[item]; exists {
		return
	}
	sm.pending[item] = sm.tuning.ShadowDelayFrames
}

// Remove destroys an item's shadow immediately (or cancels a pending one).
func (sm *ShadowManager) Remove(item *CargoItem) {
	if sm == nil || item == nil {
		return
	}
	delete(sm.pending, item)
	sh, ok := sm.shadows[item]
	if !ok {
		return
	}
	delete(sm.shadows, item)
	if sm.world == nil || sm.world.space == nil {
		return
	}
	if sh.shape != nil {
		sm.world.space.RemoveShape(sh.shape)
	}
	if sh.body != nil {
		sm.world.space.RemoveBody(sh.body)
	}
}

// Update advances creation countdowns once per tick, instantiating shadows
// whose delay expired.
func (sm *ShadowManager) Update() {
	if sm == nil {
		return
	}
	for item, frames := range sm.pending {
		if frames > 0 {
			sm.pending[item] = frames - 1
			continue
		}
		delete(sm.pending, item)
		sm.create(item)
	}
}

func (sm *ShadowManager) create(item *CargoItem) {
	if sm.world == nil || sm.world.space == nil || item == nil {
		return
	}
	body := cp.NewKinematicBody()
	body.SetPosition(item.Position())
	body.SetAngle(item.Angle())

	shape := cp.NewBox(body, item.Width, item.Height, 0)
	shape.SetSensor(true)
	shape.SetCollisionType(collisionTypeProxy)
	setClass(shape, ClassProxy)

	sm.world.space.AddBody(body)
	sm.world.space.AddShape(shape)
	sm.shadows[item] = &proxyShadow{body: body, shape: shape}
}

// SyncLate mirrors each shadow onto its item's current pose. Runs after
// the graph has driven item poses for the tick.
func (sm *ShadowManager) SyncLate() {
	if sm == nil {
		return
	}
	for item, sh := range sm.shadows {
		if sh.body == nil {
			continue
		}
		sh.body.SetPosition(item.Position())
		sh.body.SetAngle(item.Angle())
	}
}

// Has reports whether item currently has a live shadow (pending ones do
// not count).
func (sm *ShadowManager) Has(item *CargoItem) bool {
	if sm == nil {
		return false
	}
	_, ok := sm.shadows[item]
	return ok
}

func (sm *ShadowManager) Count() int {
	if sm == nil {
		return 0
	}
	return len(sm.shadows)
}
