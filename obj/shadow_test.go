package obj

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/prefabs"
)

func TestShadowDelayedCreation(t *testing.T) {
	world := NewCollisionWorld(nil)
	tuning := prefabs.DefaultTuning()
	sm := NewShadowManager(world, tuning)

	item := newTestItem(t, world, "crate", 100, 100, 1)
	sm.Schedule(item)

	for i := 0; i < tuning.ShadowDelayFrames; i++ {
		sm.Update()
		if sm.Has(item) {
			t.Fatalf("shadow appeared after %d updates, want %d", i+1, tuning.ShadowDelayFrames+1)
		}
	}
	sm.Update()
	if !sm.Has(item) {
		t.Fatalf("shadow should exist once the delay expired")
	}
	if sm.Count() != 1 {
		t.Fatalf("expected 1 shadow, got %d", sm.Count())
	}
}

func TestShadowRemoveCancelsPending(t *testing.T) {
	world := NewCollisionWorld(nil)
	tuning := prefabs.DefaultTuning()
	sm := NewShadowManager(world, tuning)

	item := newTestItem(t, world, "crate", 100, 100, 1)
	sm.Schedule(item)
	sm.Remove(item)

	for i := 0; i < tuning.ShadowDelayFrames*2; i++ {
		sm.Update()
	}
	if sm.Has(item) || sm.Count() != 0 {
		t.Fatalf("cancelled shadow must never be created")
	}
}

func TestShadowRemoveDestroys(t *testing.T) {
	world := NewCollisionWorld(nil)
	tuning := prefabs.DefaultTuning()
	sm := NewShadowManager(world, tuning)

	item := newTestItem(t, world, "crate", 100, 100, 1)
	sm.Schedule(item)
	for i := 0; i <= tuning.ShadowDelayFrames; i++ {
		sm.Update()
	}
	if !sm.Has(item) {
		t.Fatalf("shadow should exist before removal")
	}

	sm.Remove(item)
	if sm.Has(item) || sm.Count() != 0 {
		t.Fatalf("shadow should be destroyed on removal")
	}
}

func TestShadowMirrorsPose(t *testing.T) {
	world := NewCollisionWorld(nil)
	tuning := prefabs.DefaultTuning()
	sm := NewShadowManager(world, tuning)

	item := newTestItem(t, world, "crate", 100, 100, 1)
	sm.Schedule(item)
	for i := 0; i <= tuning.ShadowDelayFrames; i++ {
		sm.Update()
	}

	item.SetPose(cp.Vector{X: 240, Y: 180}, 0.4)
	sm.SyncLate()

	sh := sm.shadows[item]
	if sh == nil || sh.body == nil {
		t.Fatalf("shadow body missing")
	}
	if got := sh.body.Position(); got.Distance(item.Position()) > 1e-9 {
		t.Fatalf("shadow position %v should mirror item %v", got, item.Position())
	}
	if sh.body.Angle() != item.Angle() {
		t.Fatalf("shadow angle %v should mirror item %v", sh.body.Angle(), item.Angle())
	}
}

func TestShadowScheduleIdempotentWhileLive(t *testing.T) {
	world := NewCollisionWorld(nil)
	tuning := prefabs.DefaultTuning()
	sm := NewShadowManager(world, tuning)

	item := newTestItem(t, world, "crate", 100, 100, 1)
	sm.Schedule(item)
	for i := 0; i <= tuning.ShadowDelayFrames; i++ {
		sm.Update()
	}
	sm.Schedule(item)
	for i := 0; i <= tuning.ShadowDelayFrames; i++ {
		sm.Update()
	}
	if sm.Count() != 1 {
		t.Fatalf("re-scheduling a live shadow must not duplicate it, got %d", sm.Count())
	}
}
