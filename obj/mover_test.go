package obj

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/quendale/packmule/common"
	"github.com/quendale/packmule/prefabs"
)

func newMoverFixture(t *testing.T) (*Mover, *AttachGraph, *CollisionWorld, *stubRoot) {
	t.Helper()
	world := NewCollisionWorld(nil)
	tuning := prefabs.DefaultTuning()
	root := newTestRoot(100, 100)
	graph := NewAttachGraph(world, tuning, root, testAnchors())
	mover := NewMover(world, graph, tuning)
	world.SetBlockReporter(mover)
	return mover, graph, world, root
}

func TestCorrectVelocityBlocksHorizontal(t *testing.T) {
	mover, graph, world, _ := newMoverFixture(t)

	item := newTestItem(t, world, "crate", 500, 500, 1)
	anchor := graph.AnchorWorld(SideRight) // (128, 96)
	if !graph.Attach(item, anchor, SideRight) {
		t.Fatalf("attach failed")
	}

	// wall just to the right of the attached item's bounds
	world.AddStaticBox(common.Rect{X: 150, Y: 60, Width: 32, Height: 80})

	vel := mover.CorrectVelocity(cp.Vector{X: 5, Y: 0})
	if vel.X != 0 {
		t.Fatalf("horizontal velocity into the wall should be zeroed, got %v", vel.X)
	}
	if vel.Y != 0 {
		t.Fatalf("vertical velocity should be untouched, got %v", vel.Y)
	}
	if !mover.HorizontallyBlocked() {
		t.Fatalf("mover should report a horizontal block")
	}

	// moving away from the wall is fine
	vel = mover.CorrectVelocity(cp.Vector{X: -5, Y: 0})
	if vel.X != -5 {
		t.Fatalf("velocity away from the wall should pass through, got %v", vel.X)
	}
}

func TestCorrectVelocityGroundsThroughItem(t *testing.T) {
	mover, graph, world, _ := newMoverFixture(t)

	item := newTestItem(t, world, "crate", 500, 500, 1)
	anchor := graph.AnchorWorld(SideRight)
	if !graph.Attach(item, anchor, SideRight) {
		t.Fatalf("attach failed")
	}

	// floor just below the item's bottom edge (item spans y 82..110)
	world.AddStaticBox(common.Rect{X: 100, Y: 112, Width: 64, Height: 32})

	vel := mover.CorrectVelocity(cp.Vector{X: 0, Y: 5})
	if vel.Y != 0 {
		t.Fatalf("downward velocity into the floor should be zeroed, got %v", vel.Y)
	}
	if !mover.ItemGrounded() {
		t.Fatalf("downward block should ground the composite")
	}
}

func TestCorrectVelocityCeilingDoesNotGround(t *testing.T) {
	mover, graph, world, _ := newMoverFixture(t)

	item := newTestItem(t, world, "crate", 500, 500, 1)
	anchor := graph.AnchorWorld(SideTop) // (100, 66), item spans y 52..80
	if !graph.Attach(item, anchor, SideTop) {
		t.Fatalf("attach failed")
	}

	// ceiling just above the item
	world.AddStaticBox(common.Rect{X: 80, Y: 18, Width: 64, Height: 32})

	vel := mover.CorrectVelocity(cp.Vector{X: 0, Y: -5})
	if vel.Y != 0 {
		t.Fatalf("upward velocity into the ceiling should be zeroed, got %v", vel.Y)
	}
	if mover.ItemGrounded() {
		t.Fatalf("a ceiling hit must not ground the composite")
	}
}

func TestBlockSignalsAutoClear(t *testing.T) {
	mover, _, _, _ := newMoverFixture(t)

	mover.ReportBlocked(cp.Vector{X: 1, Y: 0})
	if !mover.blockedToward(cp.Vector{X: 1, Y: 0}) {
		t.Fatalf("signal should block its own direction")
	}
	if mover.blockedToward(cp.Vector{X: -1, Y: 0}) {
		t.Fatalf("signal should not block the opposite direction")
	}

	vel := mover.CorrectVelocity(cp.Vector{X: 3, Y: 2})
	if vel.X != 0 {
		t.Fatalf("aligned velocity component should be vetoed, got %v", vel.X)
	}
	if vel.Y != 2 {
		t.Fatalf("orthogonal component should pass, got %v", vel.Y)
	}

	for i := 0; i < mover.tuning.BlockClearFrames; i++ {
		mover.TickTimers()
	}
	if mover.blockedToward(cp.Vector{X: 1, Y: 0}) {
		t.Fatalf("signal should auto-clear after %d frames", mover.tuning.BlockClearFrames)
	}
}

func TestBlockSignalRefreshInsteadOfStack(t *testing.T) {
	mover, _, _, _ := newMoverFixture(t)

	mover.ReportBlocked(cp.Vector{X: 1, Y: 0})
	mover.ReportBlocked(cp.Vector{X: 1, Y: 0})
	if len(mover.blocks) != 1 {
		t.Fatalf("same-direction signals should merge, got %d", len(mover.blocks))
	}
	mover.ReportBlocked(cp.Vector{X: 0, Y: 1})
	if len(mover.blocks) != 2 {
		t.Fatalf("distinct directions should coexist, got %d", len(mover.blocks))
	}
}

func TestCorrectPositionResolvesPenetration(t *testing.T) {
	mover, graph, world, _ := newMoverFixture(t)

	body := cp.NewBody(1, cp.MomentForBox(1, 32, 48))
	body.SetPosition(cp.Vector{X: 100, Y: 100})
	mover.AttachBody(body)

	item := newTestItem(t, world, "crate", 500, 500, 1)
	if !graph.Attach(item, graph.AnchorWorld(SideRight), SideRight) {
		t.Fatalf("attach failed")
	}

	// wall already 6px inside the attached item's bounds (item x 114..142)
	world.AddStaticBox(common.Rect{X: 136, Y: 60, Width: 32, Height: 80})

	vel := mover.CorrectVelocity(cp.Vector{X: 3, Y: 0})
	if vel.X != 0 {
		t.Fatalf("velocity into the penetrated wall should be zeroed, got %v", vel.X)
	}
	pos := body.Position()
	if pos.X != 94 {
		t.Fatalf("body should move opposite travel by the penetration depth, got x=%v", pos.X)
	}
	if pos.Y != 100 {
		t.Fatalf("correction must preserve the vertical coordinate, got y=%v", pos.Y)
	}
}

func TestCorrectPositionNudgesTowardStableHeight(t *testing.T) {
	mover, graph, world, _ := newMoverFixture(t)

	body := cp.NewBody(1, cp.MomentForBox(1, 32, 48))
	body.SetPosition(cp.Vector{X: 100, Y: 100})
	mover.AttachBody(body)
	// the body has since sunk below the recorded stable height
	body.SetPosition(cp.Vector{X: 100, Y: 104})

	item := newTestItem(t, world, "crate", 500, 500, 1)
	if !graph.Attach(item, graph.AnchorWorld(SideRight), SideRight) {
		t.Fatalf("attach failed")
	}
	world.AddStaticBox(common.Rect{X: 136, Y: 60, Width: 32, Height: 80})

	mover.CorrectVelocity(cp.Vector{X: 3, Y: 0})
	pos := body.Position()
	if pos.X != 94 {
		t.Fatalf("body should move opposite travel by the penetration depth, got x=%v", pos.X)
	}
	if pos.Y != 103 {
		t.Fatalf("sunken body should be nudged back toward the stable height, got y=%v", pos.Y)
	}
}

func TestCompositeGrounded(t *testing.T) {
	mover, graph, world, _ := newMoverFixture(t)

	if mover.CompositeGrounded() {
		t.Fatalf("empty composite should not be grounded")
	}

	item := newTestItem(t, world, "crate", 500, 500, 1)
	anchor := graph.AnchorWorld(SideRight)
	if !graph.Attach(item, anchor, SideRight) {
		t.Fatalf("attach failed")
	}
	if mover.CompositeGrounded() {
		t.Fatalf("no terrain below: composite should be airborne")
	}

	// floor within cast distance of the item bottom (y 110)
	world.AddStaticBox(common.Rect{X: 100, Y: 111, Width: 64, Height: 32})
	if !mover.CompositeGrounded() {
		t.Fatalf("terrain under an attached item should ground the composite")
	}
}

func TestSafeRotation(t *testing.T) {
	mover, graph, world, _ := newMoverFixture(t)

	item := newTestItem(t, world, "crate", 500, 500, 1)
	anchor := graph.AnchorWorld(SideRight)
	if !graph.Attach(item, anchor, SideRight) {
		t.Fatalf("attach failed")
	}

	// free space: the full target is safe
	if got := mover.SafeRotation(0.3); got != 0.3 {
		t.Fatalf("unobstructed rotation should pass through, got %v", got)
	}

	// wall right next to the item: rotating toward it must be limited
	world.AddStaticBox(common.Rect{X: 143, Y: 40, Width: 16, Height: 120})
	got := mover.SafeRotation(0.6)
	if got >= 0.6 {
		t.Fatalf("rotation into terrain should be clamped below the target, got %v", got)
	}
	if got < 0 {
		t.Fatalf("clamped rotation should stay between zero and target, got %v", got)
	}
	for _, member := range graph.AllMembers() {
		if world.TerrainOverlaps(graph.MemberRectAt(member, got)) {
			t.Fatalf("returned rotation %v still overlaps terrain", got)
		}
	}
}
