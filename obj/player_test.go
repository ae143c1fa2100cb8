package obj

import (
	"testing"

	"github.com/quendale/packmule/common"
	"github.com/quendale/packmule/prefabs"
)

// newTestPlayer stands a fully wired player on a floor at y=200.
func newTestPlayer(t *testing.T) (*Player, *AttachGraph, *CollisionWorld, *Input) {
	t.Helper()
	world := NewCollisionWorld(nil)
	world.AddStaticBox(common.Rect{X: -64, Y: 200, Width: 1024, Height: 64})

	tuning := prefabs.DefaultTuning()
	input := &Input{}
	player := NewPlayer(100, 152, input, world, nil, tuning)

	graph := NewAttachGraph(world, tuning, player, testAnchors())
	shadows := NewShadowManager(world, tuning)
	graph.SetShadowManager(shadows)
	validator := NewPlacementValidator(world, graph, player, tuning)
	mover := NewMover(world, graph, tuning)
	world.SetBlockReporter(mover)
	weight := NewWeightModel(graph, tuning)
	player.Wire(graph, validator, mover, weight, shadows)

	return player, graph, world, input
}

func TestPlayerWalksRight(t *testing.T) {
	player, _, _, input := newTestPlayer(t)

	startX := player.Rect.X
	input.MoveX = 1
	for i := 0; i < 60; i++ {
		player.Update()
	}

	if player.Rect.X <= startX+20 {
		t.Fatalf("player should have moved right, went from %v to %v", startX, player.Rect.X)
	}
	if !player.Grounded() {
		t.Fatalf("player standing on the floor should be grounded")
	}
	if player.GetState() != "running" {
		t.Fatalf("moving player should be running, got %s", player.GetState())
	}
}

func TestPlayerIdlesWithoutInput(t *testing.T) {
	player, _, _, _ := newTestPlayer(t)

	for i := 0; i < 30; i++ {
		player.Update()
	}
	if player.GetState() != "idle" {
		t.Fatalf("stationary player should be idle, got %s", player.GetState())
	}
}

func TestFreezeSuppressesMovement(t *testing.T) {
	player, _, _, input := newTestPlayer(t)

	// settle first
	for i := 0; i < 10; i++ {
		player.Update()
	}
	startX := player.Rect.X

	player.Freeze(120)
	input.MoveX = 1
	for i := 0; i < 30; i++ {
		player.Update()
	}

	if d := common.Abs(player.Rect.X - startX); d > 2 {
		t.Fatalf("frozen player should not walk, drifted %v", d)
	}
	if !player.Frozen() {
		t.Fatalf("freeze window should still be open")
	}
}

func TestAttachThroughAimFlow(t *testing.T) {
	player, graph, world, input := newTestPlayer(t)

	// free crate resting on the floor, within pickup range
	item := newTestItem(t, world, "crate", 160, 186, 2)
	player.SetCargoItems([]*CargoItem{item})

	// settle physics
	for i := 0; i < 10; i++ {
		player.Update()
	}

	anchor := graph.AnchorWorld(SideRight)
	input.MouseWorldX = anchor.X
	input.MouseWorldY = anchor.Y
	input.CarryPressed = true
	input.AttackPressed = true
	player.Update()
	input.CarryPressed = false
	input.AttackPressed = false

	if !graph.IsMember(item) {
		t.Fatalf("aimed attach should add the item to the graph")
	}
	if !item.Attached() {
		t.Fatalf("item should be suspended after attach")
	}
	if !player.Frozen() {
		t.Fatalf("attach should freeze the player briefly")
	}

	// wait out freeze and cooldown, then quick-detach
	for i := 0; i < 30; i++ {
		player.Update()
	}
	input.DetachPressed = true
	player.Update()
	input.DetachPressed = false

	if graph.IsMember(item) {
		t.Fatalf("quick-detach should remove the most recent item")
	}
	if item.Attached() {
		t.Fatalf("item should simulate freely after detach")
	}
}

func TestActionCooldownDebounces(t *testing.T) {
	player, graph, world, input := newTestPlayer(t)

	item := newTestItem(t, world, "crate", 160, 186, 2)
	player.SetCargoItems([]*CargoItem{item})
	for i := 0; i < 10; i++ {
		player.Update()
	}

	anchor := graph.AnchorWorld(SideRight)
	input.MouseWorldX = anchor.X
	input.MouseWorldY = anchor.Y
	input.CarryPressed = true
	input.AttackPressed = true
	player.Update()
	input.CarryPressed = false
	input.AttackPressed = false
	if !graph.IsMember(item) {
		t.Fatalf("seed attach failed")
	}

	// a second action inside the cooldown window must be refused
	input.DetachPressed = true
	player.Update()
	input.DetachPressed = false
	if !graph.IsMember(item) {
		t.Fatalf("detach inside the cooldown window should be a no-op")
	}

	for i := 0; i < player.tuning.AttachCooldownFrames; i++ {
		player.Update()
	}
	input.DetachPressed = true
	player.Update()
	input.DetachPressed = false
	if graph.IsMember(item) {
		t.Fatalf("detach after the cooldown window should succeed")
	}
}

func TestPlayerJumpLaunchesUpward(t *testing.T) {
	player, _, _, input := newTestPlayer(t)

	for i := 0; i < 10; i++ {
		player.Update()
	}
	if !player.Grounded() {
		t.Fatalf("player should be grounded before jumping")
	}

	input.JumpPressed = true
	player.Update()
	input.JumpPressed = false

	if player.GetState() != "jumping" {
		t.Fatalf("jump input should enter the jumping state, got %s", player.GetState())
	}
	if player.VelocityY >= 0 {
		t.Fatalf("jump should launch upward, velocity %v", player.VelocityY)
	}
}

func TestCarryToggleEntersAimMode(t *testing.T) {
	player, _, _, input := newTestPlayer(t)

	input.CarryPressed = true
	player.Update()
	input.CarryPressed = false
	if !player.AimMode() {
		t.Fatalf("carry key should enter aim mode")
	}

	player.Update()
	if !player.AimMode() {
		t.Fatalf("aim mode should persist until toggled")
	}

	input.CarryPressed = true
	player.Update()
	input.CarryPressed = false
	if player.AimMode() {
		t.Fatalf("carry key should leave aim mode")
	}
}
