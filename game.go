package main

import (
	"fmt"
	"image/color"
	"log"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"golang.design/x/clipboard"

	"github.com/quendale/packmule/common"
	"github.com/quendale/packmule/levels"
	"github.com/quendale/packmule/obj"
	"github.com/quendale/packmule/prefabs"
)

type Game struct {
	frames int
	paused bool
	debug  bool

	tuning *prefabs.TuningSpec

	level  *obj.Level
	world  *obj.CollisionWorld
	camera *obj.Camera
	input  *obj.Input
	player *obj.Player

	graph     *obj.AttachGraph
	validator *obj.PlacementValidator
	mover     *obj.Mover
	weight    *obj.WeightModel
	shadows   *obj.ShadowManager

	items []*obj.CargoItem

	hud     *HUD
	pauseUI *PauseUI

	watcher *prefabs.Watcher

	clipboardInit sync.Once
	clipboardOK   bool
}

func NewGame(levelName string, debug bool) *Game {
	tuning, err := prefabs.LoadTuning()
	if err != nil {
		log.Printf("tuning load failed, using defaults: %v", err)
		tuning = prefabs.DefaultTuning()
	}
	muleSpec, err := prefabs.LoadMuleSpec()
	if err != nil {
		log.Printf("mule spec load failed, using defaults: %v", err)
		muleSpec = nil
	}
	cargoLib, err := prefabs.LoadCargoLibrary()
	if err != nil {
		log.Printf("cargo library load failed: %v", err)
		cargoLib = &prefabs.CargoLibrary{}
	}

	if err := obj.SetLevelSchema(levels.Schema); err != nil {
		log.Printf("level schema unusable, skipping validation: %v", err)
	}

	if levelName == "" {
		levelName = "level1"
	}
	if !strings.HasSuffix(levelName, ".json") {
		levelName += ".json"
	}
	lvl, err := obj.LoadLevelFromFS(levels.FS, levelName)
	if err != nil {
		log.Fatalf("failed to load level %s: %v", levelName, err)
	}

	world := obj.NewCollisionWorld(lvl)

	camera := obj.NewCamera(common.BaseWidth, common.BaseHeight, 2.0)
	pw, ph := lvl.PixelSize()
	camera.SetWorldBounds(pw, ph)

	input := obj.NewInput(camera)

	spawnX, spawnY := lvl.SpawnWorld()
	player := obj.NewPlayer(spawnX, spawnY, input, world, muleSpec, tuning)

	anchors := map[obj.Side]cp.Vector{}
	if muleSpec != nil {
		anchors[obj.SideRight] = cp.Vector{X: muleSpec.AnchorRight.X, Y: muleSpec.AnchorRight.Y}
		anchors[obj.SideLeft] = cp.Vector{X: muleSpec.AnchorLeft.X, Y: muleSpec.AnchorLeft.Y}
		anchors[obj.SideTop] = cp.Vector{X: muleSpec.AnchorTop.X, Y: muleSpec.AnchorTop.Y}
	}

	graph := obj.NewAttachGraph(world, tuning, player, anchors)
	graph.AddListener(obj.LogListener{})

	shadows := obj.NewShadowManager(world, tuning)
	graph.SetShadowManager(shadows)

	validator := obj.NewPlacementValidator(world, graph, player, tuning)

	mover := obj.NewMover(world, graph, tuning)
	world.SetBlockReporter(mover)

	weight := obj.NewWeightModel(graph, tuning)

	player.Wire(graph, validator, mover, weight, shadows)

	items := obj.SpawnPlacedCargo(world, cargoLib, lvl.Cargo)
	if lvl.Script != "" {
		scripted, err := obj.RunSpawnScript(lvl.Script, world, cargoLib, float64(pw), float64(ph))
		if err != nil {
			log.Printf("spawn script: %v", err)
		}
		items = append(items, scripted...)
	}
	player.SetCargoItems(items)

	px, py := player.Position().X, player.Position().Y
	camera.SnapTo(px, py)

	g := &Game{
		debug:     debug,
		tuning:    tuning,
		level:     lvl,
		world:     world,
		camera:    camera,
		input:     input,
		player:    player,
		graph:     graph,
		validator: validator,
		mover:     mover,
		weight:    weight,
		shadows:   shadows,
		items:     items,
	}
	g.hud = NewHUD(weight, graph)
	g.pauseUI = NewPauseUI(g)

	if debug {
		w, err := prefabs.NewWatcher("prefabs")
		if err != nil {
			log.Printf("prefab watcher unavailable: %v", err)
		} else {
			g.watcher = w
		}
	}

	return g
}

func (g *Game) Update() error {
	g.frames++
	g.drainWatcher()

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.paused = !g.paused
	}
	if g.paused {
		g.pauseUI.Update()
		return nil
	}

	g.input.Update()
	if g.input.DumpPressed {
		g.dumpGraph()
	}

	g.player.Update()

	center := g.player.Position()
	g.camera.Update(center.X, center.Y)

	g.hud.Update()
	return nil
}

// drainWatcher applies prefab edits accumulated since the last tick. Only
// tuning reloads in place; spec changes to the mule or cargo library need
// a restart to take effect.
func (g *Game) drainWatcher() {
	if g.watcher == nil {
		return
	}
	if err := g.watcher.Err(); err != nil {
		log.Printf("prefab watcher: %v", err)
	}
	changed := g.watcher.TakeChanged()
	if len(changed) == 0 {
		return
	}
	for _, path := range changed {
		log.Printf("prefab changed: %s", path)
	}
	if err := prefabs.ReloadTuning(g.tuning); err != nil {
		log.Printf("tuning reload failed: %v", err)
	} else {
		log.Printf("tuning reloaded")
	}
}

// dumpGraph copies a text rendering of the attachment graph to the system
// clipboard. Debugging aid bound to F8.
func (g *Game) dumpGraph() {
	g.clipboardInit.Do(func() {
		if err := clipboard.Init(); err != nil {
			log.Printf("clipboard unavailable: %v", err)
			return
		}
		g.clipboardOK = true
	})

	var sb strings.Builder
	snap := g.weight.Snapshot()
	fmt.Fprintf(&sb, "members=%d total=%.1f imbalance=%+.2f\n", g.graph.Len(), snap.Total, snap.Imbalance)
	for _, side := range obj.Sides {
		for _, item := range g.graph.MembersOf(side) {
			parent := "anchor"
			if p, ok := g.graph.ParentOf(item); ok && p != nil {
				parent = p.Kind
			}
			pos := item.Position()
			fmt.Fprintf(&sb, "%s\t%s\tw=%.1f\t(%.0f, %.0f)\t-> %s\n", side, item.Kind, item.Weight, pos.X, pos.Y, parent)
		}
	}

	if g.clipboardOK {
		clipboard.Write(clipboard.FmtText, []byte(sb.String()))
	}
	log.Printf("attachment graph:\n%s", sb.String())
}

func (g *Game) Draw(screen *ebiten.Image) {
	camX, camY := g.camera.ViewTopLeft()
	zoom := g.camera.Zoom()

	g.level.Draw(screen, camX, camY, zoom)
	for _, item := range g.items {
		item.Draw(screen, camX, camY, zoom)
	}
	g.player.Draw(screen, camX, camY, zoom)

	if g.player.AimMode() {
		g.drawPlacementPreview(screen, camX, camY, zoom)
	}

	g.hud.Draw(screen)
	if g.paused {
		g.pauseUI.Draw(screen)
	}

	if g.debug {
		g.world.DebugDraw(screen, camX, camY, zoom)
		ebitenutil.DebugPrint(screen, fmt.Sprintf(
			"FPS: %.1f  state: %s  members: %d  shadows: %d  grounded: %t",
			ebiten.ActualFPS(), g.player.GetState(), g.graph.Len(), g.shadows.Count(), g.player.Grounded(),
		))
	}
}

// drawPlacementPreview outlines where the aim candidate would land and
// whether the placement would be accepted: green for valid, red for not.
func (g *Game) drawPlacementPreview(screen *ebiten.Image, camX, camY, zoom float64) {
	item, pos, valid := g.player.AimPreview()

	// crosshair at the aim point
	cx := float32((pos.X - camX) * zoom)
	cy := float32((pos.Y - camY) * zoom)
	cross := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xb0}
	vector.StrokeLine(screen, cx-6, cy, cx+6, cy, 1, cross, false)
	vector.StrokeLine(screen, cx, cy-6, cx, cy+6, 1, cross, false)

	if item == nil {
		return
	}
	outline := color.RGBA{R: 0xd9, G: 0x3a, B: 0x3a, A: 0xff}
	if valid {
		outline = color.RGBA{R: 0x4c, G: 0xc9, B: 0x5a, A: 0xff}
	}
	r := item.RectAt(pos)
	vector.StrokeRect(screen,
		float32((r.X-camX)*zoom), float32((r.Y-camY)*zoom),
		float32(r.Width*zoom), float32(r.Height*zoom),
		2, outline, false)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return common.BaseWidth, common.BaseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
