package main

import (
	"fmt"
	"image/color"

	"golang.org/x/image/font/basicfont"

	"github.com/ebitenui/ebitenui"
	imageui "github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"

	"github.com/quendale/packmule/obj"
)

// HUD shows the current load: per-side weight, total, and the imbalance
// readout the movement multipliers derive from.
type HUD struct {
	ui *ebitenui.UI

	weight *obj.WeightModel
	graph  *obj.AttachGraph

	loadText      *widget.Text
	imbalanceText *widget.Text
}

func NewHUD(weight *obj.WeightModel, graph *obj.AttachGraph) *HUD {
	panelImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 160})

	goFace := ebtext.NewGoXFace(basicfont.Face7x13)
	var face ebtext.Face = goFace
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

	loadText := widget.NewText(
		widget.TextOpts.Text("load 0.0", &face, white),
	)
	imbalanceText := widget.NewText(
		widget.TextOpts.Text("balanced", &face, white),
	)

	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(panelImg),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(4),
			widget.RowLayoutOpts.Padding(&widget.Insets{Top: 8, Bottom: 8, Left: 12, Right: 12}),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionEnd,
				VerticalPosition:   widget.AnchorLayoutPositionStart,
			}),
		),
	)
	panel.AddChild(loadText)
	panel.AddChild(imbalanceText)

	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)
	root.AddChild(panel)

	return &HUD{
		ui:            &ebitenui.UI{Container: root},
		weight:        weight,
		graph:         graph,
		loadText:      loadText,
		imbalanceText: imbalanceText,
	}
}

func (h *HUD) Update() {
	if h == nil {
		return
	}
	snap := h.weight.Snapshot()
	h.loadText.Label = fmt.Sprintf(
		"load %.1f  (L %.1f | R %.1f | T %.1f)  items %d",
		snap.Total, snap.Left, snap.Right, snap.Top, h.graph.Len(),
	)
	switch {
	case snap.Imbalance > 0.1:
		h.imbalanceText.Label = fmt.Sprintf("leaning right %+.2f", snap.Imbalance)
	case snap.Imbalance < -0.1:
		h.imbalanceText.Label = fmt.Sprintf("leaning left %+.2f", snap.Imbalance)
	default:
		h.imbalanceText.Label = "balanced"
	}
	h.ui.Update()
}

func (h *HUD) Draw(screen *ebiten.Image) {
	if h == nil {
		return
	}
	h.ui.Draw(screen)
}
