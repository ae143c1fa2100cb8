package obj

import (
	"math"

	"github.com/quendale/packmule/common"
	"github.com/quendale/packmule/prefabs"
)

// WeightSnapshot is the derived view of the current load, recomputed every
// tick from graph membership. Imbalance is the clamped, normalized
// difference between right and left aggregate weight in [-1, 1].
type WeightSnapshot struct {
	Left      float64
	Right     float64
	Top       float64
	Total     float64
	Imbalance float64
}

// WeightModel aggregates per-anchor cargo weight and derives the movement
// multipliers the mover consumes. All multiplier methods are pure
// functions of the last Recompute and a travel-direction sign.
type WeightModel struct {
	graph  *AttachGraph
	tuning *prefabs.TuningSpec
	snap   WeightSnapshot
}

func NewWeightModel(graph *AttachGraph, tuning *prefabs.TuningSpec) *WeightModel {
	if tuning == nil {
		tuning = prefabs.DefaultTuning()
	}
	return &WeightModel{graph: graph, tuning: tuning}
}

// Recompute refreshes the snapshot from current graph membership. Called
// once per tick before movement integration.
func (m *WeightModel) Recompute() {
	if m == nil {
		return
	}
	var left, right, top float64
	if m.graph != nil {
		for _, item := range m.graph.MembersOf(SideRight) {
			right += item.Weight
		}
		for _, item := range m.graph.MembersOf(SideLeft) {
			left += item.Weight
		}
		for _, item := range m.graph.MembersOf(SideTop) {
			top += item.Weight
		}
	}

	norm := m.tuning.ImbalanceNorm
	if norm <= 0 {
		norm = 1
	}
	m.snap = WeightSnapshot{
		Left:      left,
		Right:     right,
		Top:       top,
		Total:     m.tuning.BaseWeight + left + right + top,
		Imbalance: common.Clamp((right-left)/norm, -1, 1),
	}
}

func (m *WeightModel) Snapshot() WeightSnapshot {
	if m == nil {
		return WeightSnapshot{}
	}
	return m.snap
}

// deadzone below which the load counts as balanced
const imbalanceDeadzone = 0.1

// SpeedMultiplier scales top speed for travel in direction dir (sign
// only). Moving toward the heavy side is faster, away is slower.
func (m *WeightModel) SpeedMultiplier(dir float64) float64 {
	if m == nil {
		return 1
	}
	imb := m.snap.Imbalance
	if common.Abs(imb) < imbalanceDeadzone || dir == 0 {
		return 1
	}
	if common.Sign(dir) == common.Sign(imb) {
		return 1 + common.Abs(imb)*m.tuning.SpeedFactor
	}
	return 1 - common.Abs(imb)*m.tuning.SpeedFactor*0.7
}

// AccelerationMultiplier is the same shape as SpeedMultiplier with its own
// factor and a stronger toward/away asymmetry.
func (m *WeightModel) AccelerationMultiplier(dir float64) float64 {
	if m == nil {
		return 1
	}
	imb := m.snap.Imbalance
	if common.Abs(imb) < imbalanceDeadzone || dir == 0 {
		return 1
	}
	if common.Sign(dir) == common.Sign(imb) {
		return 1 + common.Abs(imb)*m.tuning.AccelFactor*1.2
	}
	return 1 - common.Abs(imb)*m.tuning.AccelFactor*0.8
}

// PassiveSwayAngle is the resting tilt (radians) applied when there is no
// steering input: the body leans toward the heavy side, up to 15 degrees
// at full imbalance and sway factor 1.
func (m *WeightModel) PassiveSwayAngle() float64 {
	if m == nil {
		return 0
	}
	return -m.snap.Imbalance * m.tuning.SwayFactor * 15 * math.Pi / 180
}
