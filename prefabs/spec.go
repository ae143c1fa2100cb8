package prefabs

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TuningSpec collects every empirically chosen constant of the carry
// system. The values shipped in tuning.yaml were tuned by hand; treat them
// as data, not as derivable quantities.
type TuningSpec struct {
	// attachment graph
	ConnectionDistance   float64 `yaml:"connection_distance"`
	MaxGroupSize         int     `yaml:"max_group_size"`
	FreezeFrames         int     `yaml:"freeze_frames"`
	DetachImpulse        float64 `yaml:"detach_impulse"`
	AttachCooldownFrames int     `yaml:"attach_cooldown_frames"`

	// placement validation (fractions of the candidate item's area)
	OverlapMaxVsMule  float64 `yaml:"overlap_max_vs_mule"`
	OverlapMaxVsCargo float64 `yaml:"overlap_max_vs_cargo"`

	// proxy shadows
	ShadowDelayFrames int     `yaml:"shadow_delay_frames"`
	BlockClearFrames  int     `yaml:"block_clear_frames"`

	// weight model
	BaseWeight    float64 `yaml:"base_weight"`
	ImbalanceNorm float64 `yaml:"imbalance_norm"`
	SpeedFactor   float64 `yaml:"speed_factor"`
	AccelFactor   float64 `yaml:"accel_factor"`
	SwayFactor    float64 `yaml:"sway_factor"`

	// movement correction
	HorizontalMargin   float64 `yaml:"horizontal_margin"`
	VerticalMargin     float64 `yaml:"vertical_margin"`
	DeepOverlap        float64 `yaml:"deep_overlap"`
	StableDriftMargin  float64 `yaml:"stable_drift_margin"`
	GroundCastDistance float64 `yaml:"ground_cast_distance"`
}

// DefaultTuning returns the built-in tuning values. tuning.yaml overrides
// them field by field; tests run against these directly.
func DefaultTuning() *TuningSpec {
	return &TuningSpec{
		ConnectionDistance:   48,
		MaxGroupSize:         6,
		FreezeFrames:         12,
		DetachImpulse:        3.0,
		AttachCooldownFrames: 10,
		OverlapMaxVsMule:     0.30,
		OverlapMaxVsCargo:    0.40,
		ShadowDelayFrames:    12,
		BlockClearFrames:     12,
		BaseWeight:           1.0,
		ImbalanceNorm:        8.0,
		SpeedFactor:          0.25,
		AccelFactor:          0.30,
		SwayFactor:           0.6,
		HorizontalMargin:     4,
		VerticalMargin:       1.5,
		DeepOverlap:          2,
		StableDriftMargin:    2,
		GroundCastDistance:   3,
	}
}

// LoadTuning reads tuning.yaml over the defaults.
func LoadTuning() (*TuningSpec, error) {
	spec := DefaultTuning()
	data, err := Load("tuning.yaml")
	if err != nil {
		return nil, fmt.Errorf("prefabs: load tuning.yaml: %w", err)
	}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal tuning.yaml: %w", err)
	}
	return spec, nil
}

// ReloadTuning re-reads tuning.yaml into dst in place, so every
// collaborator holding the same pointer sees the new values. dst is left
// untouched when the reload fails.
func ReloadTuning(dst *TuningSpec) error {
	fresh, err := LoadTuning()
	if err != nil {
		return err
	}
	*dst = *fresh
	return nil
}

// VecSpec is a 2D offset in pixels.
type VecSpec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// MuleSpec describes the controlled body.
type MuleSpec struct {
	Name         string  `yaml:"name"`
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	MoveSpeed    float64 `yaml:"move_speed"`
	Accel        float64 `yaml:"accel"`
	JumpImpulse  float64 `yaml:"jump_impulse"`
	PickupRadius float64 `yaml:"pickup_radius"`

	// anchor point offsets from the body center
	AnchorRight VecSpec `yaml:"anchor_right"`
	AnchorLeft  VecSpec `yaml:"anchor_left"`
	AnchorTop   VecSpec `yaml:"anchor_top"`
}

func LoadMuleSpec() (*MuleSpec, error) {
	return LoadSpec[*MuleSpec]("mule.yaml")
}

// CargoSpec describes one attachable cargo kind.
type CargoSpec struct {
	Kind   string  `yaml:"kind"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Weight float64 `yaml:"weight"`
	Color  string  `yaml:"color"`
}

// CargoLibrary maps cargo kind names to their specs.
type CargoLibrary struct {
	Cargo []CargoSpec `yaml:"cargo"`
}

func (l *CargoLibrary) Find(kind string) (CargoSpec, bool) {
	if l == nil {
		return CargoSpec{}, false
	}
	for _, c := range l.Cargo {
		if c.Kind == kind {
			return c, true
		}
	}
	return CargoSpec{}, false
}

func LoadCargoLibrary() (*CargoLibrary, error) {
	return LoadSpec[*CargoLibrary]("cargo.yaml")
}

// LoadSpec decodes a prefab YAML file into T.
func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}
	return spec, nil
}

// ParseHexColor parses "#rrggbb" or "#rrggbbaa" into an RGBA color, opaque
// gray on malformed input.
func ParseHexColor(s string) color.RGBA {
	fallback := color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return fallback
	}
	if len(s) == 6 {
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
}
