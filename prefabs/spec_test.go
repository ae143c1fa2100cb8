package prefabs

import (
	"image/color"
	"testing"
)

func TestLoadTuningOverlaysDefaults(t *testing.T) {
	tuning, err := LoadTuning()
	if err != nil {
		t.Fatalf("embedded tuning.yaml should load: %v", err)
	}
	if tuning.ConnectionDistance <= 0 {
		t.Fatalf("connection distance must be positive, got %v", tuning.ConnectionDistance)
	}
	if tuning.MaxGroupSize <= 0 {
		t.Fatalf("max group size must be positive, got %d", tuning.MaxGroupSize)
	}
	if tuning.OverlapMaxVsMule <= 0 || tuning.OverlapMaxVsMule >= 1 {
		t.Fatalf("overlap threshold should be a fraction, got %v", tuning.OverlapMaxVsMule)
	}
	if tuning.ShadowDelayFrames <= 0 || tuning.BlockClearFrames <= 0 {
		t.Fatalf("shadow timers must be positive, got %d/%d", tuning.ShadowDelayFrames, tuning.BlockClearFrames)
	}
	if tuning.DeepOverlap <= 0 {
		t.Fatalf("deep overlap threshold must be positive, got %v", tuning.DeepOverlap)
	}
}

func TestReloadTuningInPlace(t *testing.T) {
	dst := &TuningSpec{}
	if err := ReloadTuning(dst); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if dst.ConnectionDistance <= 0 || dst.DeepOverlap <= 0 {
		t.Fatalf("reload should fill the target in place: %+v", dst)
	}
}

func TestLoadMuleSpec(t *testing.T) {
	spec, err := LoadMuleSpec()
	if err != nil {
		t.Fatalf("embedded mule.yaml should load: %v", err)
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		t.Fatalf("mule needs a size, got %vx%v", spec.Width, spec.Height)
	}
	if spec.JumpImpulse >= 0 {
		t.Fatalf("jump impulse points up (negative y), got %v", spec.JumpImpulse)
	}
	if spec.AnchorRight.X <= 0 || spec.AnchorLeft.X >= 0 || spec.AnchorTop.Y >= 0 {
		t.Fatalf("anchors should sit right/left/above the body: %+v %+v %+v",
			spec.AnchorRight, spec.AnchorLeft, spec.AnchorTop)
	}
}

func TestCargoLibraryFind(t *testing.T) {
	lib, err := LoadCargoLibrary()
	if err != nil {
		t.Fatalf("embedded cargo.yaml should load: %v", err)
	}

	cases := []struct {
		kind string
		want bool
	}{
		{"crate", true},
		{"barrel", true},
		{"sack", true},
		{"anvil", true},
		{"teapot", false},
	}
	for _, c := range cases {
		t.Run(c.kind, func(t *testing.T) {
			spec, ok := lib.Find(c.kind)
			if ok != c.want {
				t.Fatalf("Find(%q) = %v, want %v", c.kind, ok, c.want)
			}
			if ok && (spec.Weight <= 0 || spec.Width <= 0) {
				t.Fatalf("spec for %q should carry weight and size: %+v", c.kind, spec)
			}
		})
	}

	var nilLib *CargoLibrary
	if _, ok := nilLib.Find("crate"); ok {
		t.Fatalf("nil library should find nothing")
	}
}

func TestParseHexColor(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want color.RGBA
	}{
		{"rgb", "#b5833f", color.RGBA{R: 0xb5, G: 0x83, B: 0x3f, A: 0xff}},
		{"rgba", "#10203040", color.RGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}},
		{"no_hash", "ffffff", color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{"garbage", "#zzz", color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}},
		{"empty", "", color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ParseHexColor(c.in); got != c.want {
				t.Fatalf("ParseHexColor(%q) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestLoadScript(t *testing.T) {
	src, err := LoadScript("spawn.tengo")
	if err != nil {
		t.Fatalf("embedded spawn.tengo should load: %v", err)
	}
	if len(src) == 0 {
		t.Fatalf("script should not be empty")
	}
}
