package obj

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/quendale/packmule/prefabs"
)

// RunSpawnScript executes a cargo spawn script from prefabs/scripts. The
// script sees level_width/level_height (pixels) and a spawn(kind, x, y
// [, weight]) function resolving kinds against the cargo library. It
// returns the spawned items; a spawn call naming an unknown kind is
// skipped, a script error aborts the remainder.
func RunSpawnScript(name string, world *CollisionWorld, lib *prefabs.CargoLibrary, levelW, levelH float64) ([]*CargoItem, error) {
	src, err := prefabs.LoadScript(name)
	if err != nil {
		return nil, fmt.Errorf("load spawn script %q: %w", name, err)
	}

	var spawned []*CargoItem
	spawn := &tengo.UserFunction{Name: "spawn", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		kind, ok := tengo.ToString(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "kind", Expected: "string", Found: args[0].TypeName()}
		}
		x, ok := tengo.ToFloat64(args[1])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "x", Expected: "float", Found: args[1].TypeName()}
		}
		y, ok := tengo.ToFloat64(args[2])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "y", Expected: "float", Found: args[2].TypeName()}
		}

		spec, found := lib.Find(kind)
		if !found {
			return tengo.FalseValue, nil
		}
		weight := spec.Weight
		if len(args) > 3 {
			if w, ok := tengo.ToFloat64(args[3]); ok && w > 0 {
				weight = w
			}
		}

		item := NewCargoItem(world, spec.Kind, x, y, spec.Width, spec.Height, weight, prefabs.ParseHexColor(spec.Color))
		if item != nil {
			spawned = append(spawned, item)
			return tengo.TrueValue, nil
		}
		return tengo.FalseValue, nil
	}}

	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	if err := script.Add("spawn", spawn); err != nil {
		return spawned, err
	}
	if err := script.Add("level_width", levelW); err != nil {
		return spawned, err
	}
	if err := script.Add("level_height", levelH); err != nil {
		return spawned, err
	}

	if _, err := script.Run(); err != nil {
		return spawned, fmt.Errorf("run spawn script %q: %w", name, err)
	}
	return spawned, nil
}

// SpawnPlacedCargo instantiates the cargo entries a level file places
// directly, resolving kinds against the cargo library.
func SpawnPlacedCargo(world *CollisionWorld, lib *prefabs.CargoLibrary, placements []CargoPlacement) []*CargoItem {
	var items []*CargoItem
	for _, pl := range placements {
		spec, ok := lib.Find(pl.Kind)
		if !ok {
			continue
		}
		weight := spec.Weight
		if pl.Weight > 0 {
			weight = pl.Weight
		}
		if item := NewCargoItem(world, spec.Kind, pl.X, pl.Y, spec.Width, spec.Height, weight, prefabs.ParseHexColor(spec.Color)); item != nil {
			items = append(items, item)
		}
	}
	return items
}
