package obj

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/quendale/packmule/common"
	"github.com/quendale/packmule/prefabs"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Level is a tile map stored as JSON. Each layer is a flat row-major
// array of length Width*Height; layer 0 draws first.
type Level struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Layers [][]int `json:"layers"`

	// LayerMeta holds per-layer metadata: whether the layer's tiles get
	// physics and the display color.
	LayerMeta []LayerMeta `json:"layer_meta,omitempty"`

	// player spawn in tile coordinates
	SpawnX int `json:"spawn_x,omitempty"`
	SpawnY int `json:"spawn_y,omitempty"`

	// Cargo lists items placed directly by the level file. Additional
	// items may come from the spawn script.
	Cargo []CargoPlacement `json:"cargo,omitempty"`

	// Script names a spawn script under prefabs/scripts run at load time.
	Script string `json:"script,omitempty"`

	// per-layer tile images built lazily from LayerMeta.Color
	layerTileImgs []*ebiten.Image
}

type LayerMeta struct {
	HasPhysics bool   `json:"has_physics"`
	Color      string `json:"color"`
}

// CargoPlacement positions one cargo prefab in world pixels (center).
type CargoPlacement struct {
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Weight float64 `json:"weight,omitempty"`
}

// levelSchema validates level files before decoding. Compiled once from
// the embedded schema by SetLevelSchema.
var levelSchema *jsonschema.Schema

// SetLevelSchema compiles and installs the level JSON schema. A nil or
// empty schema disables validation.
func SetLevelSchema(schemaJSON []byte) error {
	if len(schemaJSON) == 0 {
		levelSchema = nil
		return nil
	}
	sch, err := jsonschema.CompileString("level.schema.json", string(schemaJSON))
	if err != nil {
		return fmt.Errorf("compile level schema: %w", err)
	}
	levelSchema = sch
	return nil
}

// LoadLevel loads a level from a JSON file on disk.
func LoadLevel(path string) (*Level, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return loadLevelFromBytes(b)
}

// LoadLevelFromFS loads a level JSON from an fs.FS (e.g. embedded levels).
func LoadLevelFromFS(fsys fs.FS, path string) (*Level, error) {
	clean := strings.TrimPrefix(filepath.ToSlash(path), "levels/")
	b, err := fs.ReadFile(fsys, clean)
	if err != nil {
		return nil, err
	}
	return loadLevelFromBytes(b)
}

func loadLevelFromBytes(b []byte) (*Level, error) {
	if levelSchema != nil {
		var doc interface{}
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("parse level: %w", err)
		}
		if err := levelSchema.Validate(doc); err != nil {
			return nil, fmt.Errorf("validate level: %w", err)
		}
	}

	var lvl Level
	if err := json.Unmarshal(b, &lvl); err != nil {
		return nil, fmt.Errorf("unmarshal level: %w", err)
	}

	if lvl.Width <= 0 || lvl.Height <= 0 {
		return nil, fmt.Errorf("invalid level dimensions: %dx%d", lvl.Width, lvl.Height)
	}
	for i, layer := range lvl.Layers {
		if len(layer) != lvl.Width*lvl.Height {
			return nil, fmt.Errorf("layer %d has %d cells, want %d", i, len(layer), lvl.Width*lvl.Height)
		}
	}

	// fill meta for layers the file omitted
	if len(lvl.LayerMeta) < len(lvl.Layers) {
		meta := make([]LayerMeta, len(lvl.Layers))
		for i := range meta {
			if i < len(lvl.LayerMeta) {
				meta[i] = lvl.LayerMeta[i]
			} else {
				meta[i] = LayerMeta{HasPhysics: i == 0, Color: "#3c78ff"}
			}
		}
		lvl.LayerMeta = meta
	}

	return &lvl, nil
}

// PixelSize returns the level dimensions in pixels.
func (l *Level) PixelSize() (int, int) {
	if l == nil {
		return 0, 0
	}
	return l.Width * common.TileSize, l.Height * common.TileSize
}

// SpawnWorld returns the player spawn point in world pixels (top-left of
// the spawn tile).
func (l *Level) SpawnWorld() (float64, float64) {
	if l == nil {
		return 0, 0
	}
	return float64(l.SpawnX * common.TileSize), float64(l.SpawnY * common.TileSize)
}

// Draw renders the level tiles. camX/camY are the camera view's top-left
// in world coordinates. Tile images are created on first draw so a level
// can be loaded without a display.
func (l *Level) Draw(screen *ebiten.Image, camX, camY, zoom float64) {
	if l == nil || screen == nil {
		return
	}
	if l.layerTileImgs == nil {
		l.layerTileImgs = make([]*ebiten.Image, len(l.LayerMeta))
		for i := range l.LayerMeta {
			img := ebiten.NewImage(common.TileSize, common.TileSize)
			img.Fill(prefabs.ParseHexColor(l.LayerMeta[i].Color))
			l.layerTileImgs[i] = img
		}
	}

	for li, layer := range l.Layers {
		if li >= len(l.layerTileImgs) {
			break
		}
		img := l.layerTileImgs[li]
		for y := 0; y < l.Height; y++ {
			for x := 0; x < l.Width; x++ {
				if layer[y*l.Width+x] == 0 {
					continue
				}
				op := &ebiten.DrawImageOptions{}
				op.GeoM.Scale(zoom, zoom)
				op.GeoM.Translate(
					(float64(x*common.TileSize)-camX)*zoom,
					(float64(y*common.TileSize)-camY)*zoom,
				)
				op.Filter = ebiten.FilterNearest
				screen.DrawImage(img, op)
			}
		}
	}
}
