package common

const (
	// BaseWidth/BaseHeight are the logical render resolution in pixels.
	BaseWidth  = 1280
	BaseHeight = 720

	// TileSize is the side length of one level tile in pixels.
	TileSize = 32

	// Gravity is the downward acceleration applied by the physics space
	// (screen coordinates, positive Y is down).
	Gravity = 0.5
)
