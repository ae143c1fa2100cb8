package obj

import (
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Input holds the current input state for movement and carrying. Update
// polls ebiten once per tick; tests set fields directly instead.
type Input struct {
	// MoveX is -1 for left, 0 for none, +1 for right.
	MoveX float64
	// JumpPressed is true on the frame the jump key is pressed.
	JumpPressed bool
	// JumpHeld is true while the jump key is held down.
	JumpHeld bool
	// CarryPressed toggles carry-aim mode (E).
	CarryPressed bool
	// DetachPressed drops the most recently attached item (Q).
	DetachPressed bool
	// AttackPressed confirms an attach at the cursor (left mouse).
	AttackPressed bool
	// CancelPressed cascade-detaches the attached item under the cursor
	// (right mouse).
	CancelPressed bool
	// DumpPressed requests a debug dump of the attachment graph (F8).
	DumpPressed bool
	// MouseWorldX/Y are the cursor position in world coordinates (pixels).
	MouseWorldX float64
	MouseWorldY float64

	camera *Camera
}

func NewInput(camera *Camera) *Input {
	return &Input{camera: camera}
}

// Update polls the keyboard, mouse and (if present) the first gamepad.
func (i *Input) Update() {
	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		os.Exit(0)
	}

	mx, my := ebiten.CursorPosition()
	if i.camera != nil {
		vx, vy := i.camera.ViewTopLeft()
		i.MouseWorldX = vx + float64(mx)/i.camera.Zoom()
		i.MouseWorldY = vy + float64(my)/i.camera.Zoom()
	} else {
		i.MouseWorldX = float64(mx)
		i.MouseWorldY = float64(my)
	}

	var moveX float64
	if ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyLeft) {
		moveX -= 1
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyRight) {
		moveX += 1
	}

	var gpJumpJustPressed, gpJumpHeld, gpCarryJustPressed, gpDetachJustPressed bool
	if ids := ebiten.GamepadIDs(); len(ids) > 0 {
		gid := ids[0]

		leftX := ebiten.StandardGamepadAxisValue(gid, ebiten.StandardGamepadAxisLeftStickHorizontal)
		if leftX < -0.3 {
			moveX = -1
		} else if leftX > 0.3 {
			moveX = 1
		}

		gpJumpJustPressed = inpututil.IsStandardGamepadButtonJustPressed(gid, ebiten.StandardGamepadButtonRightBottom)
		gpJumpHeld = ebiten.IsStandardGamepadButtonPressed(gid, ebiten.StandardGamepadButtonRightBottom)
		gpCarryJustPressed = inpututil.IsStandardGamepadButtonJustPressed(gid, ebiten.StandardGamepadButtonRightLeft)
		gpDetachJustPressed = inpututil.IsStandardGamepadButtonJustPressed(gid, ebiten.StandardGamepadButtonRightRight)
	}

	i.MoveX = moveX

	i.JumpPressed = inpututil.IsKeyJustPressed(ebiten.KeySpace) || gpJumpJustPressed
	i.JumpHeld = ebiten.IsKeyPressed(ebiten.KeySpace) || gpJumpHeld

	i.CarryPressed = inpututil.IsKeyJustPressed(ebiten.KeyE) || gpCarryJustPressed
	i.DetachPressed = inpututil.IsKeyJustPressed(ebiten.KeyQ) || gpDetachJustPressed

	i.AttackPressed = inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft)
	i.CancelPressed = inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight)

	i.DumpPressed = inpututil.IsKeyJustPressed(ebiten.KeyF8)
}
