package obj

import "github.com/jakecoffman/cp"

// Classification labels every collidable shape in the space so queries can
// include or exclude whole groups with an equality test instead of string
// tags. The label travels on cp.Shape.UserData.
type Classification uint8

const (
	ClassNone Classification = iota
	// ClassTerrain marks static level geometry. Environment queries count
	// only terrain as blocking.
	ClassTerrain
	// ClassMule marks the controlled body's own shapes.
	ClassMule
	// ClassCargoFree marks a cargo item simulated by the physics space.
	ClassCargoFree
	// ClassCargoAttached marks a cargo item whose simulation is suspended
	// because it is a member of the attachment graph.
	ClassCargoAttached
	// ClassProxy marks a proxy shadow sensor mirroring an attached item.
	ClassProxy
)

func (c Classification) String() string {
	switch c {
	case ClassTerrain:
		return "terrain"
	case ClassMule:
		return "mule"
	case ClassCargoFree:
		return "cargo"
	case ClassCargoAttached:
		return "attached"
	case ClassProxy:
		return "proxy"
	default:
		return "none"
	}
}

const (
	collisionTypeMule cp.CollisionType = iota + 1
	collisionTypeMuleGround
	collisionTypeSolid
	collisionTypeCargo
	collisionTypeProxy
)

// ClassOf reads the classification stored on a shape, ClassNone when the
// shape carries no label.
func ClassOf(shape *cp.Shape) Classification {
	if shape == nil {
		return ClassNone
	}
	if c, ok := shape.UserData.(Classification); ok {
		return c
	}
	return ClassNone
}

func setClass(shape *cp.Shape, c Classification) {
	if shape != nil {
		shape.UserData = c
	}
}
