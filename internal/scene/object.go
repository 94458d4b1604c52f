package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Shape selects the procedural geometry drawn for an object.
type Shape int

const (
	ShapeBox Shape = iota
	ShapeIcosahedron
	ShapePlane
	ShapePlanet
)

func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeIcosahedron:
		return "icosahedron"
	case ShapePlane:
		return "plane"
	case ShapePlanet:
		return "planet"
	}
	return fmt.Sprintf("shape(%d)", int(s))
}

// ParseShape maps scene-file names to shapes.
func ParseShape(name string) (Shape, error) {
	switch name {
	case "box", "":
		return ShapeBox, nil
	case "icosahedron", "ico":
		return ShapeIcosahedron, nil
	case "plane":
		return ShapePlane, nil
	case "planet":
		return ShapePlanet, nil
	}
	return 0, fmt.Errorf("unknown shape %q", name)
}

// Object is a drawable attached to a node.
type Object struct {
	Shape Shape
	Color mgl64.Vec4
}

// Light is a point light attached to a node.
type Light struct {
	Position mgl64.Vec4
	Color    mgl64.Vec4
}
