package data

import (
	"errors"
	"fmt"
	"math"
	"os"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Vec3 is a position or Euler angle triple as written in scene files.
type Vec3 [3]float64

// Planet describes the body every actor falls toward.
type Planet struct {
	Radius  float64 `yaml:"radius"`
	Gravity float64 `yaml:"gravity"`
	Seed    int64   `yaml:"seed"`
}

// ActorSpec is one actor placed by a scene file.
type ActorSpec struct {
	Name       string     `yaml:"name"`
	Shape      string     `yaml:"shape"`   // box | icosahedron
	Control    string     `yaml:"control"` // player | script
	Position   Vec3       `yaml:"position"`
	Rotation   Vec3       `yaml:"rotation"` // Euler degrees, applied Y then X then Z
	Mass       float64    `yaml:"mass"`
	HalfExtent float64    `yaml:"half_extent"`
	Color      [4]float64 `yaml:"color"`
	Lifetime   float64    `yaml:"lifetime"` // seconds; 0 lives forever
}

// Scene is a parsed scene file.
type Scene struct {
	Planet Planet `yaml:"planet"`
	// PointAbove is where the sun sits over; defaults to the player's or
	// the first actor's position.
	PointAbove *Vec3       `yaml:"point_above"`
	Actors     []ActorSpec `yaml:"actors"`
}

// Sun returns the point the scene light is placed above.
func (s *Scene) Sun() Vec3 {
	if s.PointAbove != nil {
		return *s.PointAbove
	}
	for _, a := range s.Actors {
		if a.Control == "player" {
			return a.Position
		}
	}
	if len(s.Actors) > 0 {
		return s.Actors[0].Position
	}
	return Vec3{0, s.Planet.Radius, 0}
}

var defaultColor = [4]float64{1, 0, 0, 1}

// LoadScene reads and validates a scene definition from YAML.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: read %s: %w", path, err)
	}
	s, err := ParseScene(raw)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", path, err)
	}
	return s, nil
}

// ParseScene decodes a scene, fills defaults, and validates it.
func ParseScene(raw []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	for i := range s.Actors {
		s.Actors[i].Normalize(fmt.Sprintf("actor-%d", i))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the planet and every actor, reporting all problems.
func (s *Scene) Validate() error {
	var errs []error
	if !(s.Planet.Radius > 0) || !finite(s.Planet.Radius) {
		errs = append(errs, fmt.Errorf("planet.radius must be positive, got %g", s.Planet.Radius))
	}
	if !finite(s.Planet.Gravity) {
		errs = append(errs, fmt.Errorf("planet.gravity must be finite, got %g", s.Planet.Gravity))
	} else if s.Planet.Gravity < 0 {
		errs = append(errs, fmt.Errorf("planet.gravity must not be negative, got %g", s.Planet.Gravity))
	}
	players := 0
	names := make(map[string]int, len(s.Actors))
	for i, a := range s.Actors {
		if err := a.Validate(); err != nil {
			errs = append(errs, err)
		}
		if a.Control == "player" {
			players++
		}
		if j, dup := names[a.Name]; dup {
			errs = append(errs, fmt.Errorf("actor %q: duplicate of actor %d", a.Name, j))
		}
		names[a.Name] = i
	}
	if players > 1 {
		errs = append(errs, fmt.Errorf("%d player actors, at most one allowed", players))
	}
	return errors.Join(errs...)
}

// Normalize puts the name in NFC and fills unset fields. fallback names an
// actor whose name is empty.
func (a *ActorSpec) Normalize(fallback string) {
	a.Name = norm.NFC.String(a.Name)
	if a.Name == "" {
		a.Name = fallback
	}
	if a.HalfExtent == 0 {
		a.HalfExtent = 1
	}
	if a.Color == ([4]float64{}) {
		a.Color = defaultColor
	}
}

// Validate checks one actor on its own.
func (a ActorSpec) Validate() error {
	var errs []error
	switch a.Shape {
	case "", "box", "icosahedron", "ico":
	default:
		errs = append(errs, fmt.Errorf("actor %q: unknown shape %q", a.Name, a.Shape))
	}
	switch a.Control {
	case "", "script", "player":
	default:
		errs = append(errs, fmt.Errorf("actor %q: unknown control %q", a.Name, a.Control))
	}
	for _, f := range []struct {
		name string
		v    []float64
	}{
		{"position", a.Position[:]},
		{"rotation", a.Rotation[:]},
		{"mass", []float64{a.Mass}},
		{"half_extent", []float64{a.HalfExtent}},
		{"lifetime", []float64{a.Lifetime}},
		{"color", a.Color[:]},
	} {
		if !finite(f.v...) {
			errs = append(errs, fmt.Errorf("actor %q: %s must be finite", a.Name, f.name))
		}
	}
	if a.Mass < 0 {
		errs = append(errs, fmt.Errorf("actor %q: mass must not be negative", a.Name))
	}
	if a.HalfExtent < 0 {
		errs = append(errs, fmt.Errorf("actor %q: half_extent must not be negative", a.Name))
	}
	if a.Lifetime < 0 {
		errs = append(errs, fmt.Errorf("actor %q: lifetime must not be negative", a.Name))
	}
	return errors.Join(errs...)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
