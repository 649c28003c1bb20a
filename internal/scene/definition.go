// Package scene holds scene definitions, their text format and the
// Director that owns the active scene.
package scene

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrEmpty             = errors.New("scene file has no content")
	ErrSyntax            = errors.New("scene syntax error")
	ErrInvalidDefinition = errors.New("invalid scene definition")
)

// Pattern is an enemy movement pattern
type Pattern int

const (
	PatternHorizontal Pattern = iota
	PatternVertical
	PatternCircular
	PatternPatrol
)

func (p Pattern) String() string {
	switch p {
	case PatternHorizontal:
		return "horizontal"
	case PatternVertical:
		return "vertical"
	case PatternCircular:
		return "circular"
	case PatternPatrol:
		return "patrol"
	default:
		return fmt.Sprintf("Pattern(%d)", int(p))
	}
}

func (p Pattern) valid() bool {
	return p >= PatternHorizontal && p <= PatternPatrol
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Obstacle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type Collectible struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Enemy struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Pattern Pattern `json:"pattern"`
	Speed   float64 `json:"speed"`
}

type World struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	BackgroundMusic string  `json:"background_music,omitempty"`
}

type Camera struct {
	FollowSpeed   float64 `json:"follow_speed"`
	FollowEnabled bool    `json:"follow_enabled"`
}

// Definition is the declarative content of one scene file
type Definition struct {
	Name              string        `json:"name"`
	Description       string        `json:"description,omitempty"`
	NextScene         string        `json:"next_scene,omitempty"`
	TransitionTrigger string        `json:"transition_trigger"`
	World             World         `json:"world"`
	Camera            Camera        `json:"camera"`
	PlayerSpawn       Point         `json:"player_spawn"`
	Obstacles         []Obstacle    `json:"obstacles"`
	Collectibles      []Collectible `json:"collectibles"`
	Enemies           []Enemy       `json:"enemies"`
}

const (
	DefaultName              = "Untitled Scene"
	DefaultTransitionTrigger = "manual"
	DefaultWorldWidth        = 2000
	DefaultWorldHeight       = 1500
	DefaultFollowSpeed       = 5
	DefaultSpawnX            = 100
	DefaultSpawnY            = 100
	DefaultEnemySpeed        = 100
)

// NewDefinition returns a definition populated with the format defaults
func NewDefinition(name string) *Definition {
	if name == "" {
		name = DefaultName
	}
	return &Definition{
		Name:              name,
		TransitionTrigger: DefaultTransitionTrigger,
		World:             World{Width: DefaultWorldWidth, Height: DefaultWorldHeight},
		Camera:            Camera{FollowSpeed: DefaultFollowSpeed, FollowEnabled: true},
		PlayerSpawn:       Point{X: DefaultSpawnX, Y: DefaultSpawnY},
	}
}

// Validate checks the invariants a scene needs before it can be built
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	if d.World.Width <= 0 || d.World.Height <= 0 {
		return fmt.Errorf("%w: world dimensions must be positive", ErrInvalidDefinition)
	}
	for i, e := range d.Enemies {
		if !e.Pattern.valid() {
			return fmt.Errorf("%w: enemy %d has unknown pattern %d", ErrInvalidDefinition, i, e.Pattern)
		}
	}
	return nil
}

func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := *d
	c.Obstacles = slices.Clone(d.Obstacles)
	c.Collectibles = slices.Clone(d.Collectibles)
	c.Enemies = slices.Clone(d.Enemies)
	return &c
}

func (d *Definition) Equal(o *Definition) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Name == o.Name &&
		d.Description == o.Description &&
		d.NextScene == o.NextScene &&
		d.TransitionTrigger == o.TransitionTrigger &&
		d.World == o.World &&
		d.Camera == o.Camera &&
		d.PlayerSpawn == o.PlayerSpawn &&
		slices.Equal(d.Obstacles, o.Obstacles) &&
		slices.Equal(d.Collectibles, o.Collectibles) &&
		slices.Equal(d.Enemies, o.Enemies)
}
