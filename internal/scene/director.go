package scene

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrNotLoaded = errors.New("scene not loaded")
	ErrActive    = errors.New("scene is active")
)

const (
	patrolRange    = 100.0
	circularRadius = 50.0
)

// EnemyState is an enemy's current position
type EnemyState struct {
	Enemy
	Position Point `json:"position"`
}

// WorldState is the simulation built from the active definition
type WorldState struct {
	Scene        string        `json:"scene"`
	Generation   int           `json:"generation"`
	Elapsed      time.Duration `json:"elapsed"`
	Player       Point         `json:"player"`
	Obstacles    []Obstacle    `json:"obstacles"`
	Collectibles []Collectible `json:"collectibles"`
	Enemies      []EnemyState  `json:"enemies"`
}

func (w WorldState) clone() WorldState {
	w.Obstacles = slices.Clone(w.Obstacles)
	w.Collectibles = slices.Clone(w.Collectibles)
	w.Enemies = slices.Clone(w.Enemies)
	return w
}

// Director caches scene definitions and owns the world built from the active one
type Director struct {
	definitions *cache.Cache
	logger      *zap.Logger

	mu         sync.RWMutex
	active     string
	world      WorldState
	generation int
}

func NewDirector(logger *zap.Logger) *Director {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Director{
		definitions: cache.New(cache.NoExpiration, 0),
		logger:      logger,
	}
}

// Store caches a copy of def under name, replacing any previous definition
func (d *Director) Store(name string, def *Definition) {
	d.definitions.Set(name, def.Clone(), cache.NoExpiration)
}

// LoadFile parses path and caches it under name. A name already cached is left alone.
func (d *Director) LoadFile(name, path string) error {
	if _, ok := d.definitions.Get(name); ok {
		d.logger.Debug("Scene already loaded", zap.String("scene", name))
		return nil
	}
	def, err := ParseFile(path)
	if err != nil {
		d.logger.Error("Failed to load scene", zap.String("scene", name), zap.String("path", path), zap.Error(err))
		return err
	}
	d.Store(name, def)
	d.logger.Info("Scene loaded", zap.String("scene", name), zap.String("path", path))
	return nil
}

// Definition returns a copy of the cached definition
func (d *Director) Definition(name string) (*Definition, bool) {
	v, ok := d.definitions.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Definition).Clone(), true
}

// Names returns the cached scene names, sorted
func (d *Director) Names() []string {
	items := d.definitions.Items()
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (d *Director) ActiveScene() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// Activate builds the world for a cached scene and makes it active
func (d *Director) Activate(name string) error {
	def, ok := d.Definition(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == name {
		return nil
	}
	d.rebuild(name, def)
	d.logger.Info("Scene activated", zap.String("scene", name))
	return nil
}

// Restart tears down and rebuilds the active scene from its cached definition
func (d *Director) Restart() error {
	name := d.ActiveScene()
	if name == "" {
		return fmt.Errorf("%w: no active scene", ErrNotLoaded)
	}
	def, ok := d.Definition(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rebuild(name, def)
	d.logger.Info("Scene restarted", zap.String("scene", name))
	return nil
}

// RestartWith caches def under name and rebuilds the world from it
func (d *Director) RestartWith(name string, def *Definition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrInvalidDefinition)
	}
	if err := def.Validate(); err != nil {
		return err
	}
	d.Store(name, def)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.rebuild(name, def.Clone())
	d.logger.Info("Scene restarted with new definition",
		zap.String("scene", name),
		zap.Int("obstacles", len(def.Obstacles)),
		zap.Int("collectibles", len(def.Collectibles)),
		zap.Int("enemies", len(def.Enemies)))
	return nil
}

// rebuild must be called with d.mu held
func (d *Director) rebuild(name string, def *Definition) {
	d.generation++
	enemies := make([]EnemyState, len(def.Enemies))
	for i, e := range def.Enemies {
		enemies[i] = EnemyState{Enemy: e, Position: Point{X: e.X, Y: e.Y}}
	}
	d.active = name
	d.world = WorldState{
		Scene:        name,
		Generation:   d.generation,
		Player:       def.PlayerSpawn,
		Obstacles:    slices.Clone(def.Obstacles),
		Collectibles: slices.Clone(def.Collectibles),
		Enemies:      enemies,
	}
}

// World returns a snapshot of the current world
func (d *Director) World() WorldState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.world.clone()
}

// Update advances enemy movement by dt
func (d *Director) Update(dt time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == "" {
		return
	}
	d.world.Elapsed += dt
	t := d.world.Elapsed.Seconds()
	for i := range d.world.Enemies {
		e := &d.world.Enemies[i]
		e.Position = enemyPosition(e.Enemy, t)
	}
}

func enemyPosition(e Enemy, t float64) Point {
	switch e.Pattern {
	case PatternHorizontal:
		return Point{X: e.X + patrolRange*math.Sin(t*e.Speed/patrolRange), Y: e.Y}
	case PatternVertical:
		return Point{X: e.X, Y: e.Y + patrolRange*math.Sin(t*e.Speed/patrolRange)}
	case PatternCircular:
		a := t * e.Speed / circularRadius
		return Point{X: e.X + circularRadius*math.Cos(a), Y: e.Y + circularRadius*math.Sin(a)}
	case PatternPatrol:
		// triangle wave over twice the patrol range
		span := 2 * patrolRange
		p := math.Mod(t*e.Speed, 2*span)
		if p > span {
			p = 2*span - p
		}
		return Point{X: e.X + p - patrolRange, Y: e.Y}
	default:
		return Point{X: e.X, Y: e.Y}
	}
}

// Unload drops a cached definition. The active scene cannot be unloaded.
func (d *Director) Unload(name string) error {
	if d.ActiveScene() == name {
		d.logger.Warn("Cannot unload active scene", zap.String("scene", name))
		return fmt.Errorf("%w: %s", ErrActive, name)
	}
	d.definitions.Delete(name)
	return nil
}

// UnloadAll drops every definition and tears down the world
func (d *Director) UnloadAll() {
	d.definitions.Flush()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = ""
	d.world = WorldState{}
}
