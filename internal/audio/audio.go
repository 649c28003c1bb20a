// Package audio is the sound subsystem that hot reload swaps decoded sounds into.
package audio

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leslieo2/go-asset-reload/internal/decode"
)

var (
	ErrNotInitialized = errors.New("audio system not initialized")
	ErrUnknownSound   = errors.New("unknown sound")
)

// Instance is one playback of a sound. It keeps the sound it started with.
type Instance struct {
	ID       string
	Sound    *decode.Sound
	Volume   float64
	position time.Duration
}

func (i *Instance) Position() time.Duration { return i.position }

func (i *Instance) Done() bool { return i.position >= i.Sound.Duration() }

// System owns decoded sounds and the instances playing them
type System struct {
	decoder decode.SoundDecoder
	logger  *zap.Logger

	mu           sync.RWMutex
	initialized  bool
	sounds       map[string]*decode.Sound
	playing      []*Instance
	masterVolume float64
}

func NewSystem(decoder decode.SoundDecoder, logger *zap.Logger) *System {
	if decoder == nil {
		decoder = decode.AudioDecoder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{
		decoder:      decoder,
		logger:       logger,
		sounds:       make(map[string]*decode.Sound),
		masterVolume: 1,
	}
}

func (s *System) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

// Shutdown stops every instance and releases every sound
func (s *System) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	s.sounds = make(map[string]*decode.Sound)
	s.playing = nil
}

func (s *System) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// LoadSound decodes path under id. An id already loaded is left alone.
func (s *System) LoadSound(id, path string) error {
	s.mu.RLock()
	initialized := s.initialized
	_, exists := s.sounds[id]
	s.mu.RUnlock()

	if !initialized {
		return ErrNotInitialized
	}
	if exists {
		return nil
	}

	snd, err := s.decoder.DecodeSound(path)
	if err != nil {
		s.logger.Error("Failed to load sound", zap.String("id", id), zap.String("path", path), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sounds[id]; !exists {
		s.sounds[id] = snd
	}
	return nil
}

// ReloadSound decodes path and swaps it in under id.
// The previous sound stays in place if decoding fails.
func (s *System) ReloadSound(id, path string) error {
	if !s.IsInitialized() {
		return ErrNotInitialized
	}

	snd, err := s.decoder.DecodeSound(path)
	if err != nil {
		s.logger.Error("Failed to reload sound, keeping previous version",
			zap.String("id", id), zap.String("path", path), zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sounds[id] = snd
	s.logger.Info("Sound reloaded", zap.String("id", id), zap.Duration("duration", snd.Duration()))
	return nil
}

func (s *System) UnloadSound(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sounds, id)
}

func (s *System) Sound(id string) (*decode.Sound, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snd, ok := s.sounds[id]
	return snd, ok
}

// Sounds returns the loaded sound ids, sorted
func (s *System) Sounds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sounds))
	for id := range s.sounds {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Play starts a new instance of the sound currently loaded under id
func (s *System) Play(id string) (*Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	snd, ok := s.sounds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSound, id)
	}
	inst := &Instance{ID: id, Sound: snd, Volume: s.masterVolume}
	s.playing = append(s.playing, inst)
	return inst, nil
}

// Update advances every instance by dt and retires finished ones
func (s *System) Update(dt time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = slices.DeleteFunc(s.playing, func(i *Instance) bool {
		i.position += dt
		return i.Done()
	})
}

// Playing returns the number of live instances
func (s *System) Playing() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.playing)
}

// SetMasterVolume clamps v to [0, 1]
func (s *System) SetMasterVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masterVolume = min(max(v, 0), 1)
}

func (s *System) MasterVolume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.masterVolume
}
