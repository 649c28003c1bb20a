package hotreload

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leslieo2/go-asset-reload/internal/asset"
	"github.com/leslieo2/go-asset-reload/internal/assettest"
	"github.com/leslieo2/go-asset-reload/internal/scene"
)

type fakeStore struct {
	assets    map[string]asset.Asset
	refreshed []string
	err       error
}

func (f *fakeStore) Lookup(id string) (asset.Asset, bool) {
	a, ok := f.assets[id]
	return a, ok
}

func (f *fakeStore) Refresh(_ context.Context, id string) error {
	f.refreshed = append(f.refreshed, id)
	return f.err
}

func (f *fakeStore) Scene(string) (*scene.Definition, bool) { return nil, false }

type fakeScenes struct {
	active    string
	stored    map[string]*scene.Definition
	restarted []string
	err       error
}

func (f *fakeScenes) ActiveScene() string { return f.active }

func (f *fakeScenes) Store(name string, def *scene.Definition) {
	if f.stored == nil {
		f.stored = make(map[string]*scene.Definition)
	}
	f.stored[name] = def
}

func (f *fakeScenes) RestartWith(name string, def *scene.Definition) error {
	if f.err != nil {
		return f.err
	}
	f.restarted = append(f.restarted, name)
	return nil
}

type fakeAudio struct {
	reloaded []string
	err      error
}

func (f *fakeAudio) ReloadSound(id, _ string) error {
	f.reloaded = append(f.reloaded, id)
	return f.err
}

func newFakeCoordinator() (*Coordinator, *fakeStore, *fakeScenes, *fakeAudio) {
	store := &fakeStore{assets: map[string]asset.Asset{}}
	scenes := &fakeScenes{}
	sounds := &fakeAudio{}
	c := NewCoordinator(Dependencies{Registry: store, Scenes: scenes, Audio: sounds}, nil, nil, nil, nil)
	return c, store, scenes, sounds
}

func TestCoordinator_SceneRestartFailure(t *testing.T) {
	c, _, scenes, _ := newFakeCoordinator()
	scenes.active = "level1"
	scenes.err = errors.New("world rebuild failed")
	path := assettest.Write(t, filepath.Join(t.TempDir(), "level1.scene"), []byte(sceneA))

	ev := c.Apply(context.Background(), Request{Category: asset.CategoryScene, ID: "level1", Path: path})
	assert.ErrorIs(t, ev.Err, scenes.err)
	assert.Empty(t, scenes.stored)
}

func TestCoordinator_SceneStoredWhenInactive(t *testing.T) {
	c, store, scenes, _ := newFakeCoordinator()
	scenes.active = "menu"
	path := assettest.Write(t, filepath.Join(t.TempDir(), "level1.scene"), []byte(sceneA))

	ev := c.Apply(context.Background(), Request{Category: asset.CategoryScene, ID: "level1", Path: path})
	require.NoError(t, ev.Err)
	require.Contains(t, scenes.stored, "level1")
	assert.Equal(t, "Level 1", scenes.stored["level1"].Name)
	assert.Empty(t, scenes.restarted)
	assert.Empty(t, store.refreshed, "registry is only refreshed when it tracks the scene")
}

func TestCoordinator_AudioRefreshesTrackedRegistryCopy(t *testing.T) {
	c, store, _, sounds := newFakeCoordinator()
	store.assets["theme"] = asset.Asset{ID: "theme", Category: asset.CategoryAudio, SourcePath: "/res/theme.wav", IsLoaded: true}

	ev := c.Apply(context.Background(), Request{Category: asset.CategoryAudio, ID: "theme", Path: "/res/theme.wav"})
	require.NoError(t, ev.Err)
	assert.Equal(t, []string{"theme"}, sounds.reloaded)
	assert.Equal(t, []string{"theme"}, store.refreshed)

	ev = c.Apply(context.Background(), Request{Category: asset.CategoryAudio, ID: "theme", Path: "/elsewhere/theme.wav"})
	require.NoError(t, ev.Err)
	assert.Len(t, store.refreshed, 1, "a different source path is not the registry's copy")
}

func TestCoordinator_AudioFailureSkipsRegistry(t *testing.T) {
	c, store, _, sounds := newFakeCoordinator()
	store.assets["theme"] = asset.Asset{ID: "theme", Category: asset.CategoryAudio, SourcePath: "/res/theme.wav", IsLoaded: true}
	sounds.err = errors.New("bad header")

	ev := c.Apply(context.Background(), Request{Category: asset.CategoryAudio, ID: "theme", Path: "/res/theme.wav"})
	assert.ErrorIs(t, ev.Err, sounds.err)
	assert.Empty(t, store.refreshed)
}

func TestCoordinator_FontRefresh(t *testing.T) {
	c, store, _, _ := newFakeCoordinator()
	store.assets["ui"] = asset.Asset{ID: "ui", Category: asset.CategoryFont, SourcePath: "/res/ui.ttf", IsLoaded: true}

	ev := c.Apply(context.Background(), Request{Category: asset.CategoryFont, ID: "ui", Path: "/res/ui.ttf"})
	require.NoError(t, ev.Err)
	assert.Equal(t, []string{"ui"}, store.refreshed)
	assert.Equal(t, asset.CategoryFont, ev.Category)
}

func TestCoordinator_UnknownCategory(t *testing.T) {
	c, _, _, _ := newFakeCoordinator()
	ev := c.Apply(context.Background(), Request{Category: asset.Category(42), ID: "x"})
	assert.Error(t, ev.Err)
}
