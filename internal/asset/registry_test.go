package asset

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leslieo2/go-asset-reload/internal/assettest"
	"github.com/leslieo2/go-asset-reload/internal/decode"
	"github.com/leslieo2/go-asset-reload/internal/observability"
	"github.com/leslieo2/go-asset-reload/internal/scene"
)

type callbackRecord struct {
	id       string
	category Category
	success  bool
}

type callbackRecorder struct {
	mu    sync.Mutex
	calls []callbackRecord
}

func (c *callbackRecorder) record(id string, cat Category, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, callbackRecord{id, cat, ok})
}

func (c *callbackRecorder) all() []callbackRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]callbackRecord(nil), c.calls...)
}

type failingTextures struct{}

func (failingTextures) DecodeTexture(string, decode.TextureOptions) (*decode.Texture, error) {
	return nil, errors.New("gpu upload failed")
}

func newRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r := NewRegistry(opts...)
	require.NoError(t, r.Initialize())
	t.Cleanup(r.Shutdown)
	return r
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	return assettest.Write(t, filepath.Join(dir, name), assettest.PNG(w, h, color.White))
}

func TestRegistry_NotInitialized(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writePNG(t, dir, "a.png", 2, 2)
	r := NewRegistry()

	assert.ErrorIs(t, r.Load(ctx, "a", path, CategoryTexture, LoadOptions{}), ErrNotInitialized)
	assert.ErrorIs(t, r.Unload("a"), ErrNotInitialized)
	assert.ErrorIs(t, r.UnloadAll(), ErrNotInitialized)
	assert.ErrorIs(t, r.Refresh(ctx, "a"), ErrNotInitialized)
	assert.ErrorIs(t, r.LoadDirectory(ctx, dir, CategoryTexture, false), ErrNotInitialized)
	_, err := r.Scan(dir, CategoryTexture, false)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, r.Preload(ctx), ErrNotInitialized)
	assert.Zero(t, r.AssetCount())

	require.NoError(t, r.Initialize())
	require.NoError(t, r.LoadTexture(ctx, "a", path, LoadOptions{}))
	r.Shutdown()

	assert.False(t, r.IsInitialized())
	assert.False(t, r.IsLoaded("a"))
	assert.Zero(t, r.AssetCount())
	assert.ErrorIs(t, r.Load(ctx, "a", path, CategoryTexture, LoadOptions{}), ErrNotInitialized)
	assert.Zero(t, r.AssetCount())
}

func TestRegistry_LoadGetUnload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	cb := &callbackRecorder{}
	r.SetLoadCallback(cb.record)

	path := writePNG(t, dir, "hero.png", 4, 4)
	require.NoError(t, r.LoadTexture(ctx, "hero", path, LoadOptions{MipMaps: true}))

	v, ok := r.Get("hero")
	require.True(t, ok)
	require.NotNil(t, v)
	tex, ok := r.Texture("hero")
	require.True(t, ok)
	assert.Same(t, v, tex)
	assert.Len(t, tex.MipLevels, 2)

	a, ok := r.Lookup("hero")
	require.True(t, ok)
	info, _ := os.Stat(path)
	assert.Equal(t, info.Size(), a.ByteSize)
	assert.True(t, a.IsLoaded)
	assert.Equal(t, CategoryTexture, a.Category)
	assert.NotEmpty(t, a.LoadID)
	assert.Equal(t, []callbackRecord{{"hero", CategoryTexture, true}}, cb.all())

	require.NoError(t, r.Unload("hero"))
	_, ok = r.Get("hero")
	assert.False(t, ok)
	_, ok = r.Lookup("hero")
	assert.False(t, ok)

	// unloading something absent is a no-op
	require.NoError(t, r.Unload("hero"))
}

func TestRegistry_LoadEachCategory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	wav := assettest.Write(t, filepath.Join(dir, "beep.wav"), assettest.WAV(8000, 1, assettest.Tone(80, 1000)))
	ttf := assettest.Write(t, filepath.Join(dir, "ui.ttf"), assettest.Font())
	lvl := filepath.Join(dir, "level1.scene")
	require.NoError(t, scene.WriteFile(lvl, scene.NewDefinition("level1")))

	require.NoError(t, r.LoadAudio(ctx, "beep", wav))
	require.NoError(t, r.LoadFont(ctx, "ui", ttf))
	require.NoError(t, r.LoadScene(ctx, "level1", lvl))

	snd, ok := r.Sound("beep")
	require.True(t, ok)
	assert.Equal(t, 80, snd.Frames())

	f, ok := r.Font("ui")
	require.True(t, ok)
	assert.NotNil(t, f.Face)

	def, ok := r.Scene("level1")
	require.True(t, ok)
	assert.Equal(t, "level1", def.Name)

	assert.Equal(t, []string{"beep", "level1", "ui"}, r.LoadedAssets())
	assert.Equal(t, []string{"beep"}, r.AssetsByCategory(CategoryAudio))
}

func TestRegistry_LoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	path := writePNG(t, dir, "tile.png", 2, 2)
	require.NoError(t, r.LoadTexture(ctx, "tile", path, LoadOptions{}))
	first, _ := r.Texture("tile")
	before, _ := r.Lookup("tile")

	writePNG(t, dir, "tile.png", 8, 8)
	require.NoError(t, r.LoadTexture(ctx, "tile", path, LoadOptions{}))

	second, _ := r.Texture("tile")
	after, _ := r.Lookup("tile")
	assert.Same(t, first, second)
	assert.Equal(t, before, after)
	assert.Equal(t, 2, second.Width())
}

func TestRegistry_LoadPolicyReplace(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t, WithLoadPolicy(LoadPolicyReplace))

	path := writePNG(t, dir, "tile.png", 2, 2)
	require.NoError(t, r.LoadTexture(ctx, "tile", path, LoadOptions{}))
	before, _ := r.Lookup("tile")

	writePNG(t, dir, "tile.png", 8, 8)
	require.NoError(t, r.LoadTexture(ctx, "tile", path, LoadOptions{}))

	tex, _ := r.Texture("tile")
	after, _ := r.Lookup("tile")
	assert.Equal(t, 8, tex.Width())
	assert.NotEqual(t, before.LoadID, after.LoadID)
	assert.Equal(t, LoadPolicyReplace, r.Policy())
}

func TestRegistry_LoadFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)
	cb := &callbackRecorder{}
	r.SetLoadCallback(cb.record)

	t.Run("empty id", func(t *testing.T) {
		assert.ErrorIs(t, r.Load(ctx, "", writePNG(t, dir, "x.png", 1, 1), CategoryTexture, LoadOptions{}), ErrInvalidID)
	})

	t.Run("missing file leaves no trace and fires no callback", func(t *testing.T) {
		err := r.LoadTexture(ctx, "ghost", filepath.Join(dir, "ghost.png"), LoadOptions{})
		assert.ErrorIs(t, err, ErrNotFound)
		_, ok := r.Lookup("ghost")
		assert.False(t, ok)
		assert.Empty(t, cb.all())
	})

	t.Run("decode failure fires callback with false", func(t *testing.T) {
		bad := assettest.Write(t, filepath.Join(dir, "bad.png"), []byte("garbage"))
		err := r.LoadTexture(ctx, "bad", bad, LoadOptions{})
		assert.ErrorIs(t, err, ErrDecode)
		_, ok := r.Lookup("bad")
		assert.False(t, ok)
		_, ok = r.Get("bad")
		assert.False(t, ok)
		assert.Equal(t, []callbackRecord{{"bad", CategoryTexture, false}}, cb.all())
	})

	t.Run("category conflict", func(t *testing.T) {
		path := writePNG(t, dir, "dual.png", 1, 1)
		require.NoError(t, r.LoadTexture(ctx, "dual", path, LoadOptions{}))
		err := r.LoadAudio(ctx, "dual", path)
		assert.ErrorIs(t, err, ErrCategoryConflict)
		assert.ErrorIs(t, r.UnloadAudio("dual"), ErrCategoryConflict)
		assert.True(t, r.IsLoaded("dual"))
		require.NoError(t, r.UnloadTexture("dual"))
	})
}

func TestRegistry_InjectedDecoderFailure(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, WithDecoders(decode.Decoders{Texture: failingTextures{}}))
	path := writePNG(t, t.TempDir(), "a.png", 1, 1)

	assert.ErrorIs(t, r.LoadTexture(ctx, "a", path, LoadOptions{}), ErrDecode)
	assert.Zero(t, r.AssetCount())
}

func TestRegistry_Reload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	assert.ErrorIs(t, r.Reload(ctx, "nope"), ErrNotFound)

	path := writePNG(t, dir, "bg.png", 2, 2)
	require.NoError(t, r.LoadTexture(ctx, "bg", path, LoadOptions{Pixelated: true, MipMaps: true}))
	before, _ := r.Lookup("bg")

	writePNG(t, dir, "bg.png", 16, 16)
	require.NoError(t, r.Reload(ctx, "bg"))

	after, ok := r.Lookup("bg")
	require.True(t, ok)
	tex, _ := r.Texture("bg")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "bg", after.ID)
	assert.Equal(t, info.Size(), after.ByteSize)
	assert.NotEqual(t, before.LoadID, after.LoadID)
	assert.Equal(t, 16, tex.Width())
	assert.Equal(t, before.Options, after.Options)
	assert.True(t, tex.Pixelated)
}

func TestRegistry_RefreshKeepsLastGood(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	assert.ErrorIs(t, r.Refresh(ctx, "nope"), ErrNotFound)

	path := writePNG(t, dir, "bg.png", 2, 2)
	require.NoError(t, r.LoadTexture(ctx, "bg", path, LoadOptions{}))
	good, _ := r.Texture("bg")
	goodMeta, _ := r.Lookup("bg")

	assettest.Write(t, path, []byte("half written"))
	assert.ErrorIs(t, r.Refresh(ctx, "bg"), ErrDecode)

	kept, ok := r.Texture("bg")
	require.True(t, ok)
	assert.Same(t, good, kept)
	meta, _ := r.Lookup("bg")
	assert.Equal(t, goodMeta, meta)

	require.NoError(t, os.Remove(path))
	assert.ErrorIs(t, r.Refresh(ctx, "bg"), ErrNotFound)
	assert.True(t, r.IsLoaded("bg"))

	writePNG(t, dir, "bg.png", 4, 4)
	require.NoError(t, r.Refresh(ctx, "bg"))
	fresh, _ := r.Texture("bg")
	assert.Equal(t, 4, fresh.Width())
}

func TestRegistry_UnloadByCategoryAndAll(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	require.NoError(t, r.LoadTexture(ctx, "a", writePNG(t, dir, "a.png", 1, 1), LoadOptions{}))
	require.NoError(t, r.LoadTexture(ctx, "b", writePNG(t, dir, "b.png", 1, 1), LoadOptions{}))
	wav := assettest.Write(t, filepath.Join(dir, "s.wav"), assettest.WAV(8000, 1, assettest.Tone(10, 100)))
	require.NoError(t, r.LoadAudio(ctx, "s", wav))

	require.NoError(t, r.UnloadByCategory(CategoryTexture))
	assert.Equal(t, []string{"s"}, r.LoadedAssets())

	require.NoError(t, r.UnloadAll())
	assert.Empty(t, r.LoadedAssets())
	assert.Zero(t, r.TotalMemoryUsage())
}

func TestRegistry_LoadDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		writePNG(t, dir, name, 2, 2)
	}
	assettest.Write(t, filepath.Join(dir, "corrupt.png"), []byte("nope"))
	assettest.Write(t, filepath.Join(dir, "readme.txt"), []byte("ignored"))
	writePNG(t, filepath.Join(dir, "nested"), "deep.png", 1, 1)

	err := r.LoadDirectory(ctx, dir, CategoryTexture, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)

	for _, id := range []string{"a", "b", "c"} {
		_, ok := r.Texture(id)
		assert.True(t, ok, id)
	}
	assert.False(t, r.IsLoaded("corrupt"))
	assert.False(t, r.IsLoaded("deep"))
	assert.False(t, r.IsLoaded("readme"))

	require.Error(t, r.LoadDirectory(ctx, dir, CategoryTexture, true))
	assert.True(t, r.IsLoaded("deep"))

	assert.ErrorIs(t, r.LoadDirectory(ctx, filepath.Join(dir, "missing"), CategoryTexture, false), ErrNotFound)
}

func TestRegistry_ScanAndPreload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	writePNG(t, dir, "a.png", 1, 1)
	writePNG(t, dir, "b.png", 1, 1)
	assettest.Write(t, filepath.Join(dir, "broken.png"), []byte("x"))

	ids, err := r.Scan(dir, CategoryTexture, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "broken"}, ids)
	assert.Equal(t, 3, r.AssetCount())
	assert.Empty(t, r.LoadedAssets())
	assert.Equal(t, []string{"a", "b", "broken"}, r.Discovered())

	again, err := r.Scan(dir, CategoryTexture, false)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, r.Preload(ctx, "a"))
	assert.Equal(t, []string{"a"}, r.LoadedAssets())

	err = r.Preload(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = r.Preload(ctx)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, []string{"a", "b"}, r.LoadedAssets())

	// failed load of a discovered id keeps the discovery record
	broken, ok := r.Lookup("broken")
	require.True(t, ok)
	assert.False(t, broken.IsLoaded)
	assert.Equal(t, filepath.Join(dir, "broken.png"), broken.SourcePath)
}

func TestRegistry_AutoDiscover(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "textures", "ui"), "button.png", 1, 1)
	assettest.Write(t, filepath.Join(root, "audio", "theme.wav"), assettest.WAV(8000, 1, assettest.Tone(10, 100)))
	assettest.Write(t, filepath.Join(root, "fonts", "mono.otf"), assettest.Font())
	assettest.Write(t, filepath.Join(root, "audio", "notes.txt"), []byte("not audio"))

	r := newRegistry(t, WithResourcesRoot(root, true))

	assert.Equal(t, 3, r.AssetCount())
	assert.Equal(t, 1, r.AssetCountByCategory(CategoryAudio))
	assert.Equal(t, 0, r.AssetCountByCategory(CategoryScene))
	a, ok := r.Lookup("button")
	require.True(t, ok)
	assert.Equal(t, CategoryTexture, a.Category)
	assert.False(t, a.IsLoaded)

	n, err := r.AutoDiscover()
	require.NoError(t, err)
	assert.Zero(t, n)

	missing := NewRegistry(WithResourcesRoot(filepath.Join(root, "nope"), false))
	require.NoError(t, missing.Initialize())
	_, err = missing.AutoDiscover()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_AutoDiscoverStemCollision(t *testing.T) {
	root := t.TempDir()
	texture := writePNG(t, filepath.Join(root, "textures"), "player.png", 1, 1)
	sound := assettest.Write(t, filepath.Join(root, "audio", "player.wav"), assettest.WAV(8000, 1, assettest.Tone(10, 100)))
	writePNG(t, filepath.Join(root, "textures"), "tiles.png", 1, 1)
	nested := writePNG(t, filepath.Join(root, "textures", "ui"), "tiles.png", 1, 1)

	core, logs := observer.New(zapcore.WarnLevel)
	r := newRegistry(t, WithLogger(zap.New(core)), WithResourcesRoot(root, false))

	n, err := r.AutoDiscover()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCategoryConflict)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Contains(t, err.Error(), sound)
	assert.Contains(t, err.Error(), nested)
	assert.Equal(t, 2, n)

	rec, ok := r.Lookup("player")
	require.True(t, ok)
	assert.Equal(t, CategoryTexture, rec.Category)
	assert.Equal(t, texture, rec.SourcePath)

	collisions := logs.FilterMessage("Discovered file collides with a recorded asset")
	require.Equal(t, 2, collisions.Len())
	players := collisions.FilterField(zap.String("id", "player")).All()
	require.Len(t, players, 1)
	fields := players[0].ContextMap()
	assert.Equal(t, "player", fields["id"])
	assert.Equal(t, sound, fields["path"])
	assert.Equal(t, "audio", fields["category"])
	assert.Equal(t, texture, fields["existing_path"])
	assert.Equal(t, "texture", fields["existing_category"])

	// files already recorded under their own path are left alone
	again, err := r.Scan(filepath.Join(root, "textures"), CategoryTexture, false)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Equal(t, 0, r.AssetCountByCategory(CategoryAudio))
}

func TestRegistry_LoadDirectorySameStem(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	png := writePNG(t, dir, "a.png", 2, 2)
	tga := assettest.Write(t, filepath.Join(dir, "a.tga"), assettest.TGA(3, 3, color.NRGBA{R: 255, A: 255}))

	core, logs := observer.New(zapcore.WarnLevel)
	r := newRegistry(t, WithLogger(zap.New(core)))

	require.NoError(t, r.LoadDirectory(ctx, dir, CategoryTexture, false))
	rec, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, png, rec.SourcePath)

	dupes := logs.FilterMessage("Asset id already loaded from another file").All()
	require.Len(t, dupes, 1)
	fields := dupes[0].ContextMap()
	assert.Equal(t, tga, fields["path"])
	assert.Equal(t, png, fields["loaded_path"])
	assert.Equal(t, "keep", fields["policy"])

	// the file holding the id is never reported against itself
	require.NoError(t, r.LoadDirectory(ctx, dir, CategoryTexture, false))
	dupes = logs.FilterMessage("Asset id already loaded from another file").All()
	require.Len(t, dupes, 2)
	assert.Equal(t, tga, dupes[1].ContextMap()["path"])
}

func TestRegistry_ValidateAndMissing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	pa := writePNG(t, dir, "a.png", 1, 1)
	pb := writePNG(t, dir, "b.png", 1, 1)
	require.NoError(t, r.LoadTexture(ctx, "a", pa, LoadOptions{}))
	require.NoError(t, r.LoadTexture(ctx, "b", pb, LoadOptions{}))

	assert.True(t, r.ValidateAll())
	assert.Empty(t, r.MissingAssets())

	require.NoError(t, os.Remove(pb))
	assert.False(t, r.ValidateAll())
	assert.Equal(t, []string{"b"}, r.MissingAssets())
	assert.True(t, r.ValidateAsset("a"))
	assert.False(t, r.ValidateAsset("b"))
	assert.False(t, r.ValidateAsset("unknown"))

	// payloads are untouched
	assert.True(t, r.IsLoaded("b"))

	for _, id := range r.MissingAssets() {
		a, _ := r.Lookup(id)
		_, err := os.Stat(a.SourcePath)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestRegistry_Stats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)

	pa := writePNG(t, dir, "a.png", 3, 3)
	pb := writePNG(t, dir, "b.png", 5, 5)
	require.NoError(t, r.LoadTexture(ctx, "b", pb, LoadOptions{}))
	require.NoError(t, r.LoadTexture(ctx, "a", pa, LoadOptions{}))

	ia, _ := os.Stat(pa)
	ib, _ := os.Stat(pb)
	assert.Equal(t, ia.Size()+ib.Size(), r.TotalMemoryUsage())
	assert.Equal(t, 2, r.AssetCount())

	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
}

func TestRegistry_Metrics(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := observability.NewMetrics()
	r := newRegistry(t, WithMetrics(m))

	require.NoError(t, r.LoadTexture(ctx, "a", writePNG(t, dir, "a.png", 1, 1), LoadOptions{}))
	_ = r.LoadTexture(ctx, "b", assettest.Write(t, filepath.Join(dir, "b.png"), []byte("x")), LoadOptions{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssetLoads.WithLabelValues("texture", observability.ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssetLoads.WithLabelValues("texture", observability.ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadedAssets.WithLabelValues("texture")))

	require.NoError(t, r.Unload("a"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LoadedAssets.WithLabelValues("texture")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AssetUnloads.WithLabelValues("texture")))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	r := newRegistry(t)
	path := writePNG(t, dir, "shared.png", 2, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = r.LoadTexture(ctx, "shared", path, LoadOptions{})
				_, _ = r.Get("shared")
				_ = r.Snapshot()
				_ = r.Refresh(ctx, "shared")
			}
		}()
	}
	wg.Wait()
	assert.True(t, r.IsLoaded("shared"))
}
