package asset

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leslieo2/go-asset-reload/internal/assettest"
)

func TestRegistry_LoadManifest(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "assets.yaml",
			content: `assets:
  - id: hero
    path: textures/hero.png
    pixelated: true
  - path: audio/jump.wav
  - id: odd
    path: textures/odd.dat
`,
		},
		{
			name: "json",
			file: "assets.json",
			content: `{"assets": [
  {"id": "hero", "path": "textures/hero.png", "pixelated": true},
  {"path": "audio/jump.wav"},
  {"id": "odd", "path": "textures/odd.dat"}
]}`,
		},
		{
			name: "toml",
			file: "assets.toml",
			content: `[[assets]]
id = "hero"
path = "textures/hero.png"
pixelated = true

[[assets]]
path = "audio/jump.wav"

[[assets]]
id = "odd"
path = "textures/odd.dat"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writePNG(t, filepath.Join(root, "textures"), "hero.png", 2, 2)
			writePNG(t, filepath.Join(root, "textures"), "odd.dat", 2, 2)
			assettest.Write(t, filepath.Join(root, "audio", "jump.wav"), assettest.WAV(8000, 1, assettest.Tone(10, 100)))
			manifest := assettest.Write(t, filepath.Join(root, tt.file), []byte(tt.content))

			r := newRegistry(t)
			require.NoError(t, r.LoadManifest(context.Background(), manifest))

			hero, ok := r.Lookup("hero")
			require.True(t, ok)
			assert.True(t, hero.Options.Pixelated)
			assert.Equal(t, filepath.Join(root, "textures", "hero.png"), hero.SourcePath)

			jump, ok := r.Lookup("jump")
			require.True(t, ok)
			assert.Equal(t, CategoryAudio, jump.Category)

			// unknown extension falls back to texture
			odd, ok := r.Lookup("odd")
			require.True(t, ok)
			assert.Equal(t, CategoryTexture, odd.Category)
		})
	}
}

func TestRegistry_LoadManifestAttemptsEveryEntry(t *testing.T) {
	root := t.TempDir()
	writePNG(t, root, "good.png", 1, 1)
	manifest := assettest.Write(t, filepath.Join(root, "m.yaml"), []byte(`assets:
  - id: missing
    path: missing.png
  - id: weird
    path: good.png
    category: mesh
  - id: good
    path: good.png
    category: texture
`))

	r := newRegistry(t)
	err := r.LoadManifest(context.Background(), manifest)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "mesh")
	assert.True(t, r.IsLoaded("good"))
	assert.False(t, r.IsLoaded("weird"))
}

func TestReadManifest_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadManifest(filepath.Join(dir, "absent.yaml"))
	assert.ErrorIs(t, err, ErrNotFound)

	ini := assettest.Write(t, filepath.Join(dir, "m.ini"), []byte("x"))
	_, err = ReadManifest(ini)
	assert.Error(t, err)

	bad := assettest.Write(t, filepath.Join(dir, "m.json"), []byte("{"))
	_, err = ReadManifest(bad)
	assert.Error(t, err)

	r := NewRegistry()
	assert.ErrorIs(t, r.LoadManifest(context.Background(), bad), ErrNotInitialized)
}
