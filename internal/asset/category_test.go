package asset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want Category
	}{
		{".png", CategoryTexture},
		{".JPG", CategoryTexture},
		{"jpeg", CategoryTexture},
		{".bmp", CategoryTexture},
		{".tga", CategoryTexture},
		{".mp3", CategoryAudio},
		{".WAV", CategoryAudio},
		{".ogg", CategoryAudio},
		{".flac", CategoryAudio},
		{".scene", CategoryScene},
		{".ttf", CategoryFont},
		{".otf", CategoryFont},
		// unknown extensions fall back to texture
		{".txt", CategoryTexture},
		{"", CategoryTexture},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFromExtension(tt.ext))
		})
	}
	assert.Equal(t, CategoryScene, CategoryForPath("/a/b/level1.scene"))
}

func TestIsValidAssetFile(t *testing.T) {
	assert.True(t, IsValidAssetFile("hero.PNG", CategoryTexture))
	assert.False(t, IsValidAssetFile("notes.txt", CategoryTexture), "fallback does not apply")
	assert.False(t, IsValidAssetFile("hero.png", CategoryAudio))
	assert.True(t, IsValidAssetFile("theme.flac", CategoryAudio))
	assert.True(t, IsKnownExtension("OTF"))
	assert.False(t, IsKnownExtension(".txt"))
}

func TestExtensionsReturnsCopy(t *testing.T) {
	exts := Extensions(CategoryScene)
	require.Equal(t, []string{".scene"}, exts)
	exts[0] = ".broken"
	assert.Equal(t, []string{".scene"}, Extensions(CategoryScene))
}

func TestParseCategory(t *testing.T) {
	for _, c := range Categories() {
		got, err := ParseCategory(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseCategory(" SceneDefinition ")
	require.NoError(t, err)
	assert.Equal(t, CategoryScene, got)

	_, err = ParseCategory("mesh")
	assert.Error(t, err)
	assert.Equal(t, "Category(42)", Category(42).String())
}

func TestCategoryJSON(t *testing.T) {
	data, err := json.Marshal(struct{ C Category }{CategoryFont})
	require.NoError(t, err)
	assert.JSONEq(t, `{"C":"font"}`, string(data))

	var out struct{ C Category }
	require.NoError(t, json.Unmarshal([]byte(`{"C":"audio"}`), &out))
	assert.Equal(t, CategoryAudio, out.C)
	assert.Error(t, json.Unmarshal([]byte(`{"C":"mesh"}`), &out))
}

func TestStemID(t *testing.T) {
	assert.Equal(t, "player", StemID("/res/textures/player.png"))
	assert.Equal(t, "archive.tar", StemID("archive.tar.gz"))
	assert.Equal(t, "noext", StemID("dir/noext"))
}

func TestParseLoadPolicy(t *testing.T) {
	p, err := ParseLoadPolicy("Replace")
	require.NoError(t, err)
	assert.Equal(t, LoadPolicyReplace, p)

	p, err = ParseLoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, LoadPolicyKeep, p)

	_, err = ParseLoadPolicy("merge")
	assert.Error(t, err)
}
