package asset

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Category is the closed set of asset kinds
type Category int

const (
	CategoryTexture Category = iota
	CategoryAudio
	CategoryScene
	CategoryFont
)

var categoryNames = [...]string{
	CategoryTexture: "texture",
	CategoryAudio:   "audio",
	CategoryScene:   "scene",
	CategoryFont:    "font",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory accepts the category names case-insensitively
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "texture", "image":
		return CategoryTexture, nil
	case "audio", "sound":
		return CategoryAudio, nil
	case "scene", "scenedefinition":
		return CategoryScene, nil
	case "font":
		return CategoryFont, nil
	}
	return 0, fmt.Errorf("unknown asset category %q", s)
}

// Categories returns every category in declaration order
func Categories() []Category {
	return []Category{CategoryTexture, CategoryAudio, CategoryScene, CategoryFont}
}

var extensionTable = map[Category][]string{
	CategoryTexture: {".png", ".jpg", ".jpeg", ".bmp", ".tga"},
	CategoryAudio:   {".mp3", ".wav", ".ogg", ".flac"},
	CategoryScene:   {".scene"},
	CategoryFont:    {".ttf", ".otf"},
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// CategoryFromExtension maps a file extension to its category.
// Unrecognised extensions map to CategoryTexture.
func CategoryFromExtension(ext string) Category {
	ext = normalizeExt(ext)
	for _, c := range Categories() {
		if slices.Contains(extensionTable[c], ext) {
			return c
		}
	}
	return CategoryTexture
}

// CategoryForPath applies CategoryFromExtension to the extension of path
func CategoryForPath(path string) Category {
	return CategoryFromExtension(filepath.Ext(path))
}

// IsValidAssetFile reports whether path carries one of c's extensions.
// There is no fallback here.
func IsValidAssetFile(path string, c Category) bool {
	return slices.Contains(extensionTable[c], normalizeExt(filepath.Ext(path)))
}

// IsKnownExtension reports whether any category lists ext
func IsKnownExtension(ext string) bool {
	ext = normalizeExt(ext)
	for _, exts := range extensionTable {
		if slices.Contains(exts, ext) {
			return true
		}
	}
	return false
}

// Extensions returns a copy of the extensions recognised for c
func Extensions(c Category) []string {
	return slices.Clone(extensionTable[c])
}
