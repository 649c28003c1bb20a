package scene

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	sectionScene        = "SCENE"
	sectionWorld        = "WORLD"
	sectionCamera       = "CAMERA"
	sectionPlayer       = "PLAYER"
	sectionObstacles    = "OBSTACLES"
	sectionCollectibles = "COLLECTIBLES"
	sectionEnemies      = "ENEMIES"
)

// Parse reads the sectioned key=value scene format.
// Unknown sections and keys are ignored. Lines starting with '#' are comments.
func Parse(r io.Reader) (*Definition, error) {
	def := NewDefinition("")
	sc := bufio.NewScanner(r)

	var section string
	content := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		content = true

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		var err error
		switch section {
		case sectionObstacles:
			err = parseObstacle(def, line)
		case sectionCollectibles:
			err = parseCollectible(def, line)
		case sectionEnemies:
			err = parseEnemy(def, line)
		default:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			err = parseField(def, section, strings.TrimSpace(key), strings.TrimSpace(value))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !content {
		return nil, ErrEmpty
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// ParseFile parses the scene file at path
func ParseFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path) // #nosec G304 - scene paths come from the registry
	if err != nil {
		return nil, err
	}
	def, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	return def, nil
}

func parseField(def *Definition, section, key, value string) error {
	var err error
	switch section {
	case sectionScene:
		switch key {
		case "name":
			def.Name = value
		case "description":
			def.Description = value
		case "nextScene":
			def.NextScene = value
		case "transitionTrigger":
			def.TransitionTrigger = value
		}
	case sectionWorld:
		switch key {
		case "width":
			def.World.Width, err = parseFloat(value)
		case "height":
			def.World.Height, err = parseFloat(value)
		case "backgroundMusic":
			def.World.BackgroundMusic = value
		}
	case sectionCamera:
		switch key {
		case "followSpeed":
			def.Camera.FollowSpeed, err = parseFloat(value)
		case "followEnabled":
			def.Camera.FollowEnabled, err = strconv.ParseBool(value)
		}
	case sectionPlayer:
		switch key {
		case "spawnX":
			def.PlayerSpawn.X, err = parseFloat(value)
		case "spawnY":
			def.PlayerSpawn.Y, err = parseFloat(value)
		}
	}
	if err != nil {
		return fmt.Errorf("%s.%s: %v", section, key, err)
	}
	return nil
}

func parseRecord(line string, want int) ([]float64, error) {
	parts := strings.Split(line, ",")
	if len(parts) < want {
		return nil, fmt.Errorf("record %q has %d fields, want %d", line, len(parts), want)
	}
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := parseFloat(p)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseObstacle(def *Definition, line string) error {
	v, err := parseRecord(line, 4)
	if err != nil {
		return err
	}
	def.Obstacles = append(def.Obstacles, Obstacle{X: v[0], Y: v[1], Width: v[2], Height: v[3]})
	return nil
}

func parseCollectible(def *Definition, line string) error {
	v, err := parseRecord(line, 2)
	if err != nil {
		return err
	}
	def.Collectibles = append(def.Collectibles, Collectible{X: v[0], Y: v[1]})
	return nil
}

func parseEnemy(def *Definition, line string) error {
	v, err := parseRecord(line, 4)
	if err != nil {
		return err
	}
	p := Pattern(int(v[2]))
	if float64(p) != v[2] || !p.valid() {
		return fmt.Errorf("unknown movement pattern %v", v[2])
	}
	def.Enemies = append(def.Enemies, Enemy{X: v[0], Y: v[1], Pattern: p, Speed: v[3]})
	return nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Write serialises def in the format read by Parse
func Write(w io.Writer, def *Definition) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "[%s]\n", sectionScene)
	fmt.Fprintf(bw, "name=%s\n", def.Name)
	fmt.Fprintf(bw, "description=%s\n", def.Description)
	fmt.Fprintf(bw, "nextScene=%s\n", def.NextScene)
	fmt.Fprintf(bw, "transitionTrigger=%s\n", def.TransitionTrigger)

	fmt.Fprintf(bw, "\n[%s]\n", sectionWorld)
	fmt.Fprintf(bw, "width=%s\n", formatFloat(def.World.Width))
	fmt.Fprintf(bw, "height=%s\n", formatFloat(def.World.Height))
	fmt.Fprintf(bw, "backgroundMusic=%s\n", def.World.BackgroundMusic)

	fmt.Fprintf(bw, "\n[%s]\n", sectionCamera)
	fmt.Fprintf(bw, "followSpeed=%s\n", formatFloat(def.Camera.FollowSpeed))
	fmt.Fprintf(bw, "followEnabled=%t\n", def.Camera.FollowEnabled)

	fmt.Fprintf(bw, "\n[%s]\n", sectionPlayer)
	fmt.Fprintf(bw, "spawnX=%s\n", formatFloat(def.PlayerSpawn.X))
	fmt.Fprintf(bw, "spawnY=%s\n", formatFloat(def.PlayerSpawn.Y))

	fmt.Fprintf(bw, "\n[%s]\n", sectionObstacles)
	for _, o := range def.Obstacles {
		fmt.Fprintf(bw, "%s,%s,%s,%s\n", formatFloat(o.X), formatFloat(o.Y), formatFloat(o.Width), formatFloat(o.Height))
	}

	fmt.Fprintf(bw, "\n[%s]\n", sectionCollectibles)
	for _, c := range def.Collectibles {
		fmt.Fprintf(bw, "%s,%s\n", formatFloat(c.X), formatFloat(c.Y))
	}

	fmt.Fprintf(bw, "\n[%s]\n", sectionEnemies)
	for _, e := range def.Enemies {
		fmt.Fprintf(bw, "%s,%s,%d,%s\n", formatFloat(e.X), formatFloat(e.Y), int(e.Pattern), formatFloat(e.Speed))
	}

	return bw.Flush()
}

// WriteFile writes def to path, replacing any existing file
func WriteFile(path string, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, def); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644) // #nosec G306 - scene files are not secret
}
