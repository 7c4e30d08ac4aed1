package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"battlecore/internal/bt"
)

const unitsYAML = `
units:
  - name: knight
    tree: melee
    max_health: 100
    damage: 10
    range: 1.5
    attack_interval: 1
    speed: 2
    sight: 10
  - name: goblin
    tree: melee
    max_health: 40
    damage: 5
    range: 1
    attack_interval: 0.8
    speed: 2.5
    sight: 8
`

const treesYAML = `
trees:
  - name: melee
    gate: alive
    root:
      type: selector
      children:
        - type: cooldown
          duration: 2.5
          fail_on_cooldown: true
          children:
            - { type: leaf, name: attack }
        - { type: leaf, name: idle }
`

const scenarioYAML = `
name: duel
seed: 9
placement_time: 1
spawns:
  - { type: knight, team: player, at: { x: 0, y: 0 } }
  - { type: goblin, team: Enemy, at: { x: 8, y: 0 }, count: 3, spread: 1.5 }
`

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func validFiles() map[string]string {
	return map[string]string{
		UnitsFileName:    unitsYAML,
		TreesFileName:    treesYAML,
		ScenarioFileName: scenarioYAML,
	}
}

func TestLoadAll(t *testing.T) {
	b, err := LoadAll(writeDir(t, validFiles()), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := b.Catalog.Names(); len(got) != 2 || got[0] != "goblin" || got[1] != "knight" {
		t.Fatalf("catalog names %v", got)
	}
	tree := b.Trees.Trees[0]
	if tree.Gate != "alive" || tree.Root.Type != bt.TypeSelector {
		t.Fatalf("tree not decoded: %+v", tree)
	}
	cd := tree.Root.Children[0]
	if cd.Duration != 2.5 || !cd.FailOnCooldown || cd.Children[0].Name != "attack" {
		t.Fatalf("cooldown not decoded: %+v", cd)
	}
	sc := b.Scenario
	if sc.Dt != DefaultDt || sc.TimeLimit != DefaultTimeLimit {
		t.Fatalf("defaults not applied: dt=%v limit=%v", sc.Dt, sc.TimeLimit)
	}
	if sc.Spawns[0].Count != 1 || sc.Spawns[1].Count != 3 || sc.Spawns[1].At.X != 8 {
		t.Fatalf("spawns not decoded: %+v", sc.Spawns)
	}
}

func TestLoadAllSeparateScenario(t *testing.T) {
	files := validFiles()
	delete(files, ScenarioFileName)
	files["other.yaml"] = strings.Replace(scenarioYAML, "duel", "rematch", 1)
	dir := writeDir(t, files)
	b, err := LoadAll(dir, filepath.Join(dir, "other.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if b.Scenario.Name != "rematch" {
		t.Fatalf("loaded %q", b.Scenario.Name)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		file string
		from string
		to   string
	}{
		{"unknown tree", UnitsFileName, "tree: melee\n    max_health: 100", "tree: ranged\n    max_health: 100"},
		{"bad health", UnitsFileName, "max_health: 40", "max_health: 0"},
		{"unknown unit", ScenarioFileName, "type: goblin", "type: troll"},
		{"bad team", ScenarioFileName, "team: Enemy", "team: pirates"},
		{"negative count", ScenarioFileName, "count: 3", "count: -1"},
		{"negative timing", ScenarioFileName, "placement_time: 1", "placement_time: -1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			files := validFiles()
			if !strings.Contains(files[tc.file], tc.from) {
				t.Fatalf("fixture lacks %q", tc.from)
			}
			files[tc.file] = strings.Replace(files[tc.file], tc.from, tc.to, 1)
			_, err := LoadAll(writeDir(t, files), "")
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestDuplicateTree(t *testing.T) {
	files := validFiles()
	files[TreesFileName] = treesYAML + strings.TrimPrefix(treesYAML, "\ntrees:\n")
	_, err := LoadAll(writeDir(t, files), "")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestMissingFileAndBadYAML(t *testing.T) {
	files := validFiles()
	delete(files, TreesFileName)
	if _, err := LoadAll(writeDir(t, files), ""); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	files = validFiles()
	files[UnitsFileName] = "units: [\n"
	_, err := LoadAll(writeDir(t, files), "")
	if err == nil || !strings.Contains(err.Error(), UnitsFileName) {
		t.Fatalf("expected yaml error naming the file, got %v", err)
	}
}

func TestShippedAssetsLoad(t *testing.T) {
	b, err := LoadAll(filepath.Join("..", "..", "assets"), "")
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(b.Units.Units) == 0 || len(b.Trees.Trees) == 0 || len(b.Scenario.Spawns) == 0 {
		t.Fatal("assets are empty")
	}
}
