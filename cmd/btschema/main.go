package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"battlecore/internal/config"
)

type target struct {
	file  string
	title string
	desc  string
	v     any
}

var targets = []target{
	{
		file:  "units.schema.json",
		title: "Battlecore Unit Types",
		desc:  "Validates designer-authored unit definitions in " + config.UnitsFileName,
		v:     new(config.UnitsFile),
	},
	{
		file:  "trees.schema.json",
		title: "Battlecore Behavior Trees",
		desc:  "Validates behavior tree specs in " + config.TreesFileName,
		v:     new(config.TreesFile),
	},
	{
		file:  "scenario.schema.json",
		title: "Battlecore Scenario",
		desc:  "Validates a battle scenario such as " + config.ScenarioFileName,
		v:     new(config.ScenarioFile),
	},
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write the JSON schemas into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	for _, t := range targets {
		path := filepath.Join(outDir, t.file)
		if err := writeSchema(path, buildSchema(t)); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", t.file, err)
			os.Exit(1)
		}
	}
}

func buildSchema(t target) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(t.v)
	schema.Title = t.title
	schema.Description = t.desc
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	return os.Rename(tmpPath, outPath)
}
