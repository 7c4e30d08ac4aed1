package bt

import (
	"errors"
	"fmt"
)

var ErrArity = errors.New("bt: wrong number of children")

// Node types accepted in a NodeSpec.
const (
	TypeSelector         = "selector"
	TypeReactiveSelector = "reactive"
	TypeSequence         = "sequence"
	TypeInverter         = "inverter"
	TypeSucceeder        = "succeeder"
	TypeCooldown         = "cooldown"
	TypeRepeater         = "repeater"
	TypeGuard            = "guard"
	TypeLeaf             = "leaf"
)

// Spec describes a named tree as designers write it in YAML.
type Spec struct {
	Name string   `yaml:"name" json:"name" jsonschema:"title=Tree name,description=Name unit types use to select this tree,minLength=1"`
	Gate string   `yaml:"gate,omitempty" json:"gate,omitempty" jsonschema:"description=Registered predicate that must hold for the tree to act"`
	Root NodeSpec `yaml:"root" json:"root" jsonschema:"description=Root node of the tree"`
}

type NodeSpec struct {
	Type string `yaml:"type" json:"type" jsonschema:"enum=selector,enum=reactive,enum=sequence,enum=inverter,enum=succeeder,enum=cooldown,enum=repeater,enum=guard,enum=leaf"`
	Name string `yaml:"name,omitempty" json:"name,omitempty" jsonschema:"description=Composite label or leaf name"`
	// Check names the predicate a guard evaluates.
	Check            string     `yaml:"check,omitempty" json:"check,omitempty" jsonschema:"description=Predicate evaluated by a guard"`
	Duration         float64    `yaml:"duration,omitempty" json:"duration,omitempty" jsonschema:"description=Cooldown length in seconds,minimum=0"`
	FailOnCooldown   bool       `yaml:"fail_on_cooldown,omitempty" json:"fail_on_cooldown,omitempty"`
	StampOnInterrupt bool       `yaml:"stamp_on_interrupt,omitempty" json:"stamp_on_interrupt,omitempty"`
	Times            int        `yaml:"times,omitempty" json:"times,omitempty" jsonschema:"description=Repeater completions; zero repeats forever,minimum=0"`
	Until            string     `yaml:"until,omitempty" json:"until,omitempty" jsonschema:"enum=,enum=success,enum=failure"`
	Children         []NodeSpec `yaml:"children,omitempty" json:"children,omitempty"`
}

// Build turns a spec into a tree bound to rt. Leaf names resolve at evaluation,
// so leaves may be registered after Build.
func (rt *Runtime) Build(s Spec) (*Tree, error) {
	root, err := rt.buildNode(s.Root, s.Name)
	if err != nil {
		return nil, fmt.Errorf("build tree %q: %w", s.Name, err)
	}
	t := &Tree{Name: s.Name, Root: root}
	if s.Gate != "" {
		p, ok := rt.Predicate(s.Gate)
		if !ok {
			return nil, fmt.Errorf("build tree %q: %w: gate %q", s.Name, ErrUnknownNode, s.Gate)
		}
		t.Gate = p
	}
	return t, nil
}

// Load builds and registers every spec.
func (rt *Runtime) Load(specs ...Spec) error {
	for _, s := range specs {
		t, err := rt.Build(s)
		if err != nil {
			return err
		}
		if err := rt.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) buildNode(s NodeSpec, path string) (Node, error) {
	path = path + "/" + s.Type
	kids := make([]Node, 0, len(s.Children))
	for _, cs := range s.Children {
		k, err := rt.buildNode(cs, path)
		if err != nil {
			return nil, err
		}
		kids = append(kids, k)
	}
	name := s.Name
	if name == "" {
		name = s.Type
	}

	switch s.Type {
	case TypeSelector, TypeReactiveSelector, TypeSequence:
		if len(kids) == 0 {
			return nil, fmt.Errorf("%s: %w: want at least 1, got 0", path, ErrArity)
		}
		switch s.Type {
		case TypeSelector:
			return NewSelector(name, kids...), nil
		case TypeReactiveSelector:
			return NewReactiveSelector(name, kids...), nil
		}
		return NewSequence(name, kids...), nil

	case TypeInverter, TypeSucceeder, TypeCooldown, TypeRepeater, TypeGuard:
		if len(kids) != 1 {
			return nil, fmt.Errorf("%s: %w: want 1, got %d", path, ErrArity, len(kids))
		}
		child := kids[0]
		switch s.Type {
		case TypeInverter:
			return NewInverter(child), nil
		case TypeSucceeder:
			return NewSucceeder(child), nil
		case TypeCooldown:
			if s.Duration < 0 {
				return nil, fmt.Errorf("%s: negative cooldown %v", path, s.Duration)
			}
			cd := NewCooldown(s.Duration, s.FailOnCooldown, child)
			cd.StampOnInterrupt = s.StampOnInterrupt
			return cd, nil
		case TypeRepeater:
			until, err := parseUntil(s.Until)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			return NewRepeater(s.Times, until, child), nil
		}
		p, ok := rt.Predicate(s.Check)
		if !ok {
			return nil, fmt.Errorf("%s: %w: predicate %q", path, ErrUnknownNode, s.Check)
		}
		return NewGuard(name, p, child), nil

	case TypeLeaf:
		if len(kids) != 0 {
			return nil, fmt.Errorf("%s: %w: want 0, got %d", path, ErrArity, len(kids))
		}
		if s.Name == "" {
			return nil, fmt.Errorf("%s: leaf without a name", path)
		}
		return NewRef(s.Name), nil
	}
	return nil, fmt.Errorf("%s: %w: %q", path, ErrUnknownNode, s.Type)
}

func parseUntil(s string) (RepeatUntil, error) {
	switch s {
	case "":
		return RepeatTimes, nil
	case "success":
		return UntilSuccess, nil
	case "failure":
		return UntilFailure, nil
	}
	return 0, fmt.Errorf("unknown repeat condition %q", s)
}
