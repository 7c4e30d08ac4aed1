package unit

import (
	"fmt"
	"strings"
)

type Team uint8

const (
	TeamNeutral Team = iota
	TeamPlayer
	TeamEnemy
)

type DeathState uint8

const (
	Alive DeathState = iota
	Dying
	Dead
)

type Phase uint8

const (
	PhasePlacement Phase = iota
	PhaseCombat
	PhaseEnded
)

var (
	teamNames  = []string{"neutral", "player", "enemy"}
	deathNames = []string{"alive", "dying", "dead"}
	phaseNames = []string{"placement", "combat", "ended"}
)

func (t Team) String() string       { return nameOf(teamNames, int(t)) }
func (d DeathState) String() string { return nameOf(deathNames, int(d)) }
func (p Phase) String() string      { return nameOf(phaseNames, int(p)) }

func nameOf(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return names[i]
}

// Enum is one named constant of a stable table.
type Enum struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Tables are the integer constants peers must agree on.
type Tables struct {
	Team       []Enum `json:"team"`
	DeathState []Enum `json:"death_state"`
	Phase      []Enum `json:"phase"`
}

func Enums() Tables {
	return Tables{
		Team:       table(teamNames),
		DeathState: table(deathNames),
		Phase:      table(phaseNames),
	}
}

func table(names []string) []Enum {
	out := make([]Enum, len(names))
	for i, n := range names {
		out[i] = Enum{Name: n, Value: i}
	}
	return out
}

func ParseTeam(s string) (Team, error) {
	i, err := parse(teamNames, "team", s)
	return Team(i), err
}

func ParsePhase(s string) (Phase, error) {
	i, err := parse(phaseNames, "phase", s)
	return Phase(i), err
}

func parse(names []string, kind, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", kind, s)
}
