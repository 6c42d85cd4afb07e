package match

import (
	"fmt"
	"slices"
)

// GameMode is the numeric mode reported by the game rules entity.
type GameMode int32

var gameModeNames = map[GameMode]string{
	0:  "NONE",
	1:  "ALL_PICK",
	2:  "CAPTAINS_MODE",
	3:  "RANDOM_DRAFT",
	4:  "SINGLE_DRAFT",
	5:  "ALL_RANDOM",
	6:  "INTRO",
	7:  "DIRETIDE",
	8:  "REVERSE_CAPTAINS_MODE",
	9:  "GREEVILING",
	10: "TUTORIAL",
	11: "MID_ONLY",
	12: "LEAST_PLAYED",
	13: "LIMITED_HEROES",
	14: "COMPENDIUM_MATCHMAKING",
	15: "CUSTOM",
	16: "CAPTAINS_DRAFT",
	17: "BALANCED_DRAFT",
	18: "ABILITY_DRAFT",
	19: "EVENT",
	20: "ALL_RANDOM_DEATHMATCH",
	21: "ONE_V_ONE_MID",
	22: "ALL_DRAFT",
	23: "TURBO",
	24: "MUTATION",
	25: "COOP_VS_BOTS",
}

// String resolves the mode name, synthesizing a label for ids newer than this
// table.
func (m GameMode) String() string {
	name, found := gameModeNames[m]
	if !found {
		return fmt.Sprintf("%s_%d", UnknownName, int32(m))
	}

	return name
}

// Modes returns every known mode in numeric order.
func Modes() []GameMode {
	modes := make([]GameMode, 0, len(gameModeNames))

	for mode := range gameModeNames {
		modes = append(modes, mode)
	}

	slices.Sort(modes)

	return modes
}

// Team numbers used by the replay format.
const (
	TeamRadiant int32 = 2
	TeamDire    int32 = 3
)

func winnerName(team int32) string {
	switch team {
	case TeamRadiant:
		return "radiant"
	case TeamDire:
		return "dire"
	default:
		return ""
	}
}
