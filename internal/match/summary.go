package match

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

// WriteSummary renders a human readable digest of a record.
func WriteSummary(writer io.Writer, record Record) error {
	duration := time.Duration(record.MatchInfo.Duration * float64(time.Second)).Truncate(time.Second)

	overview := tablewriter.NewTable(writer)
	overview.Header("Match", "Mode", "Winner", "Duration", "Players", "Chat", "Combat Events")

	if errAppend := overview.Append([]string{
		fmt.Sprintf("%d", record.MatchInfo.MatchID),
		record.MatchInfo.GameModeName,
		record.MatchInfo.Winner,
		duration.String(),
		fmt.Sprintf("%d", len(record.Players)),
		fmt.Sprintf("%d", record.Statistics.ChatMessageCount),
		fmt.Sprintf("%d", record.Statistics.CombatLogCount),
	}); errAppend != nil {
		return errAppend
	}

	if errRender := overview.Render(); errRender != nil {
		return errRender
	}

	if len(record.Players) == 0 {
		return nil
	}

	players := tablewriter.NewTable(writer)
	players.Header("Slot", "Player", "Hero", "Team", "Steam ID")

	for _, player := range record.Players {
		if errAppend := players.Append([]string{
			fmt.Sprintf("%d", player.PlayerID),
			player.PlayerName,
			player.HeroName,
			teamName(player.Team),
			player.SteamID,
		}); errAppend != nil {
			return errAppend
		}
	}

	return players.Render()
}

// WriteModes renders the known game mode table.
func WriteModes(writer io.Writer) error {
	table := tablewriter.NewTable(writer)
	table.Header("ID", "Mode")

	for _, mode := range Modes() {
		if errAppend := table.Append([]string{
			fmt.Sprintf("%d", int32(mode)),
			mode.String(),
		}); errAppend != nil {
			return errAppend
		}
	}

	return table.Render()
}

func teamName(team int32) string {
	switch team {
	case TeamRadiant:
		return "radiant"
	case TeamDire:
		return "dire"
	default:
		return fmt.Sprintf("team_%d", team)
	}
}
