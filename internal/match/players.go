package match

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leighmacdonald/steamid/v4/steamid"

	"github.com/demstat/demstat/pkg/demparse"
)

const (
	maxPlayerSlots  = 24
	heroClassPrefix = "CDOTA_Unit_Hero_"
)

// scanPlayers walks the player resource slots and inserts a record for every
// newly resolvable slot. The first resolution for a slot wins and the record
// is frozen afterwards, even if later snapshots disagree.
func (m *Match) scanPlayers(entity *demparse.Entity) {
	for slot := range int32(maxPlayerSlots) {
		if _, taken := m.players[slot]; taken {
			continue
		}

		name, found := entity.GetString(fmt.Sprintf("m_vecPlayerData.%04d.m_iszPlayerName", slot))
		if !found || name == "" {
			continue
		}

		player := Player{
			PlayerID:   slot,
			PlayerName: name,
			HeroName:   m.resolveHero(entity, slot),
			SteamID:    playerSteamID(entity, slot),
		}

		if team, foundTeam := entity.GetInt32(fmt.Sprintf("m_vecPlayerData.%04d.m_iPlayerTeam", slot)); foundTeam {
			player.Team = team
		}

		m.players[slot] = player
	}
}

// resolveHero follows the selected hero handle to its entity and derives the
// hero name from the entity class.
func (m *Match) resolveHero(entity *demparse.Entity, slot int32) string {
	handle, found := entity.GetUint64(fmt.Sprintf("m_vecPlayerTeamData.%04d.m_hSelectedHero", slot))
	if !found {
		return ""
	}

	hero := m.parser.FindEntityByHandle(handle)
	if hero == nil {
		return ""
	}

	name, isHero := strings.CutPrefix(hero.ClassName(), heroClassPrefix)
	if !isHero {
		return ""
	}

	return name
}

func playerSteamID(entity *demparse.Entity, slot int32) string {
	raw, found := entity.GetUint64(fmt.Sprintf("m_vecPlayerData.%04d.m_iPlayerSteamID", slot))
	if !found || raw == 0 {
		return ""
	}

	sid := steamid.New(int64(raw))
	if !sid.Valid() {
		slog.Debug("Player slot holds invalid steam id", slog.Int("slot", int(slot)), slog.Uint64("steam_id", raw))

		return ""
	}

	return sid.String()
}
