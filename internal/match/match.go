// Package match aggregates the messages and entity state of one replay into
// the JSON record written beside it.
package match

import (
	"cmp"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/demstat/demstat/pkg/demparse"
	"github.com/demstat/demstat/pkg/fp"
)

const (
	gameRulesClass      = "CDOTAGamerulesProxy"
	playerResourceClass = "CDOTA_PlayerResource"

	gameTimePath = "m_pGameRules.m_fGameTime"
	gameModePath = "m_pGameRules.m_iGameMode"
	matchIDPath  = "m_pGameRules.m_unMatchID64"

	combatNamesTable = "CombatLogNames"
)

// Match accumulates the aggregate record for one replay while its parser
// runs. All accumulation happens on the parser goroutine.
type Match struct {
	sourceFile string
	parser     *demparse.Parser
	info       Info
	players    map[int32]Player
	chat       []Chat
	combat     []CombatEvent
}

func New(sourceFile string) *Match {
	return &Match{
		sourceFile: sourceFile,
		info:       Info{GameModeName: GameMode(0).String()},
		players:    map[int32]Player{},
		chat:       []Chat{},
		combat:     []CombatEvent{},
	}
}

// Bind registers the aggregation callbacks. Call once, before the parser
// starts.
func (m *Match) Bind(parser *demparse.Parser) {
	m.parser = parser

	parser.OnFileHeader(m.onFileHeader)
	parser.OnFileInfo(m.onFileInfo)
	parser.OnChatMessage(m.onChat)
	parser.OnCombatLogEntry(m.onCombatLog)
	parser.OnEntity(m.onEntity)
}

func (m *Match) onFileHeader(msg *demparse.FileHeader) error {
	slog.Debug("Replay opened",
		slog.String("map", msg.MapName),
		slog.String("server", msg.ServerName),
		slog.String("stamp", msg.DemoFileStamp))

	return nil
}

func (m *Match) onFileInfo(msg *demparse.FileInfo) error {
	m.info.Duration = float64(msg.PlaybackTime)
	m.info.Winner = winnerName(msg.GameWinner)

	if m.info.MatchID == 0 {
		m.info.MatchID = msg.MatchID
	}

	if m.info.GameMode == 0 && msg.GameMode != 0 {
		m.setGameMode(msg.GameMode)
	}

	return nil
}

func (m *Match) onEntity(entity *demparse.Entity, op demparse.EntityOp) error {
	if op == demparse.EntityOpDelete {
		return nil
	}

	switch entity.ClassName() {
	case gameRulesClass:
		m.readGameRules(entity)
	case playerResourceClass:
		m.scanPlayers(entity)
	}

	return nil
}

// readGameRules refreshes the live match info. Re-reading unchanged values
// every tick is harmless, but game time never moves backwards.
func (m *Match) readGameRules(entity *demparse.Entity) {
	if gameTime, found := entity.GetFloat32(gameTimePath); found {
		m.info.GameTime = fp.Max(m.info.GameTime, float64(gameTime))
	}

	if mode, found := entity.GetInt32(gameModePath); found && mode != m.info.GameMode {
		m.setGameMode(mode)
	}

	if matchID, found := entity.GetUint64(matchIDPath); found {
		m.info.MatchID = matchID
	}
}

func (m *Match) setGameMode(mode int32) {
	m.info.GameMode = mode
	m.info.GameModeName = GameMode(mode).String()
}

// onChat stamps the line with the best known game time, which may lag the
// packet slightly before the first game rules read.
func (m *Match) onChat(msg *demparse.ChatMessage) error {
	m.chat = append(m.chat, Chat{
		Tick:       int64(m.parser.Tick()),
		GameTime:   m.info.GameTime,
		PlayerName: m.chatSpeaker(msg.SourcePlayerID),
		Message:    msg.MessageText,
	})

	return nil
}

func (m *Match) chatSpeaker(playerID int32) string {
	if player, found := m.players[playerID]; found {
		return player.PlayerName
	}

	return fmt.Sprintf("player_%d", playerID)
}

func (m *Match) onCombatLog(msg *demparse.CombatLogEntry) error {
	gameTime := m.info.GameTime
	if msg.Timestamp > 0 {
		gameTime = float64(msg.Timestamp)
	}

	m.combat = append(m.combat, CombatEvent{
		Tick:       int64(m.parser.Tick()),
		GameTime:   gameTime,
		Type:       EventType(msg.Type).String(),
		SourceName: m.combatName(msg.AttackerName),
		TargetName: m.combatName(msg.TargetName),
		Value:      int64(msg.Value),
	})

	return nil
}

func (m *Match) combatName(index uint32) string {
	name, found := m.parser.LookupStringByIndex(combatNamesTable, int32(index))
	if !found {
		slog.Debug("Combat log name unresolved", slog.Int("index", int(index)))

		return "unknown"
	}

	return name
}

// Record freezes the accumulated state into the output document.
func (m *Match) Record(processedAt time.Time) Record {
	players := make([]Player, 0, len(m.players))

	for _, player := range m.players {
		players = append(players, player)
	}

	slices.SortFunc(players, func(a, b Player) int {
		return cmp.Compare(a.PlayerID, b.PlayerID)
	})

	return Record{
		SourceFile:   filepath.Base(m.sourceFile),
		ProcessedAt:  processedAt.Unix(),
		MatchInfo:    m.info,
		Players:      players,
		ChatMessages: m.chat,
		CombatLogs:   m.combat,
		Statistics: Statistics{
			TotalTicks:       int64(m.parser.Tick()),
			Duration:         m.info.Duration,
			CombatLogCount:   len(m.combat),
			ChatMessageCount: len(m.chat),
		},
	}
}
