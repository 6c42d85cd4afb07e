package match

import (
	"errors"
	"os"
	"strings"

	"github.com/demstat/demstat/pkg/json"
	"github.com/demstat/demstat/pkg/log"
)

var ErrWriteRecord = errors.New("failed to write match record")

// Record is the JSON document written beside one processed replay. Field
// names are a stable contract with downstream consumers.
//
//nolint:tagliatelle
type Record struct {
	SourceFile   string        `json:"sourceFile"`
	ProcessedAt  int64         `json:"processedAt"`
	MatchInfo    Info          `json:"matchInfo"`
	Players      []Player      `json:"players"`
	ChatMessages []Chat        `json:"chatMessages"`
	CombatLogs   []CombatEvent `json:"combatLogs"`
	Statistics   Statistics    `json:"statistics"`
}

//nolint:tagliatelle
type Info struct {
	GameTime     float64 `json:"gameTime"`
	GameMode     int32   `json:"gameMode"`
	GameModeName string  `json:"gameModeName"`
	MatchID      uint64  `json:"matchId"`
	Winner       string  `json:"winner"`
	Duration     float64 `json:"duration"`
}

//nolint:tagliatelle
type Player struct {
	PlayerID   int32  `json:"playerId"`
	PlayerName string `json:"playerName"`
	HeroName   string `json:"heroName"`
	SteamID    string `json:"steamId"`
	Team       int32  `json:"team"`
}

//nolint:tagliatelle
type Chat struct {
	Tick       int64   `json:"tick"`
	GameTime   float64 `json:"gameTime"`
	PlayerName string  `json:"playerName"`
	Message    string  `json:"message"`
}

//nolint:tagliatelle
type CombatEvent struct {
	Tick       int64   `json:"tick"`
	GameTime   float64 `json:"gameTime"`
	Type       string  `json:"type"`
	SourceName string  `json:"sourceName"`
	TargetName string  `json:"targetName"`
	Value      int64   `json:"value"`
}

//nolint:tagliatelle
type Statistics struct {
	TotalTicks       int64   `json:"totalTicks"`
	Duration         float64 `json:"duration"`
	CombatLogCount   int     `json:"combatLogCount"`
	ChatMessageCount int     `json:"chatMessageCount"`
}

// OutputPath maps a replay path to the record path written beside it,
// stripping compression and replay extensions first.
func OutputPath(inputPath string, suffix string) string {
	base := inputPath

	for _, ext := range []string{".bz2", ".zst", ".dem"} {
		base = strings.TrimSuffix(base, ext)
	}

	return base + suffix
}

// Write serializes the record to outputPath, replacing any existing file.
func (record Record) Write(outputPath string, indent bool) error {
	file, errCreate := os.Create(outputPath)
	if errCreate != nil {
		return errors.Join(errCreate, ErrWriteRecord)
	}

	defer log.Closer(file)

	if errEncode := json.Encode(file, record, indent); errEncode != nil {
		return errors.Join(errEncode, ErrWriteRecord)
	}

	return nil
}
