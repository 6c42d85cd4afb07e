package match_test

import (
	"bytes"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/demstat/demstat/pkg/demparse"
)

// bitWriter mirrors the embedded message framing so tests can author packet
// bodies.
type bitWriter struct {
	data []byte
	pos  uint32
}

func (w *bitWriter) writeBits(value uint32, count uint32) {
	for i := uint32(0); i < count; i++ {
		if w.pos/8 >= uint32(len(w.data)) {
			w.data = append(w.data, 0)
		}

		if value>>i&1 == 1 {
			w.data[w.pos/8] |= 1 << (w.pos % 8)
		}

		w.pos++
	}
}

func (w *bitWriter) writeUBitVar(value uint32) {
	switch {
	case value < 16:
		w.writeBits(value, 6)
	case value < 256:
		w.writeBits(16|value&15, 6)
		w.writeBits(value>>4, 4)
	case value < 4096:
		w.writeBits(32|value&15, 6)
		w.writeBits(value>>4, 8)
	default:
		w.writeBits(48|value&15, 6)
		w.writeBits(value>>4, 28)
	}
}

func (w *bitWriter) writeVarUint32(value uint32) {
	for {
		part := value & 0x7f
		value >>= 7

		if value != 0 {
			part |= 0x80
		}

		w.writeBits(part, 8)

		if value == 0 {
			return
		}
	}
}

func (w *bitWriter) embed(kind demparse.Kind, body []byte) {
	w.writeUBitVar(uint32(kind))
	w.writeVarUint32(uint32(len(body)))

	for _, octet := range body {
		w.writeBits(uint32(octet), 8)
	}
}

type replayBuilder struct {
	buf bytes.Buffer
}

func newReplayBuilder() *replayBuilder {
	builder := &replayBuilder{}
	builder.buf.WriteString("PBDEMS2\x00")
	builder.buf.Write(make([]byte, 8))

	return builder
}

func (b *replayBuilder) frame(cmd demparse.Kind, tick uint32, body []byte) *replayBuilder {
	b.buf.Write(protowire.AppendVarint(nil, uint64(cmd)))
	b.buf.Write(protowire.AppendVarint(nil, uint64(tick)))
	b.buf.Write(protowire.AppendVarint(nil, uint64(len(body))))
	b.buf.Write(body)

	return b
}

func (b *replayBuilder) packet(tick uint32, build func(*bitWriter)) *replayBuilder {
	writer := &bitWriter{}
	build(writer)

	return b.frame(demparse.KindPacket, tick, pbMsg(nil, 3, writer.data))
}

func (b *replayBuilder) bytes() []byte {
	return b.buf.Bytes()
}

func pbStr(buf []byte, num protowire.Number, value string) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)

	return protowire.AppendString(buf, value)
}

func pbVar(buf []byte, num protowire.Number, value uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)

	return protowire.AppendVarint(buf, value)
}

func pbF32(buf []byte, num protowire.Number, value float32) []byte {
	buf = protowire.AppendTag(buf, num, protowire.Fixed32Type)

	return protowire.AppendFixed32(buf, math.Float32bits(value))
}

func pbMsg(buf []byte, num protowire.Number, nested []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)

	return protowire.AppendBytes(buf, nested)
}

func encFileHeader(mapName string) []byte {
	buf := pbStr(nil, 1, "PBDEMS2")
	buf = pbVar(buf, 2, 47)
	buf = pbStr(buf, 3, "Valve Dota 2 Server")
	buf = pbStr(buf, 4, "SourceTV Demo")
	buf = pbStr(buf, 5, mapName)
	buf = pbStr(buf, 6, "dota")

	return buf
}

func encFileInfo(playbackTime float32, ticks int32, matchID uint64, gameMode int32, winner int32) []byte {
	dota := pbVar(nil, 1, matchID)
	dota = pbVar(dota, 2, uint64(gameMode))
	dota = pbVar(dota, 3, uint64(winner))

	buf := pbF32(nil, 1, playbackTime)
	buf = pbVar(buf, 2, uint64(ticks))
	buf = pbVar(buf, 3, uint64(ticks/2))
	buf = pbMsg(buf, 4, pbMsg(nil, 4, dota))

	return buf
}

type classSpec struct {
	id   int32
	name string
}

func encClassInfo(classes ...classSpec) []byte {
	var buf []byte

	for _, spec := range classes {
		nested := pbVar(nil, 1, uint64(spec.id))
		nested = pbStr(nested, 3, spec.name)
		buf = pbMsg(buf, 1, nested)
	}

	return buf
}

func encStringEntry(index int32, value string) []byte {
	return pbStr(pbVar(nil, 1, uint64(index)), 2, value)
}

func encCreateStringTable(name string, entries ...[]byte) []byte {
	buf := pbStr(nil, 1, name)

	for _, entry := range entries {
		buf = pbMsg(buf, 2, entry)
	}

	return buf
}

func encCombatLog(logType int32, targetIdx uint32, attackerIdx uint32, value uint32, timestamp float32) []byte {
	buf := pbVar(nil, 1, uint64(logType))
	buf = pbVar(buf, 2, uint64(targetIdx))
	buf = pbVar(buf, 4, uint64(attackerIdx))
	buf = pbVar(buf, 13, uint64(value))
	buf = pbF32(buf, 15, timestamp)

	return buf
}

func encChat(playerID int32, channel int32, text string) []byte {
	buf := pbVar(nil, 1, uint64(playerID))
	buf = pbVar(buf, 2, uint64(channel))

	return pbStr(buf, 3, text)
}

func encFieldStr(path string, value string) []byte {
	return pbStr(pbStr(nil, 1, path), 5, value)
}

func encFieldF32(path string, value float32) []byte {
	return pbF32(pbStr(nil, 1, path), 2, value)
}

func encFieldI32(path string, value int32) []byte {
	return pbVar(pbStr(nil, 1, path), 3, uint64(value))
}

func encFieldU64(path string, value uint64) []byte {
	return pbVar(pbStr(nil, 1, path), 4, value)
}

func encEntityUpdate(index int32, op demparse.EntityOp, classID int32, fields ...[]byte) []byte {
	buf := pbVar(nil, 1, uint64(index))
	buf = pbVar(buf, 2, uint64(op))
	buf = pbVar(buf, 3, uint64(classID))

	for _, field := range fields {
		buf = pbMsg(buf, 4, field)
	}

	return buf
}

func encPacketEntities(updates ...[]byte) []byte {
	var buf []byte

	for _, update := range updates {
		buf = pbMsg(buf, 1, update)
	}

	return buf
}

const (
	fixtureMatchID = 8231941231
	steamDendi     = 76561197992547855
	steamPuppey    = 76561197968575517
)

// buildFixtureReplay assembles a miniature but complete capture: header,
// classes, combat log names, two players on opposite teams with picked
// heroes, chat and combat traffic, and a trailing file info.
func buildFixtureReplay() []byte {
	const (
		classRules    = 1
		classResource = 2
		classAxe      = 10
		classLina     = 11
	)

	signon := &bitWriter{}
	signon.embed(demparse.KindCreateStringTable, encCreateStringTable("CombatLogNames",
		encStringEntry(0, "npc_dota_hero_axe"),
		encStringEntry(1, "npc_dota_hero_lina")))

	return newReplayBuilder().
		frame(demparse.KindFileHeader, 0, encFileHeader("start")).
		frame(demparse.KindClassInfo, 0, encClassInfo(
			classSpec{id: classRules, name: "CDOTAGamerulesProxy"},
			classSpec{id: classResource, name: "CDOTA_PlayerResource"},
			classSpec{id: classAxe, name: "CDOTA_Unit_Hero_Axe"},
			classSpec{id: classLina, name: "CDOTA_Unit_Hero_Lina"})).
		frame(demparse.KindSignonPacket, 0, pbMsg(nil, 3, signon.data)).
		packet(300, func(w *bitWriter) {
			w.embed(demparse.KindPacketEntities, encPacketEntities(
				encEntityUpdate(1, demparse.EntityOpCreate, classRules,
					encFieldF32("m_pGameRules.m_fGameTime", 5.0),
					encFieldI32("m_pGameRules.m_iGameMode", 22),
					encFieldU64("m_pGameRules.m_unMatchID64", fixtureMatchID)),
				encEntityUpdate(100, demparse.EntityOpCreate, classAxe),
				encEntityUpdate(101, demparse.EntityOpCreate, classLina),
				encEntityUpdate(2, demparse.EntityOpCreate, classResource,
					encFieldStr("m_vecPlayerData.0000.m_iszPlayerName", "Dendi"),
					encFieldU64("m_vecPlayerData.0000.m_iPlayerSteamID", steamDendi),
					encFieldI32("m_vecPlayerData.0000.m_iPlayerTeam", 2),
					encFieldU64("m_vecPlayerTeamData.0000.m_hSelectedHero", 7<<14|100),
					encFieldStr("m_vecPlayerData.0001.m_iszPlayerName", "Puppey"),
					encFieldU64("m_vecPlayerData.0001.m_iPlayerSteamID", steamPuppey),
					encFieldI32("m_vecPlayerData.0001.m_iPlayerTeam", 3),
					encFieldU64("m_vecPlayerTeamData.0001.m_hSelectedHero", 9<<14|101))))
		}).
		packet(600, func(w *bitWriter) {
			w.embed(demparse.KindPacketEntities, encPacketEntities(
				encEntityUpdate(1, demparse.EntityOpUpdate, 0,
					encFieldF32("m_pGameRules.m_fGameTime", 10.5))))
			w.embed(demparse.KindChatMessage, encChat(0, 0, "gl hf"))
			w.embed(demparse.KindCombatLogEntry, encCombatLog(0, 1, 0, 64, 11.0))
		}).
		packet(900, func(w *bitWriter) {
			w.embed(demparse.KindPacketEntities, encPacketEntities(
				encEntityUpdate(1, demparse.EntityOpUpdate, 0,
					encFieldF32("m_pGameRules.m_fGameTime", 300.0))))
			w.embed(demparse.KindCombatLogEntry, encCombatLog(999, 0, 1, 0, 0))
			w.embed(demparse.KindCombatLogEntry, encCombatLog(18, 0, 1, 0, 301.5))
			w.embed(demparse.KindChatMessage, encChat(1, 0, "gg"))
		}).
		frame(demparse.KindFileInfo, 0xFFFFFFFF, encFileInfo(600.5, 18015, fixtureMatchID, 22, 2)).
		bytes()
}
