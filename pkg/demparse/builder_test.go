package demparse_test

import (
	"bytes"
	"math"

	"github.com/golang/snappy"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/demstat/demstat/pkg/demparse"
)

// bitWriter mirrors the embedded message framing so tests can author packet
// bodies bit for bit.
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

// replayBuilder assembles a complete capture byte stream.
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

func (b *replayBuilder) compressedFrame(cmd demparse.Kind, tick uint32, body []byte) *replayBuilder {
	packed := snappy.Encode(nil, body)

	b.buf.Write(protowire.AppendVarint(nil, uint64(cmd)|0x40))
	b.buf.Write(protowire.AppendVarint(nil, uint64(tick)))
	b.buf.Write(protowire.AppendVarint(nil, uint64(len(packed))))
	b.buf.Write(packed)

	return b
}

func (b *replayBuilder) packet(tick uint32, build func(*bitWriter)) *replayBuilder {
	writer := &bitWriter{}
	build(writer)

	return b.frame(demparse.KindPacket, tick, encPacket(writer.data))
}

func (b *replayBuilder) bytes() []byte {
	return b.buf.Bytes()
}

func (b *replayBuilder) reader() *bytes.Reader {
	return bytes.NewReader(b.buf.Bytes())
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

func encFileHeader(stamp string, serverName string, mapName string) []byte {
	buf := pbStr(nil, 1, stamp)
	buf = pbVar(buf, 2, 47)
	buf = pbStr(buf, 3, serverName)
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

func encUpdateStringTable(tableID int32, entries ...[]byte) []byte {
	buf := pbVar(nil, 1, uint64(tableID))

	for _, entry := range entries {
		buf = pbMsg(buf, 2, entry)
	}

	return buf
}

func encPacket(data []byte) []byte {
	return pbMsg(nil, 3, data)
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
