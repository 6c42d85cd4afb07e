package demparse

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	ErrDecodeMessage = errors.New("failed to decode message body")
	ErrUnknownKind   = errors.New("unrecognized message kind")
)

// Kind identifies a message within the single tag space shared by outer demo
// commands and the messages embedded inside packet frames. The two ranges do
// not overlap.
type Kind int32

const (
	KindStop         Kind = 0
	KindFileHeader   Kind = 1
	KindFileInfo     Kind = 2
	KindClassInfo    Kind = 5
	KindStringTables Kind = 6
	KindPacket       Kind = 7
	KindSignonPacket Kind = 8

	KindCreateStringTable Kind = 44
	KindUpdateStringTable Kind = 45
	KindPacketEntities    Kind = 55

	KindCombatLogEntry Kind = 609
	KindChatMessage    Kind = 616
)

func (k Kind) String() string {
	switch k {
	case KindStop:
		return "DEM_Stop"
	case KindFileHeader:
		return "DEM_FileHeader"
	case KindFileInfo:
		return "DEM_FileInfo"
	case KindClassInfo:
		return "DEM_ClassInfo"
	case KindStringTables:
		return "DEM_StringTables"
	case KindPacket:
		return "DEM_Packet"
	case KindSignonPacket:
		return "DEM_SignonPacket"
	case KindCreateStringTable:
		return "svc_CreateStringTable"
	case KindUpdateStringTable:
		return "svc_UpdateStringTable"
	case KindPacketEntities:
		return "svc_PacketEntities"
	case KindCombatLogEntry:
		return "DOTA_CombatLogEntry"
	case KindChatMessage:
		return "DOTA_ChatMessage"
	default:
		return fmt.Sprintf("Kind(%d)", int32(k))
	}
}

// Message is any decoded demo message.
type Message interface {
	MsgKind() Kind
}

// Stop marks the end of the demo stream. It carries no body.
type Stop struct{}

func (*Stop) MsgKind() Kind { return KindStop }

// FileHeader is the first frame of every capture and identifies the match
// environment.
type FileHeader struct {
	DemoFileStamp   string
	NetworkProtocol uint32
	ServerName      string
	ClientName      string
	MapName         string
	GameDirectory   string
}

func (*FileHeader) MsgKind() Kind { return KindFileHeader }

// FileInfo trails the capture with playback totals and the match outcome.
type FileInfo struct {
	PlaybackTime   float32
	PlaybackTicks  int32
	PlaybackFrames int32
	MatchID        uint64
	GameMode       int32
	GameWinner     int32
}

func (*FileInfo) MsgKind() Kind { return KindFileInfo }

// ClassInfo maps numeric entity class ids to their network names.
type ClassInfo struct {
	Classes map[int32]string
}

func (*ClassInfo) MsgKind() Kind { return KindClassInfo }

// StringTables is a full snapshot of every table, replacing prior state.
type StringTables struct {
	Tables []StringTableSnapshot
}

func (*StringTables) MsgKind() Kind { return KindStringTables }

// StringTableSnapshot holds a table's complete contents, indexed implicitly
// from zero.
type StringTableSnapshot struct {
	Name  string
	Items []string
}

// Packet wraps a run of embedded messages captured on one tick.
type Packet struct {
	Data   []byte
	Signon bool
}

func (p *Packet) MsgKind() Kind {
	if p.Signon {
		return KindSignonPacket
	}

	return KindPacket
}

// StringEntry is one index and value pair within a table mutation.
type StringEntry struct {
	Index int32
	Value string
}

// CreateStringTable registers a new table. Tables are numbered in creation
// order and later updates address them by that number.
type CreateStringTable struct {
	Name    string
	Entries []StringEntry
}

func (*CreateStringTable) MsgKind() Kind { return KindCreateStringTable }

// UpdateStringTable mutates entries of a previously created table.
type UpdateStringTable struct {
	TableID int32
	Entries []StringEntry
}

func (*UpdateStringTable) MsgKind() Kind { return KindUpdateStringTable }

// EntityOp describes how a single entity changed within an update.
type EntityOp int32

const (
	EntityOpCreate EntityOp = 0
	EntityOpUpdate EntityOp = 1
	EntityOpDelete EntityOp = 2
)

func (op EntityOp) String() string {
	switch op {
	case EntityOpCreate:
		return "create"
	case EntityOpUpdate:
		return "update"
	case EntityOpDelete:
		return "delete"
	default:
		return fmt.Sprintf("EntityOp(%d)", int32(op))
	}
}

// FieldValue is one property assignment inside an entity update. Value is one
// of float32, int32, uint64 or string depending on the wire encoding.
type FieldValue struct {
	Path  string
	Value any
}

// EntityUpdate changes one entity. Create carries the full baseline, update
// only the changed fields, delete none.
type EntityUpdate struct {
	Index   int32
	Op      EntityOp
	ClassID int32
	Fields  []FieldValue
}

// PacketEntities carries the entity changes of one tick in stream order.
type PacketEntities struct {
	Updates []EntityUpdate
}

func (*PacketEntities) MsgKind() Kind { return KindPacketEntities }

// CombatLogEntry records one combat event. AttackerName and TargetName index
// the CombatLogNames string table rather than holding the names directly.
type CombatLogEntry struct {
	Type         int32
	TargetName   uint32
	AttackerName uint32
	Value        uint32
	Timestamp    float32
}

func (*CombatLogEntry) MsgKind() Kind { return KindCombatLogEntry }

// ChatMessage is one all or team chat line.
type ChatMessage struct {
	SourcePlayerID int32
	ChannelType    int32
	MessageText    string
}

func (*ChatMessage) MsgKind() Kind { return KindChatMessage }

func decodeErr(parsed int) error {
	return errors.Join(protowire.ParseError(parsed), ErrDecodeMessage)
}

func pbVarint(buf []byte) (uint64, []byte, error) {
	value, parsed := protowire.ConsumeVarint(buf)
	if parsed < 0 {
		return 0, nil, decodeErr(parsed)
	}

	return value, buf[parsed:], nil
}

func pbBytes(buf []byte) ([]byte, []byte, error) {
	value, parsed := protowire.ConsumeBytes(buf)
	if parsed < 0 {
		return nil, nil, decodeErr(parsed)
	}

	return value, buf[parsed:], nil
}

func pbString(buf []byte) (string, []byte, error) {
	value, rest, errValue := pbBytes(buf)
	if errValue != nil {
		return "", nil, errValue
	}

	return string(value), rest, nil
}

func pbFloat(buf []byte) (float32, []byte, error) {
	value, parsed := protowire.ConsumeFixed32(buf)
	if parsed < 0 {
		return 0, nil, decodeErr(parsed)
	}

	return math.Float32frombits(value), buf[parsed:], nil
}

func pbSkip(num protowire.Number, typ protowire.Type, buf []byte) ([]byte, error) {
	parsed := protowire.ConsumeFieldValue(num, typ, buf)
	if parsed < 0 {
		return nil, decodeErr(parsed)
	}

	return buf[parsed:], nil
}

func decodeFileHeader(body []byte) (*FileHeader, error) {
	msg := &FileHeader{}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			msg.DemoFileStamp, body, errField = pbString(body)
		case 2:
			var value uint64
			value, body, errField = pbVarint(body)
			msg.NetworkProtocol = uint32(value)
		case 3:
			msg.ServerName, body, errField = pbString(body)
		case 4:
			msg.ClientName, body, errField = pbString(body)
		case 5:
			msg.MapName, body, errField = pbString(body)
		case 6:
			msg.GameDirectory, body, errField = pbString(body)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

func decodeFileInfo(body []byte) (*FileInfo, error) {
	msg := &FileInfo{}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			msg.PlaybackTime, body, errField = pbFloat(body)
		case 2:
			var value uint64
			value, body, errField = pbVarint(body)
			msg.PlaybackTicks = int32(value)
		case 3:
			var value uint64
			value, body, errField = pbVarint(body)
			msg.PlaybackFrames = int32(value)
		case 4:
			var nested []byte
			nested, body, errField = pbBytes(body)

			if errField == nil {
				errField = decodeGameInfo(nested, msg)
			}
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

// decodeGameInfo unwraps game_info.dota, the nested match summary inside file
// info.
func decodeGameInfo(body []byte, msg *FileInfo) error {
	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 4:
			var nested []byte
			nested, body, errField = pbBytes(body)

			if errField == nil {
				errField = decodeDotaGameInfo(nested, msg)
			}
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return errField
		}
	}

	return nil
}

func decodeDotaGameInfo(body []byte, msg *FileInfo) error {
	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return decodeErr(parsed)
		}

		body = body[parsed:]

		var (
			errField error
			value    uint64
		)

		switch num {
		case 1:
			value, body, errField = pbVarint(body)
			msg.MatchID = value
		case 2:
			value, body, errField = pbVarint(body)
			msg.GameMode = int32(value)
		case 3:
			value, body, errField = pbVarint(body)
			msg.GameWinner = int32(value)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return errField
		}
	}

	return nil
}

func decodeClassInfo(body []byte) (*ClassInfo, error) {
	msg := &ClassInfo{Classes: map[int32]string{}}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			var nested []byte
			nested, body, errField = pbBytes(body)

			if errField == nil {
				errField = decodeClassSpec(nested, msg.Classes)
			}
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

func decodeClassSpec(body []byte, classes map[int32]string) error {
	var (
		classID int32
		name    string
	)

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			var value uint64
			value, body, errField = pbVarint(body)
			classID = int32(value)
		case 3:
			name, body, errField = pbString(body)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return errField
		}
	}

	classes[classID] = name

	return nil
}

func decodeStringTables(body []byte) (*StringTables, error) {
	msg := &StringTables{}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			var nested []byte
			nested, body, errField = pbBytes(body)

			if errField == nil {
				var table StringTableSnapshot

				table, errField = decodeTableSnapshot(nested)
				if errField == nil {
					msg.Tables = append(msg.Tables, table)
				}
			}
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

func decodeTableSnapshot(body []byte) (StringTableSnapshot, error) {
	var table StringTableSnapshot

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return table, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			var nested []byte
			nested, body, errField = pbBytes(body)

			if errField == nil {
				var item string

				item, errField = decodeTableItem(nested)
				if errField == nil {
					table.Items = append(table.Items, item)
				}
			}
		case 3:
			table.Name, body, errField = pbString(body)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return table, errField
		}
	}

	return table, nil
}

func decodeTableItem(body []byte) (string, error) {
	var item string

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return "", decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			item, body, errField = pbString(body)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return "", errField
		}
	}

	return item, nil
}

func decodePacket(body []byte, signon bool) (*Packet, error) {
	msg := &Packet{Signon: signon}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 3:
			msg.Data, body, errField = pbBytes(body)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

func decodeStringEntries(body []byte) ([]StringEntry, []byte, error) {
	nested, rest, errNested := pbBytes(body)
	if errNested != nil {
		return nil, nil, errNested
	}

	var entry StringEntry

	for len(nested) > 0 {
		num, typ, parsed := protowire.ConsumeTag(nested)
		if parsed < 0 {
			return nil, nil, decodeErr(parsed)
		}

		nested = nested[parsed:]

		var errField error

		switch num {
		case 1:
			var value uint64
			value, nested, errField = pbVarint(nested)
			entry.Index = int32(value)
		case 2:
			entry.Value, nested, errField = pbString(nested)
		default:
			nested, errField = pbSkip(num, typ, nested)
		}

		if errField != nil {
			return nil, nil, errField
		}
	}

	return []StringEntry{entry}, rest, nil
}

func decodeCreateStringTable(body []byte) (*CreateStringTable, error) {
	msg := &CreateStringTable{}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			msg.Name, body, errField = pbString(body)
		case 2:
			var entries []StringEntry

			entries, body, errField = decodeStringEntries(body)
			msg.Entries = append(msg.Entries, entries...)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

func decodeUpdateStringTable(body []byte) (*UpdateStringTable, error) {
	msg := &UpdateStringTable{}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			var value uint64
			value, body, errField = pbVarint(body)
			msg.TableID = int32(value)
		case 2:
			var entries []StringEntry

			entries, body, errField = decodeStringEntries(body)
			msg.Entries = append(msg.Entries, entries...)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

func decodePacketEntities(body []byte) (*PacketEntities, error) {
	msg := &PacketEntities{}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			var nested []byte
			nested, body, errField = pbBytes(body)

			if errField == nil {
				var update EntityUpdate

				update, errField = decodeEntityUpdate(nested)
				if errField == nil {
					msg.Updates = append(msg.Updates, update)
				}
			}
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

func decodeEntityUpdate(body []byte) (EntityUpdate, error) {
	var update EntityUpdate

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return update, decodeErr(parsed)
		}

		body = body[parsed:]

		var (
			errField error
			value    uint64
		)

		switch num {
		case 1:
			value, body, errField = pbVarint(body)
			update.Index = int32(value)
		case 2:
			value, body, errField = pbVarint(body)
			update.Op = EntityOp(value)
		case 3:
			value, body, errField = pbVarint(body)
			update.ClassID = int32(value)
		case 4:
			var nested []byte
			nested, body, errField = pbBytes(body)

			if errField == nil {
				var field FieldValue

				field, errField = decodeFieldValue(nested)
				if errField == nil {
					update.Fields = append(update.Fields, field)
				}
			}
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return update, errField
		}
	}

	return update, nil
}

func decodeFieldValue(body []byte) (FieldValue, error) {
	var field FieldValue

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return field, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			field.Path, body, errField = pbString(body)
		case 2:
			var value float32
			value, body, errField = pbFloat(body)
			field.Value = value
		case 3:
			var value uint64
			value, body, errField = pbVarint(body)
			field.Value = int32(value)
		case 4:
			var value uint64
			value, body, errField = pbVarint(body)
			field.Value = value
		case 5:
			var value string
			value, body, errField = pbString(body)
			field.Value = value
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return field, errField
		}
	}

	return field, nil
}

func decodeCombatLogEntry(body []byte) (*CombatLogEntry, error) {
	msg := &CombatLogEntry{}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var (
			errField error
			value    uint64
		)

		switch num {
		case 1:
			value, body, errField = pbVarint(body)
			msg.Type = int32(value)
		case 2:
			value, body, errField = pbVarint(body)
			msg.TargetName = uint32(value)
		case 4:
			value, body, errField = pbVarint(body)
			msg.AttackerName = uint32(value)
		case 13:
			value, body, errField = pbVarint(body)
			msg.Value = uint32(value)
		case 15:
			msg.Timestamp, body, errField = pbFloat(body)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}

func decodeChatMessage(body []byte) (*ChatMessage, error) {
	msg := &ChatMessage{}

	for len(body) > 0 {
		num, typ, parsed := protowire.ConsumeTag(body)
		if parsed < 0 {
			return nil, decodeErr(parsed)
		}

		body = body[parsed:]

		var errField error

		switch num {
		case 1:
			var value uint64
			value, body, errField = pbVarint(body)
			msg.SourcePlayerID = int32(value)
		case 2:
			var value uint64
			value, body, errField = pbVarint(body)
			msg.ChannelType = int32(value)
		case 3:
			msg.MessageText, body, errField = pbString(body)
		default:
			body, errField = pbSkip(num, typ, body)
		}

		if errField != nil {
			return nil, errField
		}
	}

	return msg, nil
}
