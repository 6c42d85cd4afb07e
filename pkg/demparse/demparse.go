// Package demparse reads Dota 2 replay captures. It walks the length framed
// outer stream, decodes the messages it understands, maintains string table
// and entity state as the capture replays, and hands each decoded message to
// the callbacks registered for its kind.
package demparse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/demstat/demstat/pkg/log"
)

var (
	ErrTruncated     = errors.New("replay stream ends mid frame")
	ErrStreamCorrupt = errors.New("replay stream corrupt")
	ErrDecodeFault   = errors.New("recovered from decode fault")
)

// MessageHandler receives one decoded message. A returned error is logged and
// parsing continues.
type MessageHandler func(msg Message) error

// EntityHandler receives an entity after a create, update or delete has been
// applied to it. A returned error is logged and parsing continues.
type EntityHandler func(entity *Entity, op EntityOp) error

// Parser drives a single pass over one capture. It is not safe for concurrent
// use; run one Parser per stream.
type Parser struct {
	reader         *FrameReader
	tables         *tableStore
	entities       *Entities
	handlers       map[Kind][]MessageHandler
	entityHandlers []EntityHandler
	tick           uint32
	stopped        bool
}

// NewParser validates the capture header and prepares a parser over reader.
func NewParser(reader io.Reader) (*Parser, error) {
	return NewParserSize(reader, DefaultMaxFrameSize)
}

// NewParserSize is NewParser with an explicit frame size cap.
func NewParserSize(reader io.Reader, maxFrameSize uint32) (*Parser, error) {
	frames, errFrames := NewFrameReader(reader, maxFrameSize)
	if errFrames != nil {
		return nil, errFrames
	}

	return &Parser{
		reader:   frames,
		tables:   newTableStore(),
		entities: newEntities(),
		handlers: map[Kind][]MessageHandler{},
	}, nil
}

// Tick reports the highest tick seen so far.
func (p *Parser) Tick() uint32 {
	return p.tick
}

// Stop ends the parse before the next frame. Safe to call from callbacks.
func (p *Parser) Stop() {
	p.stopped = true
}

// LookupStringByIndex resolves an interned string, such as a combat log name,
// from the named table.
func (p *Parser) LookupStringByIndex(tableName string, index int32) (string, bool) {
	return p.tables.lookup(tableName, index)
}

// FilterEntity returns the live entities matching predicate in index order.
func (p *Parser) FilterEntity(predicate func(*Entity) bool) []*Entity {
	return p.entities.filter(predicate)
}

// FindEntityByHandle resolves an entity handle property to the entity it
// points at, or nil when the slot is vacant.
func (p *Parser) FindEntityByHandle(handle uint64) *Entity {
	return p.entities.findByHandle(handle)
}

// OnMessage registers a handler for one message kind. Handlers fire in
// registration order.
func (p *Parser) OnMessage(kind Kind, handler MessageHandler) {
	p.handlers[kind] = append(p.handlers[kind], handler)
}

// OnFileHeader registers for the header frame opening the capture.
func (p *Parser) OnFileHeader(callback func(*FileHeader) error) {
	p.OnMessage(KindFileHeader, func(msg Message) error {
		return callback(msg.(*FileHeader))
	})
}

// OnFileInfo registers for the summary frame trailing the capture.
func (p *Parser) OnFileInfo(callback func(*FileInfo) error) {
	p.OnMessage(KindFileInfo, func(msg Message) error {
		return callback(msg.(*FileInfo))
	})
}

// OnChatMessage registers for all and team chat lines.
func (p *Parser) OnChatMessage(callback func(*ChatMessage) error) {
	p.OnMessage(KindChatMessage, func(msg Message) error {
		return callback(msg.(*ChatMessage))
	})
}

// OnCombatLogEntry registers for combat log events.
func (p *Parser) OnCombatLogEntry(callback func(*CombatLogEntry) error) {
	p.OnMessage(KindCombatLogEntry, func(msg Message) error {
		return callback(msg.(*CombatLogEntry))
	})
}

// OnEntity registers for every applied entity change.
func (p *Parser) OnEntity(handler EntityHandler) {
	p.entityHandlers = append(p.entityHandlers, handler)
}

// Start consumes frames until the stream ends, a stop command arrives, Stop
// is called or ctx is cancelled. Truncation, corruption and recovered decode
// faults end the parse with state kept, so callers can still report whatever
// accumulated before the fault.
func (p *Parser) Start(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Error("Recovered from decode fault", slog.Any("panic", recovered), slog.Uint64("tick", uint64(p.tick)))

			err = fmt.Errorf("%w: %v", ErrDecodeFault, recovered)
		}
	}()

	for {
		if p.stopped {
			return nil
		}

		if errCtx := ctx.Err(); errCtx != nil {
			return errCtx
		}

		frame, errFrame := p.reader.Next()
		if errFrame != nil {
			switch {
			case errors.Is(errFrame, io.EOF):
				return nil
			case errors.Is(errFrame, io.ErrUnexpectedEOF):
				return ErrTruncated
			default:
				return errors.Join(errFrame, ErrStreamCorrupt)
			}
		}

		if frame.Tick > p.tick {
			p.tick = frame.Tick
		}

		if p.handleFrame(frame) {
			return nil
		}
	}
}

// handleFrame decodes one outer frame, applies internal state and fires
// callbacks. It reports whether the frame was a stop command.
func (p *Parser) handleFrame(frame Frame) bool {
	msg, errDecode := DecodeFrame(frame)
	if errDecode != nil {
		if !errors.Is(errDecode, ErrUnknownKind) {
			slog.Debug("Discarding undecodable frame", slog.String("kind", frame.Cmd.String()), log.ErrAttr(errDecode))
		}

		return false
	}

	switch typed := msg.(type) {
	case *ClassInfo:
		for classID, name := range typed.Classes {
			p.entities.registerClass(classID, name)
		}
	case *StringTables:
		p.tables.applySnapshot(typed)
	}

	p.dispatch(frame.Cmd, msg)

	if packet, isPacket := msg.(*Packet); isPacket {
		p.handlePacket(packet)
	}

	_, isStop := msg.(*Stop)

	return isStop
}

// handlePacket walks the embedded messages inside one packet envelope. Any
// framing error ends the walk for this packet only.
func (p *Parser) handlePacket(packet *Packet) {
	reader := newBitReader(packet.Data)

	for {
		kind, errKind := reader.readUBitVar()
		if errKind != nil {
			return
		}

		size, errSize := reader.readVarUint32()
		if errSize != nil {
			return
		}

		if uint64(size)*8 > uint64(reader.remaining()) {
			slog.Debug("Embedded message overruns packet", slog.String("kind", Kind(kind).String()), slog.Uint64("size", uint64(size)))

			return
		}

		body, errBody := reader.readBytes(int(size))
		if errBody != nil {
			return
		}

		if kind == 0 {
			continue
		}

		p.handleEmbedded(Kind(kind), body)
	}
}

func (p *Parser) handleEmbedded(kind Kind, body []byte) {
	msg, errDecode := DecodeEmbedded(kind, body)
	if errDecode != nil {
		if !errors.Is(errDecode, ErrUnknownKind) {
			slog.Debug("Discarding undecodable embedded message", slog.String("kind", kind.String()), log.ErrAttr(errDecode))
		}

		return
	}

	switch typed := msg.(type) {
	case *CreateStringTable:
		p.tables.applyCreate(typed)
	case *UpdateStringTable:
		p.tables.applyUpdate(typed)
	case *PacketEntities:
		p.applyEntities(typed)
	}

	p.dispatch(kind, msg)
}

func (p *Parser) applyEntities(msg *PacketEntities) {
	for _, update := range msg.Updates {
		var entity *Entity

		switch update.Op {
		case EntityOpCreate:
			entity = p.entities.applyBaseline(update.Index, update.ClassID, update.Fields)
		case EntityOpUpdate:
			entity = p.entities.applyDelta(update.Index, update.Fields)
		case EntityOpDelete:
			entity = p.entities.remove(update.Index)
		default:
			slog.Debug("Skipping entity update with unknown op", slog.Int("op", int(update.Op)))
		}

		if entity == nil {
			continue
		}

		for _, handler := range p.entityHandlers {
			if errHandler := handler(entity, update.Op); errHandler != nil {
				slog.Error("Entity handler failed",
					slog.String("class", entity.ClassName()),
					slog.String("op", update.Op.String()),
					log.ErrAttr(errHandler))
			}
		}
	}
}

func (p *Parser) dispatch(kind Kind, msg Message) {
	for _, handler := range p.handlers[kind] {
		if errHandler := handler(msg); errHandler != nil {
			slog.Error("Message handler failed", slog.String("kind", kind.String()), log.ErrAttr(errHandler))
		}
	}
}
