package demparse

// DecodeFrame turns an outer frame into its typed message. Commands outside
// the known set return ErrUnknownKind so callers can skip them whole.
func DecodeFrame(frame Frame) (Message, error) {
	switch frame.Cmd {
	case KindStop:
		return &Stop{}, nil
	case KindFileHeader:
		return decodeFileHeader(frame.Body)
	case KindFileInfo:
		return decodeFileInfo(frame.Body)
	case KindClassInfo:
		return decodeClassInfo(frame.Body)
	case KindStringTables:
		return decodeStringTables(frame.Body)
	case KindPacket:
		return decodePacket(frame.Body, false)
	case KindSignonPacket:
		return decodePacket(frame.Body, true)
	default:
		return nil, ErrUnknownKind
	}
}

// DecodeEmbedded turns one message pulled out of a packet envelope into its
// typed form.
func DecodeEmbedded(kind Kind, body []byte) (Message, error) {
	switch kind {
	case KindCreateStringTable:
		return decodeCreateStringTable(body)
	case KindUpdateStringTable:
		return decodeUpdateStringTable(body)
	case KindPacketEntities:
		return decodePacketEntities(body)
	case KindCombatLogEntry:
		return decodeCombatLogEntry(body)
	case KindChatMessage:
		return decodeChatMessage(body)
	default:
		return nil, ErrUnknownKind
	}
}
