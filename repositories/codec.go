package repositories

import (
	"fmt"
	"time"

	"chat-relay/domain/group"

	"google.golang.org/protobuf/encoding/protowire"
)

// Stored messages are protobuf wire encoded:
//
//	message StoredMessage {
//	  string id = 1;
//	  string group = 2;
//	  string sender = 3;
//	  string body = 4;
//	  int64 sent_at_unix_nano = 5;
//	}
const (
	fieldID protowire.Number = iota + 1
	fieldGroup
	fieldSender
	fieldBody
	fieldSentAt
)

func encodeMessage(m group.Message) []byte {
	b := make([]byte, 0, 64+len(m.Body))
	b = appendString(b, fieldID, m.ID)
	b = appendString(b, fieldGroup, m.Group)
	b = appendString(b, fieldSender, m.Sender.String())
	b = appendString(b, fieldBody, m.Body)
	b = protowire.AppendTag(b, fieldSentAt, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.SentAt.UnixNano()))
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// decodeMessage skips unknown fields so older values stay readable.
func decodeMessage(b []byte) (group.Message, error) {
	var m group.Message
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return group.Message{}, fmt.Errorf("invalid stored message tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && num >= fieldID && num <= fieldBody:
			var v string
			v, n = protowire.ConsumeString(b)
			switch num {
			case fieldID:
				m.ID = v
			case fieldGroup:
				m.Group = v
			case fieldSender:
				m.Sender = group.ConnectionID(v)
			case fieldBody:
				m.Body = v
			}
		case num == fieldSentAt && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			m.SentAt = time.Unix(0, int64(v)).UTC()
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return group.Message{}, fmt.Errorf("invalid stored message field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return m, nil
}
