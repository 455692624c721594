package ws

import (
	"fmt"
	"strconv"

	"chat-relay/domain/group"
	"chat-relay/errors"

	"github.com/tidwall/gjson"
)

// Inbound event names.
const (
	EventCreateGroup        = "CreateGroup"
	EventAddToGroup         = "AddToGroup"
	EventRemoveFromGroup    = "RemoveFromGroup"
	EventSendMessageToGroup = "SendMessageToGroup"
	EventGetGroupMessages   = "GetGroupMessages"
	EventPing               = "Ping"
)

// Decode turns a {"event": "...", "args": [...]} frame into a command bound to conn.
// Missing or null arguments read as empty strings; any other non-string argument is refused.
func Decode(conn group.ConnectionID, raw []byte) (group.Command, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: malformed json", errors.ErrInvalidRequest)
	}
	frame := gjson.ParseBytes(raw)
	if !frame.IsObject() {
		return nil, fmt.Errorf("%w: frame is not an object", errors.ErrInvalidRequest)
	}
	evt := frame.Get("event")
	if evt.Type != gjson.String {
		return nil, fmt.Errorf("%w: missing event", errors.ErrInvalidRequest)
	}
	args := frame.Get("args")
	if args.Exists() && args.Type != gjson.Null && !args.IsArray() {
		return nil, fmt.Errorf("%w: args must be an array", errors.ErrInvalidRequest)
	}

	a := arguments{args: args}
	var cmd group.Command
	switch evt.String() {
	case EventCreateGroup:
		cmd = group.CreateGroupCommand{Conn: conn, Name: a.at(0), Passcode: a.at(1)}
	case EventAddToGroup:
		cmd = group.AddToGroupCommand{Conn: conn, Group: a.at(0), Passcode: a.at(1)}
	case EventRemoveFromGroup:
		cmd = group.RemoveFromGroupCommand{Conn: conn, Group: a.at(0)}
	case EventSendMessageToGroup:
		cmd = group.SendMessageCommand{Conn: conn, Group: a.at(0), Body: a.at(1)}
	case EventGetGroupMessages:
		cmd = group.GetMessagesCommand{Conn: conn, Group: a.at(0)}
	case EventPing:
		cmd = group.PingCommand{Conn: conn}
	default:
		return nil, fmt.Errorf("%w: %w %q", errors.ErrInvalidRequest, errors.ErrUnknownEvent, evt.String())
	}
	if a.err != nil {
		return nil, a.err
	}
	return cmd, nil
}

type arguments struct {
	args gjson.Result
	err  error
}

func (a *arguments) at(i int) string {
	v := a.args.Get(strconv.Itoa(i))
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	default:
		if a.err == nil {
			a.err = fmt.Errorf("%w: argument %d must be a string", errors.ErrInvalidRequest, i)
		}
		return ""
	}
}
