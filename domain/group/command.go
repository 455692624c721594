package group

// Command is one inbound client request, bound to the connection that sent it.
type Command interface {
	Connection() ConnectionID
	Operation() string
}

type CreateGroupCommand struct {
	Conn     ConnectionID
	Name     string
	Passcode string
}

func (c CreateGroupCommand) Connection() ConnectionID { return c.Conn }
func (c CreateGroupCommand) Operation() string        { return "CreateGroup" }

type AddToGroupCommand struct {
	Conn     ConnectionID
	Group    string
	Passcode string
}

func (c AddToGroupCommand) Connection() ConnectionID { return c.Conn }
func (c AddToGroupCommand) Operation() string        { return "AddToGroup" }

type RemoveFromGroupCommand struct {
	Conn  ConnectionID
	Group string
}

func (c RemoveFromGroupCommand) Connection() ConnectionID { return c.Conn }
func (c RemoveFromGroupCommand) Operation() string        { return "RemoveFromGroup" }

type SendMessageCommand struct {
	Conn  ConnectionID
	Group string
	Body  string
}

func (c SendMessageCommand) Connection() ConnectionID { return c.Conn }
func (c SendMessageCommand) Operation() string        { return "SendMessageToGroup" }

type GetMessagesCommand struct {
	Conn  ConnectionID
	Group string
}

func (c GetMessagesCommand) Connection() ConnectionID { return c.Conn }
func (c GetMessagesCommand) Operation() string        { return "GetGroupMessages" }

type PingCommand struct {
	Conn ConnectionID
}

func (c PingCommand) Connection() ConnectionID { return c.Conn }
func (c PingCommand) Operation() string        { return "Ping" }

// DisconnectCommand is queued behind the connection's pending commands,
// so cleanup never races with a late join. Cause is nil on a graceful close.
type DisconnectCommand struct {
	Conn  ConnectionID
	Cause error
}

func (c DisconnectCommand) Connection() ConnectionID { return c.Conn }
func (c DisconnectCommand) Operation() string        { return "Disconnect" }
