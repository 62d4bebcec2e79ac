package domain

// CommandKind enumerates the closed command vocabulary of the bot.
type CommandKind string

const (
	CommandStart       CommandKind = "start"
	CommandSubscribe   CommandKind = "subscribe"
	CommandUnsubscribe CommandKind = "unsubscribe"
	CommandGetLatest   CommandKind = "get_latest"
	CommandHelp        CommandKind = "help"
	CommandUnknown     CommandKind = "unknown"
)

// Command is one parsed inbound message. Kind is CommandUnknown for any
// input that does not match the vocabulary; parsing never fails.
type Command struct {
	Kind     CommandKind
	SenderID string
	RawText  string
}

// Reply is the text answered to the sender of one Command.
type Reply struct {
	Text string
}
