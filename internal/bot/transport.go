package bot

import "context"

// Message is one inbound chat message, tagged by the transport with the
// sender's identifier and optional username.
type Message struct {
	ID       string
	UserID   int64
	Username string
	Text     string
}

// ParseMode selects the outbound text markup.
type ParseMode string

const (
	ParseModePlain ParseMode = ""
	ParseModeHTML  ParseMode = "HTML"
)

// SendOptions carry optional formatting and a reply-keyboard descriptor
// (a grid of button labels). A nil keyboard keeps whatever the client shows.
type SendOptions struct {
	ParseMode ParseMode
	Keyboard  [][]string
}

// Transport delivers outbound text. The bot never depends on delivery
// acknowledgement; implementations live outside this core (the console
// adapter under internal/transport is the in-repo one).
type Transport interface {
	Send(ctx context.Context, userID int64, text string, opts SendOptions) error
}
