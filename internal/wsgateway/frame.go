package wsgateway

import "github.com/coldharbor/chatcore/internal/chatbridge"

// clientFrame is a message sent by the browser: join/leave another room, or
// post a new message into one the session already holds.
type clientFrame struct {
	Type string            `json:"type"`
	Room chatbridge.RoomID `json:"room"`
	Body string            `json:"body"`
}

// serverFrame is a message sent to the browser: a delivered chat message, a
// lag report, or an error explaining why a client frame was rejected.
type serverFrame struct {
	Type    string                 `json:"type"`
	Room    chatbridge.RoomID      `json:"room,omitempty"`
	Message *chatbridge.ChatMessage `json:"message,omitempty"`
	Count   uint64                 `json:"count,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

const (
	frameJoin    = "join"
	frameLeave   = "leave"
	frameSend    = "send"
	frameMessage = "message"
	frameLagged  = "lagged"
	frameError   = "error"
	frameJoined  = "joined"
	frameLeft    = "left"
)
