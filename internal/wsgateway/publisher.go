package wsgateway

import (
	"context"

	"github.com/coldharbor/chatcore/internal/database"
)

// Publisher persists a chat message sent over a websocket connection. The
// actual fan-out back to subscribers (including the sender) happens through
// the Postgres NOTIFY bridge, not through this call directly.
type Publisher interface {
	Publish(ctx context.Context, roomID, userID, body string) error
}

type repoPublisher struct {
	repo *database.ChatRepository
}

// NewRepositoryPublisher adapts a ChatRepository to the narrower Publisher
// interface a Session needs, discarding the inserted row: the session
// learns about its own message the same way every other subscriber does,
// off the broker.
func NewRepositoryPublisher(repo *database.ChatRepository) Publisher {
	return repoPublisher{repo: repo}
}

func (p repoPublisher) Publish(ctx context.Context, roomID, userID, body string) error {
	_, err := p.repo.InsertMessage(ctx, roomID, userID, body)
	return err
}
