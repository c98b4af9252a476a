package adapter

import (
	"context"

	"github.com/defectdesk/defectdesk/pkg/model"
)

// Messenger is the chat transport the workflow engine talks through. The
// transport delivers inbound events to the engine on its own; the engine
// uses this interface only to emit replies and to fetch media bytes behind
// a transport reference.
type Messenger interface {
	// Send delivers one reply to the conversation
	Send(ctx context.Context, chat model.ChatID, reply model.Reply) error
	// Fetch downloads the blob behind a media reference
	Fetch(ctx context.Context, ref model.MediaRef) ([]byte, error)
}
