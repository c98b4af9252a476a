package model

import "github.com/google/uuid"

// ChatID identifies one conversation on the chat transport. One session of
// the workflow engine exists per chat.
type ChatID string

// UserID identifies the authoring participant.
type UserID string

// MediaRef is an opaque transport-level reference to a photo, video or voice
// blob. The engine fetches the bytes through Messenger.Fetch when needed.
type MediaRef string

// EventID correlates one inbound event across log lines.
type EventID string

// NewEventID generates a new unique EventID
func NewEventID() EventID {
	return EventID(uuid.New().String())
}

type EventKind string

const (
	EventText   EventKind = "text"
	EventButton EventKind = "button"
	EventPhoto  EventKind = "photo"
	EventVideo  EventKind = "video"
	EventVoice  EventKind = "voice"
)

// Event is one inbound chat event delivered by the transport.
type Event struct {
	ID   EventID
	Chat ChatID
	User UserID
	Kind EventKind

	// Text carries message text for EventText, including slash commands.
	Text string
	// Payload carries the string payload of a pressed button.
	Payload string
	// Media references the blob for photo/video/voice events.
	Media MediaRef
}

// Button is one selectable option of a keyboard.
type Button struct {
	Label   string
	Payload string
}

// Reply is what the engine emits back to the transport: prompt text, an
// optional keyboard, and optionally a stored media reference to re-display
// with a retrieval URL.
type Reply struct {
	Text     string
	Keyboard []Button
	Photo    MediaRef
	Video    MediaRef
	URL      string
}
