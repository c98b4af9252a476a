// Package flow implements the conversational workflow engine: the state
// machine that collects a defect report field by field over a chat
// transport, persists it, and lets the author view and edit it later.
package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/defectdesk/defectdesk/pkg/service/enrich"
	"github.com/defectdesk/defectdesk/pkg/service/issuer"
	"github.com/defectdesk/defectdesk/pkg/service/mediagate"
	"github.com/defectdesk/defectdesk/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// defaultSignedURLTTL is how long retrieval links for re-displayed media
// stay valid.
const defaultSignedURLTTL = time.Hour

// Engine drives the Register, View and Edit flows. One engine serves many
// conversations; each conversation owns one session whose events are
// serialized by the session mutex. The only state shared across sessions
// is the identifier counter and the record store backend.
type Engine struct {
	mu       sync.Mutex
	sessions map[model.ChatID]*session

	store    *repository.RecordStore
	issuer   issuer.Issuer
	gate     *mediagate.Gate
	enricher *enrich.Enricher
	msgr     adapter.Messenger

	signTTL time.Duration
}

// Config carries the engine's collaborators.
type Config struct {
	Store     *repository.RecordStore
	Issuer    issuer.Issuer
	Gate      *mediagate.Gate
	Enricher  *enrich.Enricher
	Messenger adapter.Messenger

	// SignedURLTTL overrides defaultSignedURLTTL when positive.
	SignedURLTTL time.Duration
}

// New creates a workflow engine
func New(cfg Config) *Engine {
	ttl := cfg.SignedURLTTL
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}
	return &Engine{
		sessions: make(map[model.ChatID]*session),
		store:    cfg.Store,
		issuer:   cfg.Issuer,
		gate:     cfg.Gate,
		enricher: cfg.Enricher,
		msgr:     cfg.Messenger,
		signTTL:  ttl,
	}
}

// HandleEvent processes one inbound chat event to completion, including
// every reply it provokes. Events of the same chat must be delivered
// sequentially by the caller or they will serialize on the session mutex.
func (e *Engine) HandleEvent(ctx context.Context, ev model.Event) error {
	s := e.session(ev.Chat, ev.User)
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := logging.From(ctx).With(
		"event_id", ev.ID,
		"chat_id", ev.Chat,
		"kind", ev.Kind,
		"state", s.state.String(),
	)
	ctx = logging.With(ctx, logger)
	logger.Debug("handling chat event")

	if ev.Kind == model.EventText && strings.HasPrefix(ev.Text, "/") {
		return e.handleCommand(ctx, s, strings.TrimSpace(ev.Text))
	}
	if ev.Kind == model.EventButton {
		return e.handleButton(ctx, s, ev)
	}
	return e.dispatch(ctx, s, ev)
}

func (e *Engine) session(chat model.ChatID, user model.UserID) *session {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[chat]
	if !ok {
		s = newSession(chat, user)
		e.sessions[chat] = s
	}
	return s
}

// drop removes the session from the registry once a flow completes or is
// abandoned. A later event for the same chat gets a fresh idle session,
// so a summary future finishing after this point has nowhere to land.
func (e *Engine) drop(s *session) {
	s.resetFlow()

	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, s.chat)
}

func (e *Engine) send(ctx context.Context, s *session, reply model.Reply) error {
	if err := e.msgr.Send(ctx, s.chat, reply); err != nil {
		return goerr.Wrap(err, "failed to send reply", goerr.V("chat_id", s.chat))
	}
	return nil
}

func (e *Engine) sendText(ctx context.Context, s *session, text string, keyboard ...model.Button) error {
	return e.send(ctx, s, model.Reply{Text: text, Keyboard: keyboard})
}

// handleCommand implements the flow entry points. A command always takes
// effect regardless of the current state; starting a new flow abandons the
// previous one without persisting anything.
func (e *Engine) handleCommand(ctx context.Context, s *session, command string) error {
	switch command {
	case "/start":
		return e.sendText(ctx, s, prompts.Help)

	case "/register_defect":
		s.resetFlow()
		s.state = StateRegisterOrigin
		return e.sendText(ctx, s, prompts.Register.Origin, originKeyboard()...)

	case "/view_defect":
		s.resetFlow()
		s.state = StateViewWaitingForID
		return e.sendText(ctx, s, prompts.View.AskID)

	case "/edit_defect":
		s.resetFlow()
		s.state = StateEditWaitingForID
		return e.sendText(ctx, s, prompts.Edit.AskID)

	case "/cancel":
		e.drop(s)
		return e.sendText(ctx, s, prompts.Common.Cancelled)

	case "/finish_defect":
		switch s.state {
		case StateRegisterPhotos:
			return e.advanceToVideos(ctx, s)
		case StateRegisterVideos:
			return e.finalizeRegistration(ctx, s)
		default:
			return e.sendText(ctx, s, prompts.Common.NothingInProgress)
		}

	case "/save_changes":
		return e.saveMediaEdits(ctx, s)

	default:
		return e.sendText(ctx, s, prompts.Common.UnknownCommand)
	}
}

// handleButton routes a pressed keyboard button. Buttons pressed in a
// state they do not belong to are ignored (stale keyboards outlive state
// transitions on most transports).
func (e *Engine) handleButton(ctx context.Context, s *session, ev model.Event) error {
	payload := ev.Payload

	switch {
	case payload == payloadBack:
		return e.back(ctx, s)

	case strings.HasPrefix(payload, payloadOriginPrefix):
		if s.state != StateRegisterOrigin {
			return nil
		}
		origin := model.Origin(strings.TrimPrefix(payload, payloadOriginPrefix))
		if err := origin.Validate(); err != nil {
			return e.sendText(ctx, s, prompts.Register.OriginInvalid, originKeyboard()...)
		}
		return e.setOrigin(ctx, s, origin)

	case payload == payloadPhotosMore:
		if s.state != StateRegisterPhotos {
			return nil
		}
		return e.sendText(ctx, s, prompts.Register.Photos, photosKeyboard()...)

	case payload == payloadPhotosNext:
		if s.state != StateRegisterPhotos {
			return nil
		}
		return e.advanceToVideos(ctx, s)

	case payload == payloadVideosFinish:
		if s.state != StateRegisterVideos {
			return nil
		}
		return e.finalizeRegistration(ctx, s)

	case payload == payloadDescOriginal || payload == payloadDescSummary || payload == payloadDescRerecord:
		return e.handleDescriptionChoice(ctx, s, payload)

	case payload == payloadEditSave:
		return e.saveMediaEdits(ctx, s)

	case payload == payloadEditCancel:
		if !s.state.inEditFlow() {
			return nil
		}
		e.drop(s)
		return e.sendText(ctx, s, prompts.Edit.Cancelled)

	case strings.HasPrefix(payload, payloadEditPrefix):
		id := model.DefectID(strings.ToUpper(strings.TrimPrefix(payload, payloadEditPrefix)))
		s.resetFlow()
		return e.beginEdit(ctx, s, id)

	default:
		logging.From(ctx).Warn("unknown button payload", "payload", payload)
		return nil
	}
}

// dispatch routes a plain message (text or media) to the handler of the
// session's current state. A message arriving in a state that has no use
// for it is a non-match, not an error.
func (e *Engine) dispatch(ctx context.Context, s *session, ev model.Event) error {
	switch s.state {
	case StateIdle:
		return e.sendText(ctx, s, prompts.Common.NothingInProgress)

	case StateRegisterOrigin:
		return e.handleOriginInput(ctx, s, ev)
	case StateRegisterManufacturer:
		return e.handleManufacturerInput(ctx, s, ev)
	case StateRegisterModel:
		return e.handleModelInput(ctx, s, ev)
	case StateRegisterDescription:
		return e.handleDescriptionInput(ctx, s, ev)
	case StateRegisterChoosingDescription:
		// only the choice buttons move this state forward
		return nil
	case StateRegisterPhotos:
		return e.handlePhotoInput(ctx, s, ev)
	case StateRegisterVideos:
		return e.handleVideoInput(ctx, s, ev)

	case StateViewWaitingForID:
		return e.handleViewID(ctx, s, ev)

	case StateEditWaitingForID:
		return e.handleEditID(ctx, s, ev)
	case StateEditChooseField:
		return e.handleEditChoice(ctx, s, ev)
	case StateEditManufacturer:
		return e.handleEditManufacturer(ctx, s, ev)
	case StateEditModel:
		return e.handleEditModel(ctx, s, ev)
	case StateEditDescription:
		return e.handleEditDescription(ctx, s, ev)
	case StateEditChoosingDescription:
		return nil
	case StateEditPhotos:
		return e.handleEditPhotoInput(ctx, s, ev)
	case StateEditVideos:
		return e.handleEditVideoInput(ctx, s, ev)

	default:
		return goerr.New("unhandled session state", goerr.V("state", s.state))
	}
}

// back implements the uniform Back control. In the register flow it walks
// one step up the chain and cancels on the first step; in the edit flow it
// returns to the field menu from any sub-state and cancels from the menu
// itself. Back at idle is a no-op, which makes cancelling idempotent.
func (e *Engine) back(ctx context.Context, s *session) error {
	switch s.state {
	case StateIdle:
		return nil

	case StateRegisterOrigin:
		e.drop(s)
		return e.sendText(ctx, s, prompts.Common.Cancelled)

	case StateRegisterManufacturer:
		s.state = StateRegisterOrigin
		return e.sendText(ctx, s, prompts.Register.Origin, originKeyboard()...)

	case StateRegisterModel:
		s.state = StateRegisterManufacturer
		return e.sendText(ctx, s, prompts.Register.Manufacturer, backKeyboard()...)

	case StateRegisterDescription:
		s.state = StateRegisterModel
		return e.sendText(ctx, s, prompts.Register.Model, backKeyboard()...)

	case StateRegisterChoosingDescription:
		s.state = StateRegisterDescription
		s.clearCandidates()
		return e.sendText(ctx, s, prompts.Register.Description, backKeyboard()...)

	case StateRegisterPhotos:
		s.state = StateRegisterDescription
		return e.sendText(ctx, s, prompts.Register.Description, backKeyboard()...)

	case StateRegisterVideos:
		s.state = StateRegisterPhotos
		return e.sendText(ctx, s, prompts.Register.Photos, photosKeyboard()...)

	case StateViewWaitingForID, StateEditWaitingForID:
		e.drop(s)
		return e.sendText(ctx, s, prompts.Common.Cancelled)

	case StateEditChooseField:
		e.drop(s)
		return e.sendText(ctx, s, prompts.Edit.Cancelled)

	case StateEditChoosingDescription:
		s.state = StateEditDescription
		s.clearCandidates()
		return e.sendText(ctx, s,
			fmt.Sprintf(prompts.Edit.CurrentDescription, s.record.RawDescription),
			editControlKeyboard()...)

	case StateEditManufacturer, StateEditModel, StateEditDescription,
		StateEditPhotos, StateEditVideos:
		s.clearScratch()
		s.clearCandidates()
		return e.showEditMenu(ctx, s)

	default:
		return nil
	}
}
