package flow

import (
	"sync"

	"github.com/defectdesk/defectdesk/pkg/model"
)

// State is the current position of a session inside one of the three flows.
// StateIdle means no flow is active; the session is discarded when it
// returns to idle.
type State int

const (
	StateIdle State = iota

	// Register flow
	StateRegisterOrigin
	StateRegisterManufacturer
	StateRegisterModel
	StateRegisterDescription
	StateRegisterChoosingDescription
	StateRegisterPhotos
	StateRegisterVideos

	// View flow
	StateViewWaitingForID

	// Edit flow
	StateEditWaitingForID
	StateEditChooseField
	StateEditManufacturer
	StateEditModel
	StateEditDescription
	StateEditChoosingDescription
	StateEditPhotos
	StateEditVideos
)

var stateNames = map[State]string{
	StateIdle:                        "idle",
	StateRegisterOrigin:              "register.origin",
	StateRegisterManufacturer:        "register.manufacturer",
	StateRegisterModel:               "register.model",
	StateRegisterDescription:         "register.description",
	StateRegisterChoosingDescription: "register.choosing_description",
	StateRegisterPhotos:              "register.photos",
	StateRegisterVideos:              "register.videos",
	StateViewWaitingForID:            "view.waiting_for_id",
	StateEditWaitingForID:            "edit.waiting_for_id",
	StateEditChooseField:             "edit.choose_field",
	StateEditManufacturer:            "edit.manufacturer",
	StateEditModel:                   "edit.model",
	StateEditDescription:             "edit.description",
	StateEditChoosingDescription:     "edit.choosing_description",
	StateEditPhotos:                  "edit.photos",
	StateEditVideos:                  "edit.videos",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// inEditFlow reports whether the state belongs to the edit flow.
func (s State) inEditFlow() bool {
	return s >= StateEditWaitingForID && s <= StateEditVideos
}

// session is the per-conversation state of the engine. All reads and writes
// go through mu, so one conversation processes one event at a time; the
// only concurrent writer is the background summarization future, which is
// decoupled via summaryCh instead of touching the session directly.
type session struct {
	mu sync.Mutex

	chat  model.ChatID
	user  model.UserID
	state State

	draft *model.Draft

	// summaryCh is the pending background summary of draft.RawDescription.
	// The producer always sends exactly one value (at worst the fallback),
	// so a receive cannot block forever. The channel is buffered: when the
	// session is reset before completion the late send lands in the buffer
	// and is garbage collected with it.
	summaryCh chan string

	// candidate texts while a voice description awaits the user's choice
	candidateOriginal string
	candidateSummary  string

	// edit flow scratch
	editID        model.DefectID
	record        *model.Record
	scratchPhotos []model.MediaRef
	scratchVideos []model.MediaRef
}

func newSession(chat model.ChatID, user model.UserID) *session {
	return &session{
		chat:  chat,
		user:  user,
		state: StateIdle,
		draft: &model.Draft{},
	}
}

// resetFlow discards everything flow-scoped and returns the session to
// idle. A summary future still in flight is orphaned on purpose.
func (s *session) resetFlow() {
	s.state = StateIdle
	s.draft = &model.Draft{}
	s.summaryCh = nil
	s.clearCandidates()
	s.editID = ""
	s.record = nil
	s.clearScratch()
}

func (s *session) clearCandidates() {
	s.candidateOriginal = ""
	s.candidateSummary = ""
}

func (s *session) clearScratch() {
	s.scratchPhotos = nil
	s.scratchVideos = nil
}
