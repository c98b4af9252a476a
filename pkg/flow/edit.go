package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/defectdesk/defectdesk/pkg/utils/logging"
)

func (e *Engine) handleEditID(ctx context.Context, s *session, ev model.Event) error {
	if ev.Kind != model.EventText {
		return e.sendText(ctx, s, prompts.Edit.AskID, backKeyboard()...)
	}
	id := model.DefectID(strings.ToUpper(strings.TrimSpace(ev.Text)))
	return e.beginEdit(ctx, s, id)
}

// beginEdit loads the record and enters the field menu. Also the target of
// the edit shortcut button attached to a viewed record.
func (e *Engine) beginEdit(ctx context.Context, s *session, id model.DefectID) error {
	record, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			s.state = StateEditWaitingForID
			return e.sendText(ctx, s, prompts.View.NotFound, backKeyboard()...)
		}
		logging.From(ctx).Error("failed to load defect record", "error", err, "id", id)
		s.state = StateEditWaitingForID
		return e.sendText(ctx, s, prompts.Common.StorageFailed, backKeyboard()...)
	}

	s.editID = id
	s.record = record
	return e.showEditMenu(ctx, s)
}

func (e *Engine) showEditMenu(ctx context.Context, s *session) error {
	s.state = StateEditChooseField
	if err := e.sendText(ctx, s, formatRecord(s.record)); err != nil {
		return err
	}
	return e.sendText(ctx, s, prompts.Edit.ChooseField, editControlKeyboard()...)
}

// handleEditChoice maps the typed field number onto an edit sub-state.
func (e *Engine) handleEditChoice(ctx context.Context, s *session, ev model.Event) error {
	if ev.Kind != model.EventText {
		return e.sendText(ctx, s, prompts.Edit.ChooseInvalid, editControlKeyboard()...)
	}

	switch strings.TrimSpace(ev.Text) {
	case "1":
		s.state = StateEditManufacturer
		return e.sendText(ctx, s,
			fmt.Sprintf(prompts.Edit.CurrentManufacturer, s.record.Manufacturer),
			editControlKeyboard()...)
	case "2":
		s.state = StateEditModel
		return e.sendText(ctx, s,
			fmt.Sprintf(prompts.Edit.CurrentModel, s.record.Model),
			editControlKeyboard()...)
	case "3":
		s.state = StateEditDescription
		return e.sendText(ctx, s,
			fmt.Sprintf(prompts.Edit.CurrentDescription, s.record.RawDescription),
			editControlKeyboard()...)
	case "4":
		s.state = StateEditPhotos
		s.clearScratch()
		if err := e.sendRecordMedia(ctx, s, onlyPhotos(s.record)); err != nil {
			return err
		}
		return e.sendText(ctx, s, prompts.Edit.Photos, editMediaKeyboard()...)
	case "5":
		s.state = StateEditVideos
		s.clearScratch()
		if err := e.sendRecordMedia(ctx, s, onlyVideos(s.record)); err != nil {
			return err
		}
		return e.sendText(ctx, s, prompts.Edit.Videos, editMediaKeyboard()...)
	default:
		return e.sendText(ctx, s, prompts.Edit.ChooseInvalid, editControlKeyboard()...)
	}
}

// onlyPhotos and onlyVideos narrow a record so sendRecordMedia shows one
// media kind without its headers for the other.
func onlyPhotos(record *model.Record) *model.Record {
	narrowed := *record
	narrowed.Videos = nil
	return &narrowed
}

func onlyVideos(record *model.Record) *model.Record {
	narrowed := *record
	narrowed.Photos = nil
	return &narrowed
}

func (e *Engine) handleEditManufacturer(ctx context.Context, s *session, ev model.Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != model.EventText || text == "" {
		return e.sendText(ctx, s, prompts.Register.ManufacturerEmpty, editControlKeyboard()...)
	}

	s.record.Manufacturer = text
	return e.persistEdit(ctx, s, prompts.Edit.ManufacturerUpdated)
}

func (e *Engine) handleEditModel(ctx context.Context, s *session, ev model.Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != model.EventText || text == "" {
		return e.sendText(ctx, s, prompts.Register.ModelEmpty, editControlKeyboard()...)
	}

	s.record.Model = text
	return e.persistEdit(ctx, s, prompts.Edit.ModelUpdated)
}

// handleEditDescription replaces the description. Text is summarized
// synchronously and persisted at once; voice goes through the same
// transcript-or-summary choice as registration.
func (e *Engine) handleEditDescription(ctx context.Context, s *session, ev model.Event) error {
	switch ev.Kind {
	case model.EventText:
		text := strings.TrimSpace(ev.Text)
		if utf8.RuneCountInString(text) < model.MinDescriptionLen {
			return e.sendText(ctx, s, prompts.Register.DescriptionShort, editControlKeyboard()...)
		}

		s.record.RawDescription = text
		s.record.SummaryDescription = e.enricher.Summarize(ctx, text)
		return e.persistEdit(ctx, s, prompts.Edit.DescriptionUpdated)

	case model.EventVoice:
		return e.handleVoiceDescription(ctx, s, ev, StateEditChoosingDescription)

	default:
		return e.sendText(ctx, s, prompts.Register.DescriptionShort, editControlKeyboard()...)
	}
}

// applyEditDescriptionChoice resolves the voice-description choice in the
// edit flow. Both accept options persist immediately.
func (e *Engine) applyEditDescriptionChoice(ctx context.Context, s *session, payload string) error {
	switch payload {
	case payloadDescOriginal:
		s.record.RawDescription = s.candidateOriginal
		s.record.SummaryDescription = e.enricher.Summarize(ctx, s.candidateOriginal)
		s.clearCandidates()
		return e.persistEdit(ctx, s, prompts.Edit.DescriptionUpdated)

	case payloadDescSummary:
		s.record.RawDescription = s.candidateSummary
		s.record.SummaryDescription = s.candidateSummary
		s.clearCandidates()
		return e.persistEdit(ctx, s, prompts.Edit.DescriptionUpdated)

	case payloadDescRerecord:
		s.clearCandidates()
		s.state = StateEditDescription
		return e.sendText(ctx, s, prompts.Register.Rerecord, editControlKeyboard()...)
	}
	return nil
}

// persistEdit stamps UpdatedAt, overwrites the document and ends the edit
// flow. On a storage failure the session stays put for a retry.
func (e *Engine) persistEdit(ctx context.Context, s *session, done string) error {
	s.record.UpdatedAt = time.Now().UTC()

	if err := e.store.Put(ctx, s.record); err != nil {
		logging.From(ctx).Error("failed to save edited record", "error", err, "id", s.record.ID)
		return e.sendText(ctx, s, prompts.Common.StorageFailed, editControlKeyboard()...)
	}

	e.drop(s)
	return e.sendText(ctx, s, done)
}

// handleEditPhotoInput accumulates replacement photos in the scratch list.
// The stored set is untouched until the user saves. New photos pass the same
// quality gate as at registration.
func (e *Engine) handleEditPhotoInput(ctx context.Context, s *session, ev model.Event) error {
	if ev.Kind != model.EventPhoto {
		return e.sendText(ctx, s, prompts.Edit.Photos, editMediaKeyboard()...)
	}

	accepted, analysis, err := e.checkPhoto(ctx, s, ev.Media)
	if err != nil {
		return e.sendText(ctx, s, fmt.Sprintf(prompts.Register.PhotoFailed, err.Error()), editMediaKeyboard()...)
	}
	if !accepted {
		return e.sendText(ctx, s, fmt.Sprintf(prompts.Register.PhotoRejected, analysis), editMediaKeyboard()...)
	}

	s.scratchPhotos = append(s.scratchPhotos, ev.Media)
	return e.sendText(ctx, s,
		fmt.Sprintf(prompts.Register.PhotoAccepted, len(s.scratchPhotos), analysis),
		editMediaKeyboard()...)
}

func (e *Engine) handleEditVideoInput(ctx context.Context, s *session, ev model.Event) error {
	if ev.Kind != model.EventVideo {
		return e.sendText(ctx, s, prompts.Edit.Videos, editMediaKeyboard()...)
	}

	s.scratchVideos = append(s.scratchVideos, ev.Media)
	return e.sendText(ctx, s,
		fmt.Sprintf(prompts.Register.VideoAccepted, len(s.scratchVideos)),
		editMediaKeyboard()...)
}

// saveMediaEdits replaces the stored media of one kind with the scratch
// set: delete by filename prefix, upload the replacements, rewrite the
// record. Saving with an empty scratch list is refused so an accidental
// press cannot wipe the media.
func (e *Engine) saveMediaEdits(ctx context.Context, s *session) error {
	var (
		kind    string
		ext     string
		mime    string
		scratch []model.MediaRef
	)

	switch s.state {
	case StateEditPhotos:
		kind, ext, mime, scratch = "photo", ".jpg", "image/jpeg", s.scratchPhotos
	case StateEditVideos:
		kind, ext, mime, scratch = "video", ".mp4", "video/mp4", s.scratchVideos
	default:
		return e.sendText(ctx, s, prompts.Common.NothingInProgress)
	}

	if len(scratch) == 0 {
		return e.sendText(ctx, s, prompts.Edit.NothingToSave, editMediaKeyboard()...)
	}

	if err := e.store.DeleteMediaByPrefix(ctx, s.record.ID, kind+"_"); err != nil {
		logging.From(ctx).Error("failed to delete old media", "error", err, "id", s.record.ID)
		return e.sendText(ctx, s, prompts.Common.StorageFailed, editMediaKeyboard()...)
	}

	items, err := e.uploadMedia(ctx, s.record.ID, scratch, kind, ext, mime)
	if err != nil {
		logging.From(ctx).Error("failed to upload replacement media", "error", err, "id", s.record.ID)
		return e.sendText(ctx, s, prompts.Common.StorageFailed, editMediaKeyboard()...)
	}

	switch s.state {
	case StateEditPhotos:
		s.record.Photos = items
	case StateEditVideos:
		s.record.Videos = items
	}

	return e.persistEdit(ctx, s, prompts.Edit.MediaSaved)
}
