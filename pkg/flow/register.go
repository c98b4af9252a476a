package flow

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

func (e *Engine) setOrigin(ctx context.Context, s *session, origin model.Origin) error {
	s.draft.Origin = origin
	s.state = StateRegisterManufacturer
	return e.sendText(ctx, s, prompts.Register.Manufacturer, backKeyboard()...)
}

// handleOriginInput accepts a typed origin title as an alternative to the
// keyboard.
func (e *Engine) handleOriginInput(ctx context.Context, s *session, ev model.Event) error {
	if ev.Kind != model.EventText {
		return e.sendText(ctx, s, prompts.Register.OriginInvalid, originKeyboard()...)
	}
	origin, ok := model.OriginFromTitle(strings.TrimSpace(ev.Text))
	if !ok {
		return e.sendText(ctx, s, prompts.Register.OriginInvalid, originKeyboard()...)
	}
	return e.setOrigin(ctx, s, origin)
}

func (e *Engine) handleManufacturerInput(ctx context.Context, s *session, ev model.Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != model.EventText || text == "" {
		return e.sendText(ctx, s, prompts.Register.ManufacturerEmpty, backKeyboard()...)
	}

	s.draft.Manufacturer = text
	s.state = StateRegisterModel
	return e.sendText(ctx, s, prompts.Register.Model, backKeyboard()...)
}

func (e *Engine) handleModelInput(ctx context.Context, s *session, ev model.Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != model.EventText || text == "" {
		return e.sendText(ctx, s, prompts.Register.ModelEmpty, backKeyboard()...)
	}

	s.draft.Model = text
	s.state = StateRegisterDescription
	return e.sendText(ctx, s, prompts.Register.Description, backKeyboard()...)
}

// handleDescriptionInput accepts either a typed description or a voice
// message. Text is accepted immediately with summarization running in the
// background; voice is transcribed synchronously and the user picks between
// the transcript and its summary before the flow moves on.
func (e *Engine) handleDescriptionInput(ctx context.Context, s *session, ev model.Event) error {
	switch ev.Kind {
	case model.EventText:
		text := strings.TrimSpace(ev.Text)
		if utf8.RuneCountInString(text) < model.MinDescriptionLen {
			return e.sendText(ctx, s, prompts.Register.DescriptionShort, backKeyboard()...)
		}

		s.draft.RawDescription = text
		s.draft.SummaryDescription = ""
		s.summaryCh = e.beginSummary(ctx, text)
		s.state = StateRegisterPhotos
		return e.sendText(ctx, s, prompts.Register.Photos, photosKeyboard()...)

	case model.EventVoice:
		return e.handleVoiceDescription(ctx, s, ev, StateRegisterChoosingDescription)

	default:
		return e.sendText(ctx, s, prompts.Register.DescriptionShort, backKeyboard()...)
	}
}

// handleVoiceDescription transcribes the voice message, summarizes the
// transcript, and parks both texts as candidates for the user's choice.
// Shared by the register and edit flows; next names the choosing state of
// the calling flow.
func (e *Engine) handleVoiceDescription(ctx context.Context, s *session, ev model.Event, next State) error {
	if err := e.sendText(ctx, s, prompts.Register.VoiceProcessing); err != nil {
		return err
	}

	audio, err := e.msgr.Fetch(ctx, ev.Media)
	if err != nil {
		logging.From(ctx).Warn("failed to fetch voice message", "error", err)
		return e.sendText(ctx, s, prompts.Register.VoiceFailed, backKeyboard()...)
	}

	transcript := e.enricher.Transcribe(ctx, audio)
	if utf8.RuneCountInString(transcript) < model.MinDescriptionLen {
		return e.sendText(ctx, s, prompts.Register.VoiceFailed, backKeyboard()...)
	}

	s.candidateOriginal = transcript
	s.candidateSummary = e.enricher.Summarize(ctx, transcript)
	s.state = next

	return e.sendText(ctx, s,
		fmt.Sprintf(prompts.Register.Choice, s.candidateOriginal, s.candidateSummary),
		descriptionChoiceKeyboard()...)
}

// handleDescriptionChoice resolves the original/summary/rerecord choice in
// both flows. Picking the original in the register flow restarts background
// summarization so the record still gets a summary; picking the summary uses
// it for both fields and skips the background work.
func (e *Engine) handleDescriptionChoice(ctx context.Context, s *session, payload string) error {
	switch s.state {
	case StateRegisterChoosingDescription:
		switch payload {
		case payloadDescOriginal:
			s.draft.RawDescription = s.candidateOriginal
			s.draft.SummaryDescription = ""
			s.summaryCh = e.beginSummary(ctx, s.candidateOriginal)
			s.clearCandidates()
			s.state = StateRegisterPhotos
			if err := e.sendText(ctx, s, prompts.Register.ChoiceOriginalSave); err != nil {
				return err
			}
			return e.sendText(ctx, s, prompts.Register.Photos, photosKeyboard()...)

		case payloadDescSummary:
			s.draft.RawDescription = s.candidateSummary
			s.draft.SummaryDescription = s.candidateSummary
			s.summaryCh = nil
			s.clearCandidates()
			s.state = StateRegisterPhotos
			if err := e.sendText(ctx, s, prompts.Register.ChoiceSummarySave); err != nil {
				return err
			}
			return e.sendText(ctx, s, prompts.Register.Photos, photosKeyboard()...)

		case payloadDescRerecord:
			s.clearCandidates()
			s.state = StateRegisterDescription
			return e.sendText(ctx, s, prompts.Register.Rerecord, backKeyboard()...)
		}

	case StateEditChoosingDescription:
		return e.applyEditDescriptionChoice(ctx, s, payload)
	}
	return nil
}

// beginSummary starts summarization of the accepted description without
// blocking the conversation. The returned channel is buffered and receives
// exactly one value; finalization awaits it. The goroutine outlives the
// triggering event, so it runs on a context detached from its cancellation.
func (e *Engine) beginSummary(ctx context.Context, text string) chan string {
	ch := make(chan string, 1)
	bgCtx := context.WithoutCancel(ctx)
	go func() {
		ch <- e.enricher.Summarize(bgCtx, text)
	}()
	return ch
}

// awaitSummary blocks until the pending summary future resolves. Without a
// future (summary already chosen, or plain fallback needed) it returns the
// draft's current summary.
func (s *session) awaitSummary() string {
	if s.summaryCh == nil {
		return s.draft.SummaryDescription
	}
	summary := <-s.summaryCh
	s.summaryCh = nil
	return summary
}

func (e *Engine) handlePhotoInput(ctx context.Context, s *session, ev model.Event) error {
	if ev.Kind != model.EventPhoto {
		return e.sendText(ctx, s, prompts.Register.Photos, photosKeyboard()...)
	}

	accepted, analysis, err := e.checkPhoto(ctx, s, ev.Media)
	if err != nil {
		return e.sendText(ctx, s, fmt.Sprintf(prompts.Register.PhotoFailed, err.Error()), photosKeyboard()...)
	}
	if !accepted {
		return e.sendText(ctx, s, fmt.Sprintf(prompts.Register.PhotoRejected, analysis), photosKeyboard()...)
	}

	s.draft.Photos = append(s.draft.Photos, ev.Media)
	return e.sendText(ctx, s,
		fmt.Sprintf(prompts.Register.PhotoAccepted, len(s.draft.Photos), analysis),
		photosKeyboard()...)
}

// checkPhoto downloads the photo and runs it through the quality gate.
func (e *Engine) checkPhoto(ctx context.Context, s *session, ref model.MediaRef) (bool, string, error) {
	if err := e.sendText(ctx, s, prompts.Register.PhotoChecking); err != nil {
		return false, "", err
	}

	image, err := e.msgr.Fetch(ctx, ref)
	if err != nil {
		logging.From(ctx).Warn("failed to fetch photo", "error", err)
		return false, "", goerr.Wrap(err, "could not download the photo")
	}

	accepted, analysis := e.gate.Evaluate(ctx, image)
	return accepted, analysis, nil
}

func (e *Engine) advanceToVideos(ctx context.Context, s *session) error {
	s.state = StateRegisterVideos
	return e.sendText(ctx, s, prompts.Register.Videos, videosKeyboard()...)
}

// handleVideoInput appends a video reference. Videos are not quality gated.
func (e *Engine) handleVideoInput(ctx context.Context, s *session, ev model.Event) error {
	if ev.Kind != model.EventVideo {
		return e.sendText(ctx, s, prompts.Register.Videos, videosKeyboard()...)
	}

	s.draft.Videos = append(s.draft.Videos, ev.Media)
	return e.sendText(ctx, s,
		fmt.Sprintf(prompts.Register.VideoAccepted, len(s.draft.Videos)),
		videosKeyboard()...)
}

// finalizeRegistration turns the draft into a persisted record: await the
// summary, issue an identifier, upload media, write the document. On a
// storage failure the session keeps its state so the user can retry with
// /finish_defect; on success the session is dropped.
func (e *Engine) finalizeRegistration(ctx context.Context, s *session) error {
	if err := s.draft.ReadyToPromote(); err != nil {
		logging.From(ctx).Warn("draft not ready at finalization", "error", err)
		return e.sendText(ctx, s, prompts.Common.NothingInProgress)
	}

	if err := e.sendText(ctx, s, prompts.Register.Saving); err != nil {
		return err
	}

	if s.draft.SummaryDescription == "" {
		s.draft.SummaryDescription = s.awaitSummary()
	}
	if s.draft.SummaryDescription == "" {
		s.draft.SummaryDescription = e.enricher.Summarize(ctx, s.draft.RawDescription)
	}

	id, err := e.issuer.Issue(ctx)
	if err != nil {
		logging.From(ctx).Error("failed to issue defect identifier", "error", err)
		return e.sendText(ctx, s, prompts.Common.StorageFailed, videosKeyboard()...)
	}

	record := s.draft.ToRecord(id, s.user, time.Now().UTC())

	if err := e.persistNewRecord(ctx, s, record); err != nil {
		logging.From(ctx).Error("failed to persist defect record", "error", err, "id", id)
		return e.sendText(ctx, s, prompts.Common.StorageFailed, videosKeyboard()...)
	}

	e.drop(s)
	return e.sendText(ctx, s, fmt.Sprintf(prompts.Register.Registered, id))
}

func (e *Engine) persistNewRecord(ctx context.Context, s *session, record *model.Record) error {
	if err := e.store.CreateFolder(ctx, record.ID); err != nil {
		return err
	}

	photos, err := e.uploadMedia(ctx, record.ID, s.draft.Photos, "photo", ".jpg", "image/jpeg")
	if err != nil {
		return err
	}
	videos, err := e.uploadMedia(ctx, record.ID, s.draft.Videos, "video", ".mp4", "video/mp4")
	if err != nil {
		return err
	}
	record.Photos = photos
	record.Videos = videos

	return e.store.Put(ctx, record)
}

// uploadMedia fetches each referenced file from the transport and stores it
// under an ordinal filename (photo_1.jpg, photo_2.jpg, ...).
func (e *Engine) uploadMedia(ctx context.Context, id model.DefectID, refs []model.MediaRef, kind, ext, contentType string) ([]model.MediaItem, error) {
	items := make([]model.MediaItem, 0, len(refs))
	for i, ref := range refs {
		data, err := e.msgr.Fetch(ctx, ref)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to fetch media from transport",
				goerr.V("id", id), goerr.V("kind", kind), goerr.V("index", i))
		}

		filename := fmt.Sprintf("%s_%d%s", kind, i+1, ext)
		if _, err := e.store.PutMedia(ctx, id, filename, data, contentType); err != nil {
			return nil, err
		}
		items = append(items, model.MediaItem{Filename: filename, MediaRef: ref})
	}
	return items, nil
}
