package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/defectdesk/defectdesk/pkg/utils/logging"
)

// handleViewID looks up the typed identifier and shows the record. The
// summary is an internal search aid and is not displayed.
func (e *Engine) handleViewID(ctx context.Context, s *session, ev model.Event) error {
	if ev.Kind != model.EventText {
		return e.sendText(ctx, s, prompts.View.AskID, backKeyboard()...)
	}
	id := model.DefectID(strings.ToUpper(strings.TrimSpace(ev.Text)))

	record, err := e.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return e.sendText(ctx, s, prompts.View.NotFound, backKeyboard()...)
		}
		logging.From(ctx).Error("failed to load defect record", "error", err, "id", id)
		return e.sendText(ctx, s, prompts.Common.StorageFailed, backKeyboard()...)
	}

	if err := e.sendText(ctx, s, formatRecord(record)); err != nil {
		return err
	}
	if err := e.sendRecordMedia(ctx, s, record); err != nil {
		return err
	}

	editButton := model.Button{
		Label:   "Edit " + string(record.ID),
		Payload: payloadEditPrefix + string(record.ID),
	}
	if err := e.send(ctx, s, model.Reply{
		Text:     prompts.View.EditOffer,
		Keyboard: []model.Button{editButton},
	}); err != nil {
		return err
	}

	e.drop(s)
	return nil
}

// formatRecord renders the card shown for a looked-up defect. Only the raw
// description is shown; the summary stays internal.
func formatRecord(record *model.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Defect %s\n\n", record.ID)
	fmt.Fprintf(&sb, "Origin: %s\n", record.Origin.Title())
	fmt.Fprintf(&sb, "Manufacturer: %s\n", record.Manufacturer)
	fmt.Fprintf(&sb, "Model: %s\n", record.Model)
	fmt.Fprintf(&sb, "Description: %s\n", record.RawDescription)
	fmt.Fprintf(&sb, "Photos: %d\n", len(record.Photos))
	fmt.Fprintf(&sb, "Videos: %d\n", len(record.Videos))
	fmt.Fprintf(&sb, "\nFiled: %s\n", record.CreatedAt.Format("2006-01-02 15:04"))
	if record.UpdatedAt.After(record.CreatedAt) {
		fmt.Fprintf(&sb, "Updated: %s\n", record.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// sendRecordMedia re-sends the stored photos and videos via short-lived
// signed URLs. A file that fails to sign is still re-sent by its bare
// reference, just without a retrieval URL.
func (e *Engine) sendRecordMedia(ctx context.Context, s *session, record *model.Record) error {
	if len(record.Photos) > 0 {
		if err := e.sendText(ctx, s, prompts.View.PhotosHeader); err != nil {
			return err
		}
		for i, item := range record.Photos {
			url, err := e.store.SignedURL(ctx, record.ID, item.Filename, e.signTTL)
			if err != nil {
				logging.From(ctx).Warn("failed to sign photo URL", "error", err, "filename", item.Filename)
				url = ""
			}
			reply := model.Reply{
				Text:  fmt.Sprintf(prompts.View.PhotoCaption, i+1, len(record.Photos)),
				Photo: item.MediaRef,
				URL:   url,
			}
			if err := e.send(ctx, s, reply); err != nil {
				return err
			}
		}
	}

	if len(record.Videos) > 0 {
		if err := e.sendText(ctx, s, prompts.View.VideosHeader); err != nil {
			return err
		}
		for i, item := range record.Videos {
			url, err := e.store.SignedURL(ctx, record.ID, item.Filename, e.signTTL)
			if err != nil {
				logging.From(ctx).Warn("failed to sign video URL", "error", err, "filename", item.Filename)
				url = ""
			}
			reply := model.Reply{
				Text:  fmt.Sprintf(prompts.View.VideoCaption, i+1, len(record.Videos)),
				Video: item.MediaRef,
				URL:   url,
			}
			if err := e.send(ctx, s, reply); err != nil {
				return err
			}
		}
	}
	return nil
}
