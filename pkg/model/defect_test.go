package model_test

import (
	"testing"
	"time"

	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestOriginValidate(t *testing.T) {
	for _, o := range model.Origins() {
		gt.NoError(t, o.Validate())
	}
	gt.Error(t, model.Origin("made-up").Validate())
	gt.Error(t, model.Origin("").Validate())
}

func TestOriginTitleRoundTrip(t *testing.T) {
	for _, o := range model.Origins() {
		gt.V(t, o.Title()).NotEqual("")

		back, ok := model.OriginFromTitle(o.Title())
		gt.Equal(t, ok, true)
		gt.Equal(t, back, o)
	}

	_, ok := model.OriginFromTitle("Something else")
	gt.Equal(t, ok, false)
}

func TestDraftReadyToPromote(t *testing.T) {
	draft := &model.Draft{}
	gt.Error(t, draft.ReadyToPromote())

	draft.Origin = model.OriginWarehouse
	gt.Error(t, draft.ReadyToPromote())

	draft.Manufacturer = "Acme"
	draft.Model = "AX-1"
	gt.Error(t, draft.ReadyToPromote())

	draft.RawDescription = "The lens is cracked."
	gt.NoError(t, draft.ReadyToPromote())
}

func TestDraftToRecord(t *testing.T) {
	draft := &model.Draft{
		Origin:             model.OriginSupplierIntake,
		Manufacturer:       "Acme",
		Model:              "AX-1",
		RawDescription:     "The lens is cracked.",
		SummaryDescription: "Cracked lens.",
		Photos:             []model.MediaRef{"p1"},
	}

	now := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	record := draft.ToRecord("D12", "user-1", now)

	gt.Equal(t, record.ID, model.DefectID("D12"))
	gt.Equal(t, record.UserID, model.UserID("user-1"))
	gt.Equal(t, record.CreatedAt, now)
	gt.Equal(t, record.UpdatedAt, now)
	gt.Equal(t, record.SummaryDescription, "Cracked lens.")

	// media lists start empty; filenames are assigned at upload
	gt.A(t, record.Photos).Length(0)
	gt.A(t, record.Videos).Length(0)
}
