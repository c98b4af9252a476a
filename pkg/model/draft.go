package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// MinDescriptionLen is the minimum length of a defect description in runes.
const MinDescriptionLen = 10

// Draft is the record under construction inside a session. Photo and video
// entries hold transport references only; the actual bytes are fetched and
// uploaded at finalization.
type Draft struct {
	Origin             Origin
	Manufacturer       string
	Model              string
	RawDescription     string
	SummaryDescription string

	Photos []MediaRef
	Videos []MediaRef
}

// ReadyToPromote reports whether the draft can be turned into a Record.
// Photos and videos may be empty.
func (d *Draft) ReadyToPromote() error {
	if err := d.Origin.Validate(); err != nil {
		return err
	}
	if d.Manufacturer == "" {
		return goerr.New("manufacturer is not set")
	}
	if d.Model == "" {
		return goerr.New("model is not set")
	}
	if d.RawDescription == "" {
		return goerr.New("description is not set")
	}
	return nil
}

// ToRecord promotes the draft. The caller fills Photos/Videos after
// uploading the media, because filenames are assigned at upload time.
func (d *Draft) ToRecord(id DefectID, user UserID, now time.Time) *Record {
	return &Record{
		ID:                 id,
		CreatedAt:          now,
		UpdatedAt:          now,
		UserID:             user,
		Origin:             d.Origin,
		Manufacturer:       d.Manufacturer,
		Model:              d.Model,
		RawDescription:     d.RawDescription,
		SummaryDescription: d.SummaryDescription,
		Photos:             []MediaItem{},
		Videos:             []MediaItem{},
	}
}
