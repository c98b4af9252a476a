package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrInvalidOrigin = goerr.New("invalid defect origin")
)

// DefectID is the human-facing identifier of a defect record, e.g. "D42".
type DefectID string

// Origin describes at which stage the defect was discovered.
type Origin string

const (
	OriginSupplierIntake Origin = "supplier-intake"
	OriginCustomerReturn Origin = "customer-return"
	OriginWarehouse      Origin = "warehouse-discovered"
)

// originTitles maps machine-readable origins to the labels shown on keyboards.
var originTitles = map[Origin]string{
	OriginSupplierIntake: "Received from supplier",
	OriginCustomerReturn: "Returned by customer",
	OriginWarehouse:      "Discovered in warehouse",
}

// Title returns the human-readable label of the origin.
func (o Origin) Title() string {
	return originTitles[o]
}

// Validate checks if the origin is one of the known values
func (o Origin) Validate() error {
	switch o {
	case OriginSupplierIntake, OriginCustomerReturn, OriginWarehouse:
		return nil
	default:
		return goerr.Wrap(ErrInvalidOrigin, "unknown origin", goerr.V("origin", o))
	}
}

// Origins returns all selectable origins in display order.
func Origins() []Origin {
	return []Origin{OriginSupplierIntake, OriginCustomerReturn, OriginWarehouse}
}

// OriginFromTitle resolves a typed keyboard label back to its origin value.
func OriginFromTitle(title string) (Origin, bool) {
	for o, t := range originTitles {
		if t == title {
			return o, true
		}
	}
	return "", false
}

// MediaItem is one stored photo or video of a record: the filename inside the
// record's folder and the transport-level reference it was uploaded from.
type MediaItem struct {
	Filename string   `json:"filename"`
	MediaRef MediaRef `json:"media_ref"`
}

// Record is the persisted defect report. The RecordStore owns the durable
// copy; a session's Draft is a working copy discarded after a successful
// write. Records are mutated field-by-field by the edit flow and never
// deleted by the engine.
type Record struct {
	ID        DefectID  `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    UserID    `json:"user_id"`

	Origin         Origin `json:"origin"`
	Manufacturer   string `json:"manufacturer"`
	Model          string `json:"model"`
	RawDescription string `json:"raw_description"`

	// SummaryDescription is AI-derived and stored only; the view flow never
	// shows it to the user.
	SummaryDescription string `json:"summary_description"`

	Photos []MediaItem `json:"photos"`
	Videos []MediaItem `json:"videos"`
}
