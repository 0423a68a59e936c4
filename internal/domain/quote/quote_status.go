package quote

import (
	"fmt"

	"github.com/fletes-app/service-quote/internal/common/domain"
)

// Status is where a quote is in its lifecycle.
type Status string

const (
	StatusPreview   Status = "preview"
	StatusSent      Status = "sent"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusRealized  Status = "realized"
)

// validTransitions is the quote state machine. Purge and manual deletion remove the quote
// instead of moving it to another status.
var validTransitions = map[Status][]Status{
	StatusPreview:   {StatusSent},
	StatusSent:      {StatusConfirmed, StatusRejected},
	StatusConfirmed: {StatusRealized},
	StatusRejected:  {},
	StatusRealized:  {},
}

// IsValid returns true if the status is a recognized quote status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Purgeable returns true for statuses that are deleted once their appointment date passed.
func (s Status) Purgeable() bool {
	return s == StatusSent || s == StatusRejected
}

// HoldsSlot returns true while the quote's booking still counts as occupying its slot.
func (s Status) HoldsSlot() bool {
	return s == StatusSent || s == StatusConfirmed || s == StatusRejected
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid quote status: %s", s)
	}
	return status, nil
}

// View selects a slice of quotes for the admin listing.
type View string

const (
	ViewPending    View = "pending"
	ViewHistorical View = "historicos"
	ViewAll        View = "all"
)

// ParseView accepts the listing filter, defaulting to pending.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case "":
		return ViewPending, nil
	case ViewPending, ViewHistorical, ViewAll:
		return v, nil
	case "historical":
		return ViewHistorical, nil
	default:
		return "", domain.NewValidationError(fmt.Sprintf("invalid view %q, use pending | historicos | all", s))
	}
}
