package session

import (
	"errors"
	"fmt"

	"legacylift/internal/ingest"
	"legacylift/internal/pipeline"
)

const EmptyURLMessage = "Please enter a URL first."

// Message renders a failed action for display next to the slot.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ingest.ErrEmptyURL):
		return EmptyURLMessage
	case errors.Is(err, pipeline.ErrClone):
		return "Git Clone Error: " + pipeline.Reason(err)
	case errors.Is(err, pipeline.ErrContext):
		return "Context Error: " + pipeline.Reason(err)
	case errors.Is(err, ErrBusy):
		return "A migration is already running. Please wait for it to finish."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
