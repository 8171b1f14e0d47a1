package notify

import (
	"fmt"

	"github.com/mtlprog/taskhub/internal/domain"
)

// Message returns the human-readable notice for a task event.
// Unknown event types fall back to the generic update text.
func Message(eventType domain.EventType, title string, status domain.TaskStatus) string {
	switch eventType {
	case domain.EventTypeTaskCreated:
		return fmt.Sprintf(`A new task "%s" has been assigned to you`, title)
	case domain.EventTypeTaskAssigned:
		return fmt.Sprintf(`Task "%s" has been assigned to you`, title)
	case domain.EventTypeTaskStatusChanged:
		return fmt.Sprintf(`Task "%s" status has been updated to %s`, title, status)
	case domain.EventTypeTaskDeleted:
		return fmt.Sprintf(`Task "%s" has been deleted`, title)
	default:
		return fmt.Sprintf(`Task "%s" has been updated`, title)
	}
}
