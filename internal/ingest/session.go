package ingest

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns a unique session identifier of the form
// session_20260830_103848_269900d5. The timestamp keeps session directories
// sortable on disk; the suffix guards against collisions within a second.
func NewSessionID() string {
	timestamp := time.Now().Format("20060102_150405")
	suffix := uuid.New().String()
	return fmt.Sprintf("session_%s_%s", timestamp, suffix[:8])
}
