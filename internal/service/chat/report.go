package chat

import (
	"sync"

	"github.com/Teachmetech/ChatSeal/internal/model"
)

// CleanupReport accounts for one bulk deletion (clear or sweep). Cleanup is
// partial-failure tolerant, so callers get an explicit tally of what was
// removed and which blob operations were logged and skipped, instead of a
// swallowed error.
type CleanupReport struct {
	mu sync.Mutex

	RoomsDeleted    int
	MessagesDeleted int
	BlobsDeleted    int
	Failures        []*model.BlobError
	MessageFailures []*model.MessageError
}

// Clean reports whether every deletion succeeded.
func (r *CleanupReport) Clean() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Failures) == 0 && len(r.MessageFailures) == 0
}

func (r *CleanupReport) addMessageDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MessagesDeleted++
}

func (r *CleanupReport) addBlobDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.BlobsDeleted++
}

func (r *CleanupReport) addRoomDeleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RoomsDeleted++
}

func (r *CleanupReport) addFailure(err *model.BlobError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, err)
}

func (r *CleanupReport) addMessageFailure(err *model.MessageError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MessageFailures = append(r.MessageFailures, err)
}
