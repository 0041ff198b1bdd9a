package summarize

import (
	"fmt"
	"strings"

	"wadigest/internal/store"
)

// transcript renders messages (newest first, as fetched) into the plain-text
// form fed to the completion service.
func transcript(msgs []*store.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "[%s] @%s: %s\n",
			m.Timestamp.Format("2006-01-02 15:04"), m.SenderJID.User, m.Text)
	}
	return b.String()
}
