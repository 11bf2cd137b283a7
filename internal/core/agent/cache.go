package agent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/agentdock/agentdock-be/internal/core/kb"
)

// CacheKey fingerprints everything that shaped a reply: tenant,
// customer thread, the message itself, the visible history, and the
// exact knowledge chunks retrieved. Any knowledge re-index changes the
// chunk ids and therefore invalidates stale cached replies for free.
func CacheKey(tenantID uuid.UUID, customerPhone, messageText, historyText string, chunks []kb.Chunk) string {
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		ids = append(ids, c.ID.String())
	}
	raw := fmt.Sprintf("t=%s|p=%s|m=%s|h=%s|kb=%s",
		tenantID, customerPhone, messageText, historyText, strings.Join(ids, ","))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
