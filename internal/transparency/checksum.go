package transparency

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// computeChecksum digests every entry field except the checksum itself. The
// serialization is canonical: a flat JSON object with lexicographically sorted
// keys (encoding/json sorts map keys) and the timestamp normalized to UTC
// RFC3339Nano, so byte-identical input always yields the same digest.
func computeChecksum(e Entry) (string, error) {
	payload := map[string]any{
		"timestamp":    e.Timestamp.UTC().Format(time.RFC3339Nano),
		"case_id":      e.CaseID.String(),
		"action":       e.Action,
		"actor":        e.Actor,
		"old_state":    e.OldState,
		"new_state":    e.NewState,
		"reason_code":  e.ReasonCode,
		"jurisdiction": e.Jurisdiction,
		"priority":     e.Priority,
		"metadata":     metadataOrEmpty(e.Metadata),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal checksum payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// metadataOrEmpty keeps nil and empty metadata digest-equivalent so a store
// that round-trips nil as an empty map does not fail verification.
func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
