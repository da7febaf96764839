package review

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DomainAuditEvent separates audit event ids from any other hash the
// system might compute over the same identifiers. The version suffix allows
// the scheme to change without colliding with old ids.
const DomainAuditEvent = "caselens/audit-event/v1"

// EventKey lists the identifiers an audit event id is derived from.
type EventKey struct {
	Action    string
	CaseID    string
	RunID     string
	GroupID   string
	RuleID    string
	Ordinal   int
	Timestamp time.Time
}

// EventID is SHA256(domain 0x00 field 0x00 field ...) over the key, hex
// encoded and truncated to 128 bits.
func EventID(k EventKey) string {
	ts := ""
	if !k.Timestamp.IsZero() {
		ts = k.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	h := sha256.New()
	h.Write([]byte(DomainAuditEvent))
	for _, f := range []string{k.Action, k.CaseID, k.RunID, k.GroupID, k.RuleID, strconv.Itoa(k.Ordinal), ts} {
		h.Write([]byte{0x00})
		h.Write([]byte(f))
	}
	return "evt_" + hex.EncodeToString(h.Sum(nil))[:32]
}
