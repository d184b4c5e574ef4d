package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/turtacn/advisorhub/internal/domain/models"
)

// Signer computes tamper-evidence signatures for audit events.
type Signer struct {
	key []byte
}

// NewSigner returns nil when key is empty, which disables signing.
func NewSigner(key string) *Signer {
	if key == "" {
		return nil
	}
	return &Signer{key: []byte(key)}
}

// Sign calculates the hex HMAC-SHA256 of the event with its signature field cleared.
func (s *Signer) Sign(event *models.AuditEvent) (string, error) {
	unsigned := *event
	unsigned.Signature = ""
	// CreatedAt is normalised so a row read back from the database verifies.
	unsigned.CreatedAt = unsigned.CreatedAt.UTC().Truncate(time.Microsecond)
	payload, err := json.Marshal(&unsigned)
	if err != nil {
		return "", err
	}
	h := hmac.New(sha256.New, s.key)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify reports whether the event carries a valid signature.
func (s *Signer) Verify(event *models.AuditEvent) bool {
	expected, err := s.Sign(event)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(event.Signature))
}

//Personal.AI order the ending
