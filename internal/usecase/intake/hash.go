package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint hashes the economically meaningful fields of a request so a
// reused idempotency key can be checked against the payload it was first
// used with.
func Fingerprint(in InitiateInput) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s",
		strings.TrimSpace(in.FromAccount),
		strings.TrimSpace(in.ToAccount),
		in.Amount.String(),
		strings.ToUpper(strings.TrimSpace(in.Currency)),
		in.Type,
	)

	sum := sha256.Sum256([]byte(payload))

	return hex.EncodeToString(sum[:])
}
