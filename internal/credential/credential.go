// Package credential resolves and persists the API key used by the
// generation client.
package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const redacted = "[REDACTED]"

// Credential is an opaque API key. Every formatting path renders a
// redaction marker; Secret is the only way to read the raw value.
type Credential string

// Secret returns the raw key.
func (c Credential) Secret() string { return string(c) }

// Empty reports whether no key is set.
func (c Credential) Empty() bool { return c == "" }

func (c Credential) String() string {
	if c == "" {
		return ""
	}
	return redacted
}

func (c Credential) GoString() string { return c.String() }

func (c Credential) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(c.String()))
}

func (c Credential) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c Credential) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Fingerprint is a short, non-reversible identifier safe for logs and cache
// keys.
func (c Credential) Fingerprint() string {
	if c == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(c))
	return hex.EncodeToString(sum[:6])
}
