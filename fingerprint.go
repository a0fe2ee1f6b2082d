package pathmessages

import (
	"fmt"

	"github.com/zeebo/xxh3"
)

// Fingerprint returns a deterministic identifier for the finding, stable
// across runs over the same change:
//
//	{type}!{file}!{message_hash}#L{line}
//
// Code scanning hosts use it to recognise a message they already posted.
func (f Finding) Fingerprint() string {
	return fmt.Sprintf("%s!%s!%s#L%d", f.Type, f.File, messageHash(f.Message), f.Line)
}

// messageHash returns the first 8 hex characters of the XXH3-64 hash of s.
func messageHash(s string) string {
	h := xxh3.HashString(s)
	return fmt.Sprintf("%016x", h)[:8]
}
