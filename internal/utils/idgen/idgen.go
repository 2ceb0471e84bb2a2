package idgen

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Prefixes for public identifiers.
const (
	PrefixCompany       = "cmp"
	PrefixTender        = "tnd"
	PrefixTenderRequest = "bid"
	PrefixRating        = "rat"
	PrefixRoom          = "room"
	PrefixMessage       = "msg"
	PrefixAttachment    = "att"
	PrefixNotification  = "ntf"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a prefixed, lower-case ULID such as msg_01hx... .
// ULIDs sort lexicographically by creation time, which the chat timeline relies on for tie breaks.
func New(prefix string) string {
	return NewAt(prefix, time.Now())
}

// NewAt returns a prefixed ULID stamped with t.
func NewAt(prefix string, t time.Time) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	entropyMu.Unlock()
	return prefix + "_" + strings.ToLower(id.String())
}

// Parse strips the prefix and returns the ULID.
func Parse(prefix, value string) (ulid.ULID, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, prefix+"_") {
		return ulid.ULID{}, fmt.Errorf("id %q does not start with %s_", value, prefix)
	}
	return ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(value, prefix+"_")))
}

// IsValid reports whether value is a well-formed id for prefix.
func IsValid(prefix, value string) bool {
	_, err := Parse(prefix, value)
	return err == nil
}
