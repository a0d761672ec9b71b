package session

import (
	"strings"

	"github.com/gosimple/slug"
)

// AuthFlow is the pseudo flow key under which a browser session's login is kept.
const AuthFlow = "auth"

// Key builds the storage key for one owner's record of one flow. Owners are
// browser session ids or terminal profile names; the result only contains
// characters valid in NATS KV keys, Redis keys and file names.
func Key(owner, flow string) string {
	o := slug.Make(owner)
	if o == "" {
		o = "anonymous"
	}
	return o + "." + slug.Make(flow)
}

// Owner returns the owner part of a key built by Key.
func Owner(key string) string {
	owner, _, _ := strings.Cut(key, ".")
	return owner
}
