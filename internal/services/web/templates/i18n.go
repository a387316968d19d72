package templates

import (
	"fmt"

	"golang.org/x/text/message"
)

// Localizer formats catalog messages in the request language. A
// *message.Printer satisfies it.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// T formats the catalog message key. With no localizer the key is used as
// the format string, so components still render in tests.
func T(loc Localizer, key string, args ...any) string {
	switch {
	case loc != nil:
		return loc.Sprintf(key, args...)
	case len(args) == 0:
		return key
	default:
		return fmt.Sprintf(key, args...)
	}
}
