package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// A fixed English printer keeps grouping identical on every host.
var num = message.NewPrinter(language.English)

// count renders an integer with thousands separators.
func count[T ~uint64 | ~uint32 | ~int | ~int64](n T) string {
	return num.Sprintf("%d", n)
}
