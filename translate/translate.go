// Package translate formats user-visible vcpu messages for the host locale.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	once    sync.Once
	printer *message.Printer
	tag     language.Tag
)

func setup() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("vcpu: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	tag = message.MatchLanguage(locales...)
	printer = message.NewPrinter(tag)
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	once.Do(setup)
	return printer.Sprintf(key, args...)
}

// Language returns the language tag selected for message output.
func Language() language.Tag {
	once.Do(setup)
	return tag
}
