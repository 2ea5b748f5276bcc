package checkout

import (
	"net/url"
	"strings"
	"unicode"
)

const (
	DefaultWhatsAppNumber = "9983944688"
	DefaultWhatsAppHost   = "wa.me"
)

// WhatsAppURL builds a click-to-chat link that opens a conversation with
// phone and pre-fills message. Non-digits in phone are dropped.
func WhatsAppURL(host, phone, message string) string {
	if host == "" {
		host = DefaultWhatsAppHost
	}
	return "https://" + host + "/" + digitsOnly(phone) + "?text=" + encodeComponent(message)
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return -1
		}
		return r
	}, s)
}

// componentUnescaper restores the marks that encodeURIComponent leaves as is
// and QueryEscape does not.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeComponent percent-encodes s the way encodeURIComponent does.
func encodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
