package service

import (
	"strings"

	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

// channelForKind lists the contact kinds a supported channel can reach.
// A phone number doubles as the WhatsApp handle.
var channelForKind = map[domain.ContactKind]domain.Channel{
	domain.ContactWhatsApp: domain.ChannelWhatsApp,
	domain.ContactPhone:    domain.ChannelWhatsApp,
}

// ResolveChannel picks the first contact address that maps to a supported
// channel. It returns false when the candidate cannot be reached; that is an
// expected outcome, not an error. PreferredChannelHint is not consulted.
func ResolveChannel(c domain.ExpiryCandidate) (domain.Destination, bool) {
	for _, addr := range c.ContactAddresses {
		value := strings.TrimSpace(addr.Value)
		if value == "" {
			continue
		}
		if ch, ok := channelForKind[addr.Kind]; ok {
			return domain.Destination{Channel: ch, Address: value}, true
		}
	}
	return domain.Destination{}, false
}

// channelLabel is the lowercase channel name stored in the audit log.
func channelLabel(ch domain.Channel) string {
	return strings.ToLower(ch.String())
}
