package domain

import "fmt"

// MaxWhatsAppContent is the gateway body limit in characters.
const MaxWhatsAppContent = 4096

// OutboundMessage is a rendered reminder addressed to a resolved destination.
type OutboundMessage struct {
	Channel   Channel
	Recipient string
	Content   string
}

func (m *OutboundMessage) Validate() error {
	if m.Recipient == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if m.Content == "" {
		return fmt.Errorf("%w: content is required", ErrValidation)
	}
	if !m.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, m.Channel)
	}

	contentLen := len([]rune(m.Content))
	if contentLen > MaxWhatsAppContent {
		return fmt.Errorf("%w: whatsapp content exceeds %d characters (got %d)", ErrValidation, MaxWhatsAppContent, contentLen)
	}

	return nil
}
