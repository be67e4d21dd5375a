package core

import (
	"bytes"
	"net/mail"
)

type (
	Attachment struct {
		Content     *bytes.Buffer
		ContentType string
		Filename    string
	}

	// EmailMessage is a plain transactional email. Bodies are built at the call
	// site; Render only promotes BodyStr into the sendable text content.
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		BodyStr     string
		Attachments []Attachment

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return (len(m.To) + len(m.Cc) + len(m.Bcc)) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != ""
}

func (m *EmailMessage) HasAttachments() bool {
	return len(m.Attachments) > 0
}
