package mailer

import (
	"sync"
)

// SentEmail is a message recorded by MockMailer.
type SentEmail struct {
	Recipient    string
	TemplateFile string
	Data         any
}

// MockMailer records messages instead of sending them. It is wired in tests
// and when no SMTP host is configured.
type MockMailer struct {
	mu     sync.RWMutex
	emails []SentEmail
	err    error
}

func NewMockMailer() *MockMailer {
	return &MockMailer{
		emails: make([]SentEmail, 0),
	}
}

// FailWith makes every following Send return err without recording it.
func (m *MockMailer) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}

func (m *MockMailer) Send(recipient, templateFile string, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.emails = append(m.emails, SentEmail{
		Recipient:    recipient,
		TemplateFile: templateFile,
		Data:         data,
	})

	return nil
}

// GetSentEmails returns a copy of all recorded messages.
func (m *MockMailer) GetSentEmails() []SentEmail {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make([]SentEmail, len(m.emails))
	copy(emails, m.emails)
	return emails
}

func (m *MockMailer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.emails = make([]SentEmail, 0)
	m.err = nil
}
