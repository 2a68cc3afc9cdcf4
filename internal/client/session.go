// Package client talks to the QuickInvoice REST API on behalf of one signed-in
// business and derives dashboard views locally with the ledger.
package client

import (
	"errors"
	"strings"
	"sync"

	"github.com/quickinvoice/quickinvoice/internal/money"
)

// ErrNoSession is returned when a request is attempted outside an open session.
var ErrNoSession = errors.New("client: no open session")

// Session holds the credentials and display preferences of one signed-in user.
// It is created by Open at sign-in and cleared by Close at logout.
type Session struct {
	mu       sync.RWMutex
	token    string
	currency string
}

// Open starts a session. A blank currency selects the default.
func Open(token, currency string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("client: token is required")
	}
	cur, err := money.Parse(currency)
	if err != nil {
		return nil, err
	}
	return &Session{token: token, currency: cur.Code}, nil
}

// Close forgets the token and currency. Later requests fail with ErrNoSession.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.currency = ""
}

// Token returns the bearer token, or ErrNoSession after Close.
func (s *Session) Token() (string, error) {
	if s == nil {
		return "", ErrNoSession
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoSession
	}
	return s.token, nil
}

// Currency returns the display currency code.
func (s *Session) Currency() string {
	if s == nil {
		return money.Default
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currency == "" {
		return money.Default
	}
	return s.currency
}

// SetCurrency changes the display currency for the rest of the session.
func (s *Session) SetCurrency(code string) error {
	cur, err := money.Parse(code)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currency = cur.Code
	return nil
}

// Format renders amount in the session currency.
func (s *Session) Format(amount float64) string {
	return money.Format(amount, s.Currency())
}
