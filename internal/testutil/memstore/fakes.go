package memstore

import (
	"context"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

// Settings is a map-backed settings reader. Values are read on every call.
type Settings struct {
	mu     sync.Mutex
	values map[string]string
}

func NewSettings(values map[string]string) *Settings {
	c := make(map[string]string, len(values))
	for k, v := range values {
		c[k] = v
	}
	return &Settings{values: c}
}

func (s *Settings) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Settings) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *Settings) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Settings) Int(_ context.Context, key string) (int64, error) {
	v, ok := s.get(key)
	if !ok {
		return 0, apperr.Configuration(key)
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, apperr.Configuration(key)
	}
	return n, nil
}

func (s *Settings) IntOrDefault(ctx context.Context, key string, def int64) (int64, error) {
	if _, ok := s.get(key); !ok {
		return def, nil
	}
	return s.Int(ctx, key)
}

func (s *Settings) Decimal(_ context.Context, key string) (decimal.Decimal, error) {
	v, ok := s.get(key)
	if !ok {
		return decimal.Zero, apperr.Configuration(key)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, apperr.Configuration(key)
	}
	return d, nil
}

// Mail is one captured notification
type Mail struct {
	Kind   string
	To     string
	Fields []string
}

// Mailer records notifications instead of sending them.
type Mailer struct {
	mu   sync.Mutex
	Sent []Mail
}

func (m *Mailer) add(kind, to string, fields ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, Mail{Kind: kind, To: to, Fields: fields})
}

func (m *Mailer) SendWelcome(to, name, schemeName, tempPassword, loginURL string) {
	m.add("welcome", to, name, schemeName, tempPassword, loginURL)
}

func (m *Mailer) SendRedemptionDecision(to, name, requestType, status, remarks string) {
	m.add("decision", to, name, requestType, status, remarks)
}

func (m *Mailer) SendMaturityReady(to, name, schemeName, totalGold string) {
	m.add("maturity", to, name, schemeName, totalGold)
}

func (m *Mailer) Count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.Sent {
		if s.Kind == kind {
			n++
		}
	}
	return n
}
