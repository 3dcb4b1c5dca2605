// Package memstore is an in-memory stand-in for the PostgreSQL repositories,
// used by service and job tests. Transactions snapshot the whole store and
// restore it when the callback fails.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/goldprice"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/redemption"
	"github.com/goldsave/goldsave-api/internal/domain/scheme"
	"github.com/goldsave/goldsave-api/internal/domain/user"
	"github.com/goldsave/goldsave-api/internal/pkg/database"
	"github.com/goldsave/goldsave-api/internal/pkg/dates"
)

type data struct {
	users       map[uuid.UUID]user.User
	schemes     map[uuid.UUID]scheme.Scheme
	enrollments map[uuid.UUID]enrollment.Enrollment
	txs         []ledger.Transaction
	prices      []goldprice.GoldPrice
	requests    []redemption.Request
}

func (d *data) clone() data {
	c := data{
		users:       make(map[uuid.UUID]user.User, len(d.users)),
		schemes:     make(map[uuid.UUID]scheme.Scheme, len(d.schemes)),
		enrollments: make(map[uuid.UUID]enrollment.Enrollment, len(d.enrollments)),
		txs:         append([]ledger.Transaction(nil), d.txs...),
		prices:      append([]goldprice.GoldPrice(nil), d.prices...),
		requests:    append([]redemption.Request(nil), d.requests...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.schemes {
		c.schemes[k] = v
	}
	for k, v := range d.enrollments {
		c.enrollments[k] = v
	}
	return c
}

// Store holds every table. Use the typed views to reach repository methods.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	d    data

	// FailPost makes ledger inserts for the listed enrollments fail.
	FailPost map[uuid.UUID]error
	// FailReversal makes SoftDeletePointsByPrice fail before touching any row.
	FailReversal error

	Commits   int
	Rollbacks int
}

var _ database.Transactor = (*Store)(nil)

func New() *Store {
	return &Store{
		d: data{
			users:       map[uuid.UUID]user.User{},
			schemes:     map[uuid.UUID]scheme.Scheme{},
			enrollments: map[uuid.UUID]enrollment.Enrollment{},
		},
		FailPost: map[uuid.UUID]error{},
	}
}

// WithTx serializes transactions and rolls the store back when fn fails.
func (s *Store) WithTx(ctx context.Context, fn database.TxFunc) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.d.clone()
	s.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		s.mu.Lock()
		s.d = snapshot
		s.Rollbacks++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.Commits++
	s.mu.Unlock()
	return nil
}

func (s *Store) Users() *Users             { return &Users{s} }
func (s *Store) Schemes() *Schemes         { return &Schemes{s} }
func (s *Store) Enrollments() *Enrollments { return &Enrollments{s} }
func (s *Store) Ledger() *Ledger           { return &Ledger{s} }
func (s *Store) Prices() *Prices           { return &Prices{s} }
func (s *Store) Requests() *Requests       { return &Requests{s} }

// Seed helpers

func (s *Store) AddUser(email, name string) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user.User{ID: uuid.New(), Email: email, Name: name, IsActive: true, CreatedAt: time.Now()}
	s.d.users[u.ID] = u
	return u
}

func (s *Store) AddScheme(name string, months int, grams decimal.Decimal) scheme.Scheme {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := scheme.Scheme{ID: uuid.New(), Name: name, DurationMonths: months, GoldGrams: grams, CreatedAt: time.Now()}
	s.d.schemes[sc.ID] = sc
	return sc
}

// AddEnrollment opens an ACTIVE enrollment starting at start.
func (s *Store) AddEnrollment(userID uuid.UUID, sc scheme.Scheme, start time.Time) enrollment.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := enrollment.Enrollment{
		ID:        uuid.New(),
		UserID:    userID,
		SchemeID:  sc.ID,
		StartDate: dates.Normalize(start),
		EndDate:   dates.AddMonths(dates.Normalize(start), sc.DurationMonths),
		Status:    enrollment.StatusActive,
		CreatedAt: time.Now(),
	}
	s.d.enrollments[e.ID] = e
	return e
}

// Credit posts a points transaction and raises both balances, as a bonus would.
func (s *Store) Credit(enrollmentID uuid.UUID, points int64, priceID *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.txs = append(s.d.txs, ledger.Transaction{
		ID: uuid.New(), EnrollmentID: enrollmentID, Type: ledger.TypePoints, Points: points,
		PriceRefID: priceID, Amount: decimal.Zero, GoldGrams: decimal.Zero, CreatedAt: time.Now(),
	})
	e := s.d.enrollments[enrollmentID]
	e.AvailablePoints += points
	e.TotalPoints += points
	s.d.enrollments[enrollmentID] = e
}

// SetBalance overwrites the cached available balance without touching the ledger.
func (s *Store) SetBalance(enrollmentID uuid.UUID, available int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.d.enrollments[enrollmentID]
	e.AvailablePoints = available
	s.d.enrollments[enrollmentID] = e
}

func (s *Store) SetStatus(enrollmentID uuid.UUID, status enrollment.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.d.enrollments[enrollmentID]
	e.Status = status
	s.d.enrollments[enrollmentID] = e
}

// Inspection helpers

func (s *Store) Enrollment(id uuid.UUID) enrollment.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.enrollments[id]
}

// Transactions returns live ledger rows of an enrollment in insertion order.
func (s *Store) Transactions(enrollmentID uuid.UUID) []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Transaction
	for _, t := range s.d.txs {
		if t.EnrollmentID == enrollmentID && !t.Deleted {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) AllTransactions() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Transaction(nil), s.d.txs...)
}

func (s *Store) AllPrices() []goldprice.GoldPrice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]goldprice.GoldPrice(nil), s.d.prices...)
}

func (s *Store) AllRequests() []redemption.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]redemption.Request(nil), s.d.requests...)
}

func (s *Store) UserByEmail(email string) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.d.users {
		if u.Email == user.NormalizeEmail(email) {
			return u, true
		}
	}
	return user.User{}, false
}
