package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/goldprice"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/domain/redemption"
	"github.com/goldsave/goldsave-api/internal/domain/scheme"
	"github.com/goldsave/goldsave-api/internal/domain/user"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/pkg/dates"
)

func uniqueViolation(op string) error {
	return apperr.Persistence(op, &pq.Error{Code: "23505"})
}

// Users

type Users struct{ s *Store }

func (v *Users) Create(_ context.Context, _ sqlx.ExtContext, u *user.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.d.users {
		if existing.Email == u.Email {
			return uniqueViolation("create user")
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	v.s.d.users[u.ID] = *u
	return nil
}

func (v *Users) GetByEmail(_ context.Context, _ sqlx.ExtContext, email string) (*user.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, u := range v.s.d.users {
		if u.Email == user.NormalizeEmail(email) {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

// Schemes

type Schemes struct{ s *Store }

func (v *Schemes) Get(_ context.Context, id uuid.UUID) (*scheme.Scheme, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	sc, ok := v.s.d.schemes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", scheme.ErrSchemeNotFound, id)
	}
	return &sc, nil
}

// Enrollments implements enrollment.Repository

type Enrollments struct{ s *Store }

var _ enrollment.Repository = (*Enrollments)(nil)

func (v *Enrollments) detail(e enrollment.Enrollment) enrollment.Detail {
	sc := v.s.d.schemes[e.SchemeID]
	u := v.s.d.users[e.UserID]
	return enrollment.Detail{
		Enrollment:     e,
		SchemeName:     sc.Name,
		DurationMonths: sc.DurationMonths,
		GoldGrams:      sc.GoldGrams,
		UserEmail:      u.Email,
		UserName:       u.Name,
	}
}

func (v *Enrollments) sorted(keep func(e enrollment.Enrollment) bool) []enrollment.Enrollment {
	var out []enrollment.Enrollment
	for _, e := range v.s.d.enrollments {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (v *Enrollments) update(id uuid.UUID, fn func(e *enrollment.Enrollment)) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.d.enrollments[id]
	if !ok {
		return
	}
	fn(&e)
	e.UpdatedAt = time.Now()
	v.s.d.enrollments[id] = e
}

func (v *Enrollments) Create(_ context.Context, _ sqlx.ExtContext, e *enrollment.Enrollment) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e.ID = uuid.New()
	e.Status = enrollment.StatusActive
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	v.s.d.enrollments[e.ID] = *e
	return nil
}

func (v *Enrollments) GetByID(_ context.Context, _ sqlx.ExtContext, id uuid.UUID) (*enrollment.Enrollment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.d.enrollments[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (v *Enrollments) GetForUpdate(ctx context.Context, q sqlx.ExtContext, id uuid.UUID) (*enrollment.Enrollment, error) {
	return v.GetByID(ctx, q, id)
}

func (v *Enrollments) GetDetail(_ context.Context, _ sqlx.ExtContext, id uuid.UUID) (*enrollment.Detail, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.d.enrollments[id]
	if !ok {
		return nil, nil
	}
	d := v.detail(e)
	return &d, nil
}

func (v *Enrollments) ExistsActive(_ context.Context, _ sqlx.ExtContext, userID, schemeID uuid.UUID) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, e := range v.s.d.enrollments {
		if e.UserID == userID && e.SchemeID == schemeID && e.Status == enrollment.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (v *Enrollments) ListByUser(_ context.Context, userID uuid.UUID) ([]enrollment.Detail, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []enrollment.Detail
	for _, e := range v.sorted(func(e enrollment.Enrollment) bool { return e.UserID == userID }) {
		out = append(out, v.detail(e))
	}
	return out, nil
}

func (v *Enrollments) List(_ context.Context, status enrollment.Status, limit, offset int) ([]enrollment.Detail, int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	all := v.sorted(func(e enrollment.Enrollment) bool { return status == "" || e.Status == status })
	var out []enrollment.Detail
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, v.detail(all[i]))
	}
	return out, len(all), nil
}

func (v *Enrollments) ListActiveWithGrams(_ context.Context, _ sqlx.ExtContext) ([]enrollment.Detail, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []enrollment.Detail
	for _, e := range v.sorted(func(e enrollment.Enrollment) bool { return e.Status == enrollment.StatusActive }) {
		out = append(out, v.detail(e))
	}
	return out, nil
}

func (v *Enrollments) ListMatured(_ context.Context, _ sqlx.ExtContext, today time.Time) ([]enrollment.Detail, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []enrollment.Detail
	for _, e := range v.sorted(func(e enrollment.Enrollment) bool {
		return e.Status == enrollment.StatusActive && !e.EndDate.After(today)
	}) {
		out = append(out, v.detail(e))
	}
	return out, nil
}

func (v *Enrollments) ListActiveIDs(_ context.Context) ([]uuid.UUID, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var ids []uuid.UUID
	for _, e := range v.sorted(func(e enrollment.Enrollment) bool { return e.Status == enrollment.StatusActive }) {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

func (v *Enrollments) ListActiveWithPoints(_ context.Context) ([]uuid.UUID, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var ids []uuid.UUID
	for _, e := range v.sorted(func(e enrollment.Enrollment) bool {
		return e.Status == enrollment.StatusActive && e.AvailablePoints > 0
	}) {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

func (v *Enrollments) AdjustPoints(_ context.Context, _ sqlx.ExtContext, id uuid.UUID, delta int64) error {
	v.update(id, func(e *enrollment.Enrollment) {
		e.AvailablePoints = max(e.AvailablePoints+delta, 0)
		e.TotalPoints = max(e.TotalPoints+delta, 0)
	})
	return nil
}

func (v *Enrollments) DeductAvailable(_ context.Context, _ sqlx.ExtContext, id uuid.UUID, points int64) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.d.enrollments[id]
	if !ok || e.AvailablePoints < points {
		return false, nil
	}
	e.AvailablePoints -= points
	v.s.d.enrollments[id] = e
	return true, nil
}

func (v *Enrollments) SetAvailable(_ context.Context, _ sqlx.ExtContext, id uuid.UUID, points int64) error {
	v.update(id, func(e *enrollment.Enrollment) { e.AvailablePoints = points })
	return nil
}

func (v *Enrollments) SetStatus(_ context.Context, _ sqlx.ExtContext, id uuid.UUID, status enrollment.Status) error {
	v.update(id, func(e *enrollment.Enrollment) { e.Status = status })
	return nil
}

func (v *Enrollments) Accrue(_ context.Context, _ sqlx.ExtContext, id uuid.UUID, points int64, grams decimal.Decimal) error {
	v.update(id, func(e *enrollment.Enrollment) {
		e.AccruedGold = decimal.NewNullDecimal(e.Accrued().Add(grams))
		e.AvailablePoints = max(e.AvailablePoints-points, 0)
	})
	return nil
}

func (v *Enrollments) MarkCertificate(_ context.Context, _ sqlx.ExtContext, id uuid.UUID, key string) error {
	v.update(id, func(e *enrollment.Enrollment) {
		e.CertificateDelivered = true
		e.CertificateKey = &key
	})
	return nil
}

// Ledger implements ledger.Repository

type Ledger struct{ s *Store }

var _ ledger.Repository = (*Ledger)(nil)

func (v *Ledger) Insert(_ context.Context, _ sqlx.ExtContext, in ledger.TransactionInput) (*ledger.Transaction, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.FailPost[in.EnrollmentID]; err != nil {
		return nil, err
	}
	t := ledger.Transaction{
		ID:                  uuid.New(),
		EnrollmentID:        in.EnrollmentID,
		Type:                in.Type,
		Amount:              in.Amount,
		GoldGrams:           in.GoldGrams,
		Points:              in.Points,
		PriceRefID:          in.PriceRefID,
		RedemptionRequestID: in.RedemptionRequestID,
		Description:         in.Description,
		CreatedAt:           time.Now(),
	}
	v.s.d.txs = append(v.s.d.txs, t)
	return &t, nil
}

func (v *Ledger) SoftDeletePointsByPrice(_ context.Context, _ sqlx.ExtContext, priceID uuid.UUID) ([]ledger.Reversal, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.s.FailReversal != nil {
		return nil, v.s.FailReversal
	}
	var out []ledger.Reversal
	for i := range v.s.d.txs {
		t := &v.s.d.txs[i]
		if t.Deleted || t.Type != ledger.TypePoints || t.PriceRefID == nil || *t.PriceRefID != priceID {
			continue
		}
		t.Deleted = true
		out = append(out, ledger.Reversal{EnrollmentID: t.EnrollmentID, Points: t.Points})
	}
	return out, nil
}

func (v *Ledger) SoftDeleteByRedemption(_ context.Context, _ sqlx.ExtContext, requestID uuid.UUID) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var n int64
	for i := range v.s.d.txs {
		t := &v.s.d.txs[i]
		if !t.Deleted && t.RedemptionRequestID != nil && *t.RedemptionRequestID == requestID {
			t.Deleted = true
			n++
		}
	}
	return n, nil
}

func (v *Ledger) SumPoints(_ context.Context, _ sqlx.ExtContext, enrollmentID uuid.UUID) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var sum int64
	for _, t := range v.s.d.txs {
		if t.EnrollmentID == enrollmentID && !t.Deleted {
			sum += t.Points
		}
	}
	return sum, nil
}

func (v *Ledger) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID, limit, offset int) ([]ledger.Transaction, int, error) {
	all, _ := v.ListAllByEnrollment(ctx, enrollmentID)
	var out []ledger.Transaction
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, all[i])
	}
	return out, len(all), nil
}

func (v *Ledger) ListAllByEnrollment(_ context.Context, enrollmentID uuid.UUID) ([]ledger.Transaction, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []ledger.Transaction
	for _, t := range v.s.d.txs {
		if t.EnrollmentID == enrollmentID && !t.Deleted {
			out = append(out, t)
		}
	}
	return out, nil
}

func (v *Ledger) ListForUser(_ context.Context, userID uuid.UUID) ([]ledger.ExportRow, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []ledger.ExportRow
	for _, t := range v.s.d.txs {
		e := v.s.d.enrollments[t.EnrollmentID]
		if t.Deleted || e.UserID != userID {
			continue
		}
		out = append(out, ledger.ExportRow{Transaction: t, SchemeName: v.s.d.schemes[e.SchemeID].Name})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SchemeName < out[j].SchemeName })
	return out, nil
}

// Prices implements goldprice.Repository

type Prices struct{ s *Store }

var _ goldprice.Repository = (*Prices)(nil)

func (v *Prices) find(date time.Time) *goldprice.GoldPrice {
	for i := range v.s.d.prices {
		p := &v.s.d.prices[i]
		if !p.Deleted && p.PriceDate.Equal(dates.Normalize(date)) {
			return p
		}
	}
	return nil
}

func (v *Prices) FindActiveForUpdate(ctx context.Context, q sqlx.ExtContext, date time.Time) (*goldprice.GoldPrice, error) {
	return v.GetByDate(ctx, q, date)
}

func (v *Prices) MarkDeleted(_ context.Context, _ sqlx.ExtContext, id uuid.UUID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for i := range v.s.d.prices {
		if v.s.d.prices[i].ID == id {
			v.s.d.prices[i].Deleted = true
		}
	}
	return nil
}

func (v *Prices) Insert(_ context.Context, _ sqlx.ExtContext, p *goldprice.GoldPrice) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if v.find(p.PriceDate) != nil {
		return uniqueViolation("insert gold price")
	}
	p.ID = uuid.New()
	p.PriceDate = dates.Normalize(p.PriceDate)
	p.CreatedAt = time.Now()
	v.s.d.prices = append(v.s.d.prices, *p)
	return nil
}

func (v *Prices) GetByDate(_ context.Context, _ sqlx.ExtContext, date time.Time) (*goldprice.GoldPrice, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if p := v.find(date); p != nil {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (v *Prices) Latest(_ context.Context) (*goldprice.GoldPrice, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var latest *goldprice.GoldPrice
	for i := range v.s.d.prices {
		p := v.s.d.prices[i]
		if !p.Deleted && (latest == nil || p.PriceDate.After(latest.PriceDate)) {
			latest = &p
		}
	}
	return latest, nil
}

func (v *Prices) List(_ context.Context, from, to time.Time) ([]goldprice.GoldPrice, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []goldprice.GoldPrice
	for _, p := range v.s.d.prices {
		if !p.Deleted && !p.PriceDate.Before(from) && !p.PriceDate.After(to) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceDate.Before(out[j].PriceDate) })
	return out, nil
}

// Requests implements redemption.Repository

type Requests struct{ s *Store }

var _ redemption.Repository = (*Requests)(nil)

func (v *Requests) Create(_ context.Context, _ sqlx.ExtContext, req *redemption.Request) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	req.ID = uuid.New()
	req.Status = redemption.StatusPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	v.s.d.requests = append(v.s.d.requests, *req)
	return nil
}

func (v *Requests) GetByID(_ context.Context, id uuid.UUID) (*redemption.Request, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, r := range v.s.d.requests {
		if r.ID == id && !r.Deleted {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (v *Requests) GetForUpdate(ctx context.Context, _ sqlx.ExtContext, id uuid.UUID) (*redemption.Request, error) {
	return v.GetByID(ctx, id)
}

func (v *Requests) has(enrollmentID uuid.UUID, t redemption.Type, pendingOnly bool) bool {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, r := range v.s.d.requests {
		if r.EnrollmentID == enrollmentID && r.Type == t && !r.Deleted &&
			(!pendingOnly || r.Status == redemption.StatusPending) {
			return true
		}
	}
	return false
}

func (v *Requests) HasPending(_ context.Context, _ sqlx.ExtContext, enrollmentID uuid.UUID, t redemption.Type) (bool, error) {
	return v.has(enrollmentID, t, true), nil
}

func (v *Requests) PendingBonus(_ context.Context, _ sqlx.ExtContext, enrollmentID uuid.UUID) (redemption.Reserved, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var res redemption.Reserved
	for _, r := range v.s.d.requests {
		if r.EnrollmentID == enrollmentID && r.Type == redemption.TypeBonus && r.Status == redemption.StatusPending && !r.Deleted {
			res.Requests++
			res.Points += r.PointsValue()
		}
	}
	return res, nil
}

func (v *Requests) HasAny(_ context.Context, _ sqlx.ExtContext, enrollmentID uuid.UUID, t redemption.Type) (bool, error) {
	return v.has(enrollmentID, t, false), nil
}

func (v *Requests) Decide(_ context.Context, _ sqlx.ExtContext, id uuid.UUID, status redemption.Status, adminID uuid.UUID, remarks string, at time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for i := range v.s.d.requests {
		r := &v.s.d.requests[i]
		if r.ID == id && r.Status == redemption.StatusPending {
			r.Status = status
			r.ApprovedBy = &adminID
			r.ApprovedAt = &at
			r.Remarks = remarks
		}
	}
	return nil
}

func (v *Requests) ListByEnrollment(_ context.Context, enrollmentID uuid.UUID) ([]redemption.Request, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []redemption.Request
	for _, r := range v.s.d.requests {
		if r.EnrollmentID == enrollmentID && !r.Deleted {
			out = append(out, r)
		}
	}
	return out, nil
}

func (v *Requests) List(_ context.Context, status redemption.Status, t redemption.Type, limit, offset int) ([]redemption.Request, int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var all []redemption.Request
	for _, r := range v.s.d.requests {
		if !r.Deleted && (status == "" || r.Status == status) && (t == "" || r.Type == t) {
			all = append(all, r)
		}
	}
	var out []redemption.Request
	for i := offset; i < len(all) && i < offset+limit; i++ {
		out = append(out, all[i])
	}
	return out, len(all), nil
}
