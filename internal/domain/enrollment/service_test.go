package enrollment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldsave/goldsave-api/internal/domain/enrollment"
	"github.com/goldsave/goldsave-api/internal/domain/ledger"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
	"github.com/goldsave/goldsave-api/internal/pkg/password"
	"github.com/goldsave/goldsave-api/internal/pkg/storage"
	"github.com/goldsave/goldsave-api/internal/testutil/memstore"
)

type objects map[string]bool

func (o objects) Exists(_ context.Context, key string) (bool, error) { return o[key], nil }

type fixture struct {
	store  *memstore.Store
	mailer *memstore.Mailer
	files  objects
	svc    *enrollment.Service
}

func newFixture() *fixture {
	store := memstore.New()
	mailer := &memstore.Mailer{}
	files := objects{}
	svc := enrollment.NewService(store, store.Enrollments(), store.Users(), store.Schemes(),
		ledger.NewService(store.Ledger()), mailer, files, "https://app.example.com/login")
	return &fixture{store: store, mailer: mailer, files: files, svc: svc}
}

func TestEnrollCreatesMemberAndSendsCredentials(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc := f.store.AddScheme("Gold 11", 11, decimal.NewFromInt(10))

	resp, err := f.svc.Enroll(ctx, &enrollment.EnrollRequest{
		Email:     " Priya@Example.com ",
		Name:      "Priya",
		SchemeID:  sc.ID,
		StartDate: "2026-01-31",
	})
	require.NoError(t, err)
	assert.True(t, resp.UserCreated)
	assert.Equal(t, enrollment.StatusActive, resp.Enrollment.Status)
	assert.Equal(t, "2026-12-31", resp.Enrollment.EndDate.Format("2006-01-02"))

	u, ok := f.store.UserByEmail("priya@example.com")
	require.True(t, ok)
	assert.Equal(t, resp.UserID, u.ID)

	require.Len(t, f.mailer.Sent, 1)
	mail := f.mailer.Sent[0]
	assert.Equal(t, "welcome", mail.Kind)
	assert.Equal(t, "priya@example.com", mail.To)
	tempPassword := mail.Fields[2]
	assert.Len(t, tempPassword, 12)
	assert.True(t, password.Verify(tempPassword, u.PasswordHash))
}

func TestEnrollReusesExistingMember(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.store.AddUser("ravi@example.com", "Ravi")
	first := f.store.AddScheme("Gold 6", 6, decimal.NewFromInt(5))
	second := f.store.AddScheme("Gold 11", 11, decimal.NewFromInt(10))

	_, err := f.svc.Enroll(ctx, &enrollment.EnrollRequest{Email: "ravi@example.com", Name: "Ravi", SchemeID: first.ID, StartDate: "2026-02-01"})
	require.NoError(t, err)
	resp, err := f.svc.Enroll(ctx, &enrollment.EnrollRequest{Email: "RAVI@example.com", Name: "Ravi", SchemeID: second.ID, StartDate: "2026-02-01"})
	require.NoError(t, err)

	assert.False(t, resp.UserCreated)
	assert.Equal(t, u.ID, resp.UserID)
	assert.Zero(t, f.mailer.Count("welcome"))

	list, err := f.svc.ListForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestEnrollRejectsDuplicateActiveEnrollment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sc := f.store.AddScheme("Gold 11", 11, decimal.NewFromInt(10))
	req := &enrollment.EnrollRequest{Email: "new@example.com", Name: "New", SchemeID: sc.ID, StartDate: "2026-02-01"}

	_, err := f.svc.Enroll(ctx, req)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, req)
	assert.True(t, errors.Is(err, enrollment.ErrAlreadyEnrolled))
	assert.Equal(t, 1, f.mailer.Count("welcome"))
}

func TestEnrollValidatesInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Enroll(ctx, &enrollment.EnrollRequest{Email: "a@example.com", SchemeID: uuid.New(), StartDate: "01/02/2026"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.Enroll(ctx, &enrollment.EnrollRequest{Email: "a@example.com", SchemeID: uuid.New(), StartDate: "2026-02-01"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	_, found := f.store.UserByEmail("a@example.com")
	assert.False(t, found)
}

func TestGetForUserHidesOtherMembers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.store.AddUser("m@example.com", "M")
	e := f.store.AddEnrollment(u.ID, f.store.AddScheme("Gold", 11, decimal.NewFromInt(1)), mustDate("2026-01-01"))

	d, err := f.svc.GetForUser(ctx, u.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gold", d.SchemeName)

	_, err = f.svc.GetForUser(ctx, uuid.New(), e.ID)
	assert.True(t, errors.Is(err, enrollment.ErrEnrollmentNotFound))
	assert.True(t, errors.Is(f.svc.CheckOwner(ctx, uuid.New(), e.ID), enrollment.ErrEnrollmentNotFound))
	assert.NoError(t, f.svc.CheckOwner(ctx, u.ID, e.ID))
}

func TestDepositAndWithdraw(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.store.AddUser("m@example.com", "M")
	e := f.store.AddEnrollment(u.ID, f.store.AddScheme("Gold", 11, decimal.NewFromInt(10)), mustDate("2026-01-01"))

	tx, err := f.svc.RecordDeposit(ctx, e.ID, &enrollment.DepositRequest{Amount: decimal.NewFromInt(5000)})
	require.NoError(t, err)
	assert.Equal(t, ledger.TypeDeposit, tx.Type)
	assert.Equal(t, "Instalment deposit", tx.Description)

	out, err := f.svc.Withdraw(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, enrollment.StatusWithdrawn, out.Status)

	_, err = f.svc.RecordDeposit(ctx, e.ID, &enrollment.DepositRequest{Amount: decimal.NewFromInt(5000)})
	assert.True(t, errors.Is(err, enrollment.ErrNotActive))
	_, err = f.svc.Withdraw(ctx, e.ID)
	assert.True(t, errors.Is(err, enrollment.ErrNotActive))
	assert.Len(t, f.store.Transactions(e.ID), 1)
}

func TestMarkCertificateDelivered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.store.AddUser("m@example.com", "M")
	e := f.store.AddEnrollment(u.ID, f.store.AddScheme("Gold", 11, decimal.NewFromInt(10)), mustDate("2026-01-01"))

	_, err := f.svc.MarkCertificateDelivered(ctx, e.ID, storage.UserPrefix(u.ID)+"cert.pdf")
	assert.True(t, errors.Is(err, enrollment.ErrInvalidCertificate))

	key := storage.CertificatePrefix(e.ID) + "cert.pdf"
	_, err = f.svc.MarkCertificateDelivered(ctx, e.ID, key)
	assert.True(t, errors.Is(err, enrollment.ErrCertificateMissing))

	f.files[key] = true
	out, err := f.svc.MarkCertificateDelivered(ctx, e.ID, key)
	require.NoError(t, err)
	assert.True(t, out.CertificateDelivered)
	stored := f.store.Enrollment(e.ID)
	require.NotNil(t, stored.CertificateKey)
	assert.Equal(t, key, *stored.CertificateKey)
}
