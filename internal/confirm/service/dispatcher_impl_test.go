package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/luminacare/checkout/internal/config"
	"github.com/luminacare/checkout/internal/confirm/domain"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	"github.com/luminacare/checkout/internal/providers/email"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeEmail struct {
	sent    []sentMail
	failFor string
}

func (f *fakeEmail) Send(_ context.Context, to []string, subject string, htmlBody string) (email.Receipt, error) {
	if f.failFor != "" && len(to) > 0 && to[0] == f.failFor {
		return email.Receipt{}, errors.New("smtp_unavailable")
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return email.Receipt{DeliveryID: "D-1"}, nil
}

type fakeDedup struct {
	first bool
	err   error
	calls int
}

func (f *fakeDedup) TryAcquire(_ context.Context, orderNumber string, _ string) (bool, error) {
	f.calls++
	if orderNumber == "" {
		return false, domain.ErrMissingOrderNumber
	}
	return f.first, f.err
}

func newTestDispatcher(mail *fakeEmail, dedup *fakeDedup) domain.Dispatcher {
	policy := config.DefaultNotifyPolicy()
	policy.AdminRecipients = []string{"admin@luminacare.ro"}
	return NewDispatcher(Params{
		Cfg:    config.Config{AdminEmail: "admin@luminacare.ro"},
		Log:    zap.NewNop(),
		Policy: config.NewStaticNotifyPolicyHolder(policy),
		Email:  mail,
		Dedup:  dedup,
	})
}

func verifiedRecord() *orderdomain.Record {
	return &orderdomain.Record{
		OrderNumber:            "LC-1700000000000",
		CustomerName:           "Ana Popescu",
		CustomerEmail:          "ana@gmail.com",
		TotalAmount:            "50.00",
		PaymentMethod:          "card",
		IsVerifiedCustomerData: true,
	}
}

func TestDispatchVerifiedCustomer(t *testing.T) {
	mail := &fakeEmail{}
	sum, err := newTestDispatcher(mail, &fakeDedup{first: true}).
		Dispatch(context.Background(), verifiedRecord(), domain.SourceRecovery)
	require.NoError(t, err)
	require.False(t, sum.IsBackupNotification)
	require.True(t, sum.Customer.OK())
	require.True(t, sum.Admin.OK())
	require.Len(t, mail.sent, 2)
	require.Equal(t, []string{"ana@gmail.com"}, mail.sent[0].to)
	require.Equal(t, []string{"admin@luminacare.ro"}, mail.sent[1].to)
}

func TestDispatchPlaceholderEmailIsAdminOnlyBackup(t *testing.T) {
	rec := verifiedRecord()
	rec.CustomerEmail = "test@example.com"

	mail := &fakeEmail{}
	sum, err := newTestDispatcher(mail, &fakeDedup{first: true}).
		Dispatch(context.Background(), rec, domain.SourceWebhook)
	require.NoError(t, err)
	require.True(t, sum.IsBackupNotification)
	require.False(t, sum.Customer.Attempted)
	require.True(t, sum.Admin.OK())
	require.Len(t, mail.sent, 1)
	require.Equal(t, []string{"admin@luminacare.ro"}, mail.sent[0].to)
	require.Contains(t, mail.sent[0].subject, "BACKUP")
	require.Contains(t, mail.sent[0].body, "rezerv")
}

func TestDispatchUnverifiedRecordIsBackupEvenWithRealEmail(t *testing.T) {
	rec := verifiedRecord()
	rec.IsVerifiedCustomerData = false

	mail := &fakeEmail{}
	sum, err := newTestDispatcher(mail, &fakeDedup{first: true}).
		Dispatch(context.Background(), rec, domain.SourceWebhook)
	require.NoError(t, err)
	require.True(t, sum.IsBackupNotification)
	require.Len(t, mail.sent, 1)
}

func TestDispatchDuplicateSkipsSends(t *testing.T) {
	mail := &fakeEmail{}
	dedup := &fakeDedup{first: false}
	sum, err := newTestDispatcher(mail, dedup).
		Dispatch(context.Background(), verifiedRecord(), domain.SourceWebhook)
	require.NoError(t, err)
	require.True(t, sum.Duplicate)
	require.Empty(t, mail.sent)
	require.Equal(t, 1, dedup.calls)
}

func TestDispatchCustomerFailureDoesNotBlockAdmin(t *testing.T) {
	mail := &fakeEmail{failFor: "ana@gmail.com"}
	sum, err := newTestDispatcher(mail, &fakeDedup{first: true}).
		Dispatch(context.Background(), verifiedRecord(), domain.SourceRecovery)
	require.NoError(t, err)
	require.True(t, sum.Customer.Attempted)
	require.False(t, sum.Customer.OK())
	require.Equal(t, "smtp_unavailable", sum.Customer.Error)
	require.True(t, sum.Admin.OK())
	require.Len(t, mail.sent, 1)
}

func TestDispatchDedupErrorStillDispatches(t *testing.T) {
	mail := &fakeEmail{}
	sum, err := newTestDispatcher(mail, &fakeDedup{err: errors.New("db down")}).
		Dispatch(context.Background(), verifiedRecord(), domain.SourceRecovery)
	require.NoError(t, err)
	require.False(t, sum.Duplicate)
	require.Len(t, mail.sent, 2)
}

func TestDispatchDegradedRecordIsAdminOnly(t *testing.T) {
	// recovery miss: order acknowledged, details unknown
	rec := &orderdomain.Record{OrderNumber: "LC-1700000000000"}

	mail := &fakeEmail{}
	sum, err := newTestDispatcher(mail, &fakeDedup{first: true}).
		Dispatch(context.Background(), rec, domain.SourceRecovery)
	require.NoError(t, err)
	require.True(t, sum.IsBackupNotification)
	require.Len(t, mail.sent, 1)
	require.True(t, strings.Contains(mail.sent[0].body, "LC-1700000000000"))
}

func TestDispatchMissingOrderNumber(t *testing.T) {
	_, err := newTestDispatcher(&fakeEmail{}, &fakeDedup{first: true}).
		Dispatch(context.Background(), &orderdomain.Record{}, domain.SourceRecovery)
	require.ErrorIs(t, err, domain.ErrMissingOrderNumber)
}
