package recovery

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	accountdomain "github.com/luminacare/checkout/internal/account/domain"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
)

const (
	TierPrimary   = "primary"
	TierSecondary = "secondary"
	TierCookie    = "cookie"
	TierRemote    = "remote"
)

// ClientSnapshot is what the browser still holds when it returns from the
// processor redirect: its keyed order store, its single most-recent order
// slot, and a cookie side channel. Fields are raw so one malformed tier
// cannot poison the others at bind time.
type ClientSnapshot struct {
	Orders    map[string]json.RawMessage `json:"orders"`
	LastOrder json.RawMessage            `json:"lastOrder"`
	Cookie    string                     `json:"-"`
}

// Probe is one recovery tier. ErrNotFound from order domain means the tier
// has nothing for this order; any other error means the tier was present but
// unreadable.
type Probe interface {
	Name() string
	TryRead(ctx context.Context, orderID string, snap ClientSnapshot) (*orderdomain.Record, error)
}

type primaryProbe struct{}

func (primaryProbe) Name() string { return TierPrimary }

func (primaryProbe) TryRead(_ context.Context, orderID string, snap ClientSnapshot) (*orderdomain.Record, error) {
	raw, ok := snap.Orders[orderID]
	if !ok || len(raw) == 0 {
		return nil, orderdomain.ErrNotFound
	}
	var rec orderdomain.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.New("malformed keyed store entry")
	}
	return &rec, nil
}

type secondaryProbe struct{}

func (secondaryProbe) Name() string { return TierSecondary }

func (secondaryProbe) TryRead(_ context.Context, orderID string, snap ClientSnapshot) (*orderdomain.Record, error) {
	if len(snap.LastOrder) == 0 {
		return nil, orderdomain.ErrNotFound
	}
	var rec orderdomain.Record
	if err := json.Unmarshal(snap.LastOrder, &rec); err != nil {
		return nil, errors.New("malformed last-order slot")
	}
	return &rec, nil
}

type cookieProbe struct{}

func (cookieProbe) Name() string { return TierCookie }

func (cookieProbe) TryRead(_ context.Context, orderID string, snap ClientSnapshot) (*orderdomain.Record, error) {
	encoded := strings.TrimSpace(snap.Cookie)
	if encoded == "" {
		return nil, orderdomain.ErrNotFound
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// cookies travel through URL-encoding layers that mangle padding
		decoded, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, errors.New("cookie is not base64")
	}
	var rec orderdomain.Record
	if err := json.Unmarshal(decoded, &rec); err != nil {
		return nil, errors.New("malformed cookie record")
	}
	return &rec, nil
}

// remoteProbe is the last resort: the account store queried by order number.
// It returns an explicit not-found instead of fabricating a record; a stored
// document without real customer data is treated as a miss.
type remoteProbe struct {
	repo accountdomain.Repository
}

func (remoteProbe) Name() string { return TierRemote }

func (p remoteProbe) TryRead(ctx context.Context, orderID string, _ ClientSnapshot) (*orderdomain.Record, error) {
	stored, err := p.repo.FindByOrderNumber(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, orderdomain.ErrNotFound
	}
	rec := stored.ToRecord()
	if err := rec.Validate(); err != nil {
		return nil, orderdomain.ErrNotFound
	}
	return rec, nil
}
