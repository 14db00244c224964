package broadcast

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/events"
	"wingo/service"
)

var _ service.Broadcaster = (*Hub)(nil)

// PersonalUpdate tells one account its balance changed. Seq is the ledger entry id, so
// clients can order updates.
type PersonalUpdate struct {
	Seq         int64           `json:"seq,omitempty"`
	Kind        string          `json:"kind"`
	Balance     decimal.Decimal `json:"balance"`
	Delta       decimal.Decimal `json:"delta"`
	Description string          `json:"description,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
}

// SubscribeToBus forwards committed balance changes to the connections of the affected
// account
func (h *Hub) SubscribeToBus(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(_ context.Context, event events.Event) {
		e, ok := event.(events.BalanceChangeEvent)
		if !ok {
			return
		}
		h.sendPersonal(e.AccountID, e.EntryID, PersonalUpdate{
			Kind:        string(e.Kind),
			Balance:     e.NewBalance,
			Delta:       e.Delta,
			Description: e.Description,
		})
	})

	bus.Subscribe(events.EventTypeDepositCredited, func(_ context.Context, event events.Event) {
		e, ok := event.(events.DepositCreditedEvent)
		if !ok {
			return
		}
		h.sendPersonal(e.AccountID, e.EntryID, PersonalUpdate{
			Kind:    "deposit_credited",
			Balance: e.NewBalance,
			Delta:   e.Amount,
			OrderID: e.OrderID,
		})
	})
}

// personalOrder remembers the newest ledger entry sent to each connected account. Bus
// handlers run concurrently, so an older balance can arrive after a newer one.
type personalOrder struct {
	mu   sync.Mutex
	last map[int64]int64
}

func (o *personalOrder) forget(accountID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.last, accountID)
}

// sendPersonal delivers update unless a newer entry was already sent to the account. An
// entry id of zero is always delivered.
func (h *Hub) sendPersonal(accountID, entryID int64, update PersonalUpdate) {
	h.personal.mu.Lock()
	defer h.personal.mu.Unlock()

	h.mu.RLock()
	connected := len(h.byAccount[accountID]) > 0
	h.mu.RUnlock()
	if !connected {
		return
	}

	if entryID > 0 {
		if entryID < h.personal.last[accountID] {
			log.WithFields(log.Fields{
				"accountID": accountID,
				"entryID":   entryID,
			}).Debug("Dropped stale balance update")
			return
		}
		h.personal.last[accountID] = entryID
	}

	update.Seq = entryID
	h.SendToAccount(accountID, service.EventPersonalUpdate, update)
}
