package intake

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mbella-dev/colisflow/internal/orders"
)

// OrderFinder is the lookup surface the resolver needs from the store.
type OrderFinder interface {
	LatestByPhone(ctx context.Context, phone string) (*orders.Order, error)
}

// ResolveContext carries what the transport layer knows about the message
// beyond its text. Direct is the order resolved from reply-thread
// linkage, when the message replied to a known order-creation message.
type ResolveContext struct {
	Direct *orders.Order
}

// Outcome pairs the target order with the mutation to apply and the audit
// tag the persistence layer records with it.
type Outcome struct {
	Order         *orders.Order
	Update        orders.Update
	HistoryAction string
}

// ErrUnresolved marks a status update whose target order could not be
// identified or whose mutation is not actionable. Callers log and drop;
// one bad message must never abort the intake loop.
var ErrUnresolved = errors.New("intake: status update unresolved")

// UnresolvedError carries the reason alongside ErrUnresolved.
type UnresolvedError struct {
	Reason string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("intake: status update unresolved: %s", e.Reason)
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolved }

func unresolved(reason string) error {
	return &UnresolvedError{Reason: reason}
}

// Resolver locates the order a status update applies to and computes the
// field mutations.
type Resolver struct {
	finder OrderFinder
}

func NewResolver(finder OrderFinder) *Resolver {
	if finder == nil {
		panic("intake: order finder required")
	}
	return &Resolver{finder: finder}
}

// Resolve finds the single order the intent targets. Reply-thread linkage
// wins over phone lookup; phone lookup takes the most recent order for
// the number regardless of status.
func (r *Resolver) Resolve(ctx context.Context, intent StatusIntent, rctx ResolveContext) (*Outcome, error) {
	if intent.Kind == IntentNone {
		return nil, unresolved("no recognizable status in message")
	}

	order := rctx.Direct
	if order == nil {
		phone := intent.Phone
		if intent.Kind == IntentNumberChange && intent.OldPhone != "" {
			phone = intent.OldPhone
		}
		if phone == "" {
			return nil, unresolved("missing identifying phone")
		}
		found, err := r.finder.LatestByPhone(ctx, phone)
		if err != nil {
			if errors.Is(err, orders.ErrOrderNotFound) {
				return nil, unresolved("no order for phone " + phone)
			}
			return nil, fmt.Errorf("intake: order lookup: %w", err)
		}
		order = found
	}

	update, action, err := computeUpdate(order, intent)
	if err != nil {
		return nil, err
	}
	return &Outcome{Order: order, Update: update, HistoryAction: action}, nil
}

// computeUpdate derives the mutation for one intent against the order's
// current state. Monetary values are rounded to 2 decimals at every step
// so repeated accumulation cannot drift.
func computeUpdate(order *orders.Order, intent StatusIntent) (orders.Update, string, error) {
	switch intent.Kind {
	case IntentFailed:
		return statusUpdate(orders.StatusFailed), "marked_failed", nil
	case IntentPickup:
		return statusUpdate(orders.StatusPickup), "marked_pickup", nil
	case IntentPending:
		return statusUpdate(orders.StatusPending), "marked_pending", nil

	case IntentPayment:
		due := round2(order.AmountDue)
		paidSoFar := round2(order.AmountPaid)
		var applied float64
		if intent.HasAmount && intent.Amount != 0 {
			applied = round2(intent.Amount)
		} else {
			// No amount means "settle whatever remains". When nothing
			// remains the full due amount is re-applied: the operator
			// is re-confirming an already settled order.
			applied = round2(due - paidSoFar)
			if applied <= 0 {
				applied = due
			}
		}
		paid := round2(paidSoFar + applied)
		update := orders.Update{AmountPaid: &paid}
		action := "payment_collected"
		if paid >= due {
			status := orders.StatusDelivered
			update.Status = &status
			action = "marked_delivered"
		}
		return update, action, nil

	case IntentModify:
		var update orders.Update
		if intent.HasAmount {
			amount := round2(intent.Amount)
			update.AmountDue = &amount
		}
		if intent.Items != "" {
			items := intent.Items
			update.Items = &items
		}
		if update.IsZero() {
			return orders.Update{}, "", unresolved("modification carries no new amount or items")
		}
		return update, "modified", nil

	case IntentNumberChange:
		if intent.NewPhone == "" {
			return orders.Update{}, "", unresolved("number change without a new number")
		}
		phone := intent.NewPhone
		return orders.Update{Phone: &phone}, "number_changed", nil
	}
	return orders.Update{}, "", unresolved("unknown status intent")
}

func statusUpdate(s orders.Status) orders.Update {
	return orders.Update{Status: &s}
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
