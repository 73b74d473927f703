package intake

import (
	"github.com/mbella-dev/colisflow/internal/orders"
)

// DecisionKind discriminates what an incoming message turned out to be.
type DecisionKind int

const (
	DecisionNoise DecisionKind = iota
	DecisionNewOrder
	DecisionStatusUpdate
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionNewOrder:
		return "new_order"
	case DecisionStatusUpdate:
		return "status_update"
	default:
		return "noise"
	}
}

// ReplyContext is what the transport layer resolved about the message's
// reply thread. Missing or partial metadata is equivalent to "not a
// reply": the classifier never trusts HasQuotedOrder without an order.
type ReplyContext struct {
	HasQuotedOrder bool
	QuotedOrder    *orders.Order
}

// Decision is the classifier verdict handed to the transport layer.
type Decision struct {
	Kind DecisionKind
	// Order is set for DecisionNewOrder.
	Order *ParsedOrder
	// Intent is set for DecisionStatusUpdate. Its kind may be
	// IntentNone when the message replied to a known order but carried
	// no recognizable status keyword; resolution then reports that
	// instead of the message being dropped as noise.
	Intent StatusIntent
	// NoiseReason keeps the structural-error text for logging when a
	// 4+-line message failed the structured formats.
	NoiseReason string
}

// Classifier is the engine entry point. It is pure: no I/O, no shared
// state, safe for concurrent use.
type Classifier struct {
	status *StatusParser
	order  *OrderParser
}

// NewClassifier builds the engine around one gazetteer.
func NewClassifier(gaz Gazetteer) *Classifier {
	ex := NewExtractor(gaz)
	return &Classifier{
		status: NewStatusParser(ex),
		order:  NewOrderParser(ex),
	}
}

// Classify decides whether text is noise, a new order, or a status
// update. Status classification runs first, and a reply to a known order
// is always a status-update attempt even when no keyword matches.
func (c *Classifier) Classify(text string, reply ReplyContext) Decision {
	isReply := reply.HasQuotedOrder && reply.QuotedOrder != nil

	intent := c.status.Parse(text, isReply)
	if intent.Kind != IntentNone || isReply {
		return Decision{Kind: DecisionStatusUpdate, Intent: intent}
	}

	order, err := c.order.Parse(text)
	if err != nil {
		return Decision{Kind: DecisionNoise, NoiseReason: err.Error()}
	}
	if order.HasPhone || order.HasAmount {
		return Decision{Kind: DecisionNewOrder, Order: order}
	}
	return Decision{Kind: DecisionNoise, NoiseReason: "no phone or amount found"}
}
