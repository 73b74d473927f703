package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbella-dev/colisflow/internal/msglink"
	"github.com/mbella-dev/colisflow/internal/observability/metrics"
	"github.com/mbella-dev/colisflow/internal/orders"
	"github.com/mbella-dev/colisflow/pkg/logging"
)

// OrderStore is the persistence surface the intake service depends on.
type OrderStore interface {
	Create(ctx context.Context, req *orders.CreateOrderRequest) (*orders.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	LatestByPhone(ctx context.Context, phone string) (*orders.Order, error)
	ApplyUpdate(ctx context.Context, id uuid.UUID, update orders.Update, historyAction, details string) (*orders.Order, error)
}

// LinkStore maps chat message IDs to the orders they created.
type LinkStore interface {
	Record(ctx context.Context, messageID string, orderID uuid.UUID) error
	Resolve(ctx context.Context, candidates ...string) (uuid.UUID, error)
}

// InboundMessage is one group message as delivered by the chat bridge,
// already stripped of transport framing.
type InboundMessage struct {
	GroupID         string `json:"group_id"`
	AgencyID        string `json:"agency_id"`
	MessageID       string `json:"message_id"`
	Sender          string `json:"sender"`
	Text            string `json:"text"`
	QuotedMessageID string `json:"quoted_message_id,omitempty"`
	// QuotedRemoteID and QuotedBareID are alternative representations
	// of the quoted message's ID; transports have not been consistent
	// about which one survives serialization.
	QuotedRemoteID string `json:"quoted_remote_id,omitempty"`
	QuotedBareID   string `json:"quoted_bare_id,omitempty"`
}

// Result summarizes what HandleMessage did with a message, for logging
// and for the dry-run admin endpoint.
type Result struct {
	Decision      string        `json:"decision"`
	Order         *orders.Order `json:"order,omitempty"`
	HistoryAction string        `json:"history_action,omitempty"`
	Dropped       string        `json:"dropped,omitempty"`
}

// Service wires the classification engine to its collaborators. The
// engine itself stays pure; all I/O happens here.
type Service struct {
	classifier *Classifier
	resolver   *Resolver
	store      OrderStore
	links      LinkStore
	metrics    *metrics.IntakeMetrics
	logger     *logging.Logger
}

func NewService(classifier *Classifier, store OrderStore, links LinkStore, m *metrics.IntakeMetrics, logger *logging.Logger) *Service {
	if classifier == nil {
		panic("intake: classifier required")
	}
	if store == nil {
		panic("intake: order store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		classifier: classifier,
		resolver:   NewResolver(store),
		store:      store,
		links:      links,
		metrics:    m,
		logger:     logger,
	}
}

// HandleMessage classifies one message and persists the consequence.
// Unparseable or unresolvable text is logged and dropped; errors are
// reserved for storage failures, so the queue can redeliver.
func (s *Service) HandleMessage(ctx context.Context, msg InboundMessage) (*Result, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveHandleLatency(time.Since(start).Seconds())
	}()

	reply := s.resolveReply(ctx, msg)
	decision := s.classifier.Classify(msg.Text, reply)
	s.metrics.ObserveDecision(decision.Kind.String())

	switch decision.Kind {
	case DecisionNewOrder:
		return s.createOrder(ctx, msg, decision.Order)
	case DecisionStatusUpdate:
		return s.applyStatusUpdate(ctx, msg, decision.Intent, reply)
	default:
		if decision.NoiseReason != "" && looksStructured(msg.Text) {
			s.metrics.ObserveParseFailure()
		}
		s.logger.Debug("message dropped as noise",
			"group_id", msg.GroupID,
			"message_id", msg.MessageID,
			"reason", decision.NoiseReason,
		)
		return &Result{Decision: decision.Kind.String(), Dropped: decision.NoiseReason}, nil
	}
}

// resolveReply turns quoted-message metadata into the order the reply
// targets. Every failure degrades to "not a reply".
func (s *Service) resolveReply(ctx context.Context, msg InboundMessage) ReplyContext {
	if s.links == nil {
		return ReplyContext{}
	}
	candidates := collectQuotedIDs(msg)
	if len(candidates) == 0 {
		return ReplyContext{}
	}
	orderID, err := s.links.Resolve(ctx, candidates...)
	if err != nil {
		if !errors.Is(err, msglink.ErrNotFound) {
			s.logger.Warn("reply linkage lookup failed", "error", err, "message_id", msg.MessageID)
		}
		return ReplyContext{}
	}
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		s.logger.Warn("reply linkage points at missing order", "error", err, "order_id", orderID)
		return ReplyContext{}
	}
	return ReplyContext{HasQuotedOrder: true, QuotedOrder: order}
}

func collectQuotedIDs(msg InboundMessage) []string {
	var out []string
	for _, id := range []string{msg.QuotedMessageID, msg.QuotedRemoteID, msg.QuotedBareID} {
		if strings.TrimSpace(id) != "" {
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) createOrder(ctx context.Context, msg InboundMessage, parsed *ParsedOrder) (*Result, error) {
	req := &orders.CreateOrderRequest{
		GroupID:         msg.GroupID,
		AgencyID:        msg.AgencyID,
		Phone:           parsed.Phone,
		CustomerName:    parsed.CustomerName,
		Items:           parsed.Items,
		Quartier:        parsed.Quartier,
		Carrier:         parsed.Carrier,
		AmountDue:       parsed.AmountDue,
		SourceMessageID: msg.MessageID,
	}
	order, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("intake: create order: %w", err)
	}
	if s.links != nil {
		if err := s.links.Record(ctx, msg.MessageID, order.ID); err != nil {
			// The order exists; losing the link only degrades reply
			// resolution to phone lookup.
			s.logger.Warn("recording message link failed", "error", err, "order_id", order.ID)
		}
	}
	s.logger.Info("order created",
		"order_id", order.ID,
		"group_id", msg.GroupID,
		"phone", order.Phone,
		"amount_due", order.AmountDue,
	)
	return &Result{Decision: DecisionNewOrder.String(), Order: order}, nil
}

func (s *Service) applyStatusUpdate(ctx context.Context, msg InboundMessage, intent StatusIntent, reply ReplyContext) (*Result, error) {
	s.metrics.ObserveIntent(intent.Kind.String())

	outcome, err := s.resolver.Resolve(ctx, intent, ResolveContext{Direct: reply.QuotedOrder})
	if err != nil {
		if errors.Is(err, ErrUnresolved) {
			s.metrics.ObserveUnresolved()
			s.logger.Info("status update dropped",
				"group_id", msg.GroupID,
				"message_id", msg.MessageID,
				"intent", intent.Kind.String(),
				"reason", err.Error(),
			)
			return &Result{Decision: DecisionStatusUpdate.String(), Dropped: err.Error()}, nil
		}
		return nil, err
	}

	order, err := s.store.ApplyUpdate(ctx, outcome.Order.ID, outcome.Update, outcome.HistoryAction, intent.Details)
	if err != nil {
		return nil, fmt.Errorf("intake: apply update: %w", err)
	}
	s.logger.Info("order updated",
		"order_id", order.ID,
		"action", outcome.HistoryAction,
		"status", order.Status,
	)
	return &Result{Decision: DecisionStatusUpdate.String(), Order: order, HistoryAction: outcome.HistoryAction}, nil
}

// looksStructured reports whether the operator appears to have attempted
// one of the line-based order formats.
func looksStructured(text string) bool {
	return len(splitLines(text)) >= 4
}

// Classify exposes the pure classification for the admin dry-run
// endpoint. Nothing is persisted.
func (s *Service) Classify(text string, reply ReplyContext) Decision {
	return s.classifier.Classify(text, reply)
}
