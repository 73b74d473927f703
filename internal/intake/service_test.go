package intake

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mbella-dev/colisflow/internal/msglink"
	"github.com/mbella-dev/colisflow/internal/observability/metrics"
	"github.com/mbella-dev/colisflow/internal/orders"
	"github.com/mbella-dev/colisflow/pkg/logging"
)

type fakeLinks struct {
	byID map[string]uuid.UUID
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{byID: make(map[string]uuid.UUID)}
}

func (f *fakeLinks) Record(_ context.Context, messageID string, orderID uuid.UUID) error {
	f.byID[messageID] = orderID
	return nil
}

func (f *fakeLinks) Resolve(_ context.Context, candidates ...string) (uuid.UUID, error) {
	for _, id := range candidates {
		if orderID, ok := f.byID[id]; ok {
			return orderID, nil
		}
	}
	return uuid.Nil, msglink.ErrNotFound
}

func newTestService(t *testing.T) (*Service, *orders.InMemoryRepository, *fakeLinks) {
	t.Helper()
	repo := orders.NewInMemoryRepository()
	links := newFakeLinks()
	m := metrics.NewIntakeMetrics(prometheus.NewRegistry())
	svc := NewService(NewClassifier(DefaultGazetteer()), repo, links, m, logging.New("error"))
	return svc, repo, links
}

func inbound(text string) InboundMessage {
	return InboundMessage{
		GroupID:   "group-1",
		AgencyID:  "agency-1",
		MessageID: "msg-" + uuid.NewString(),
		Sender:    "237699000001@c.us",
		Text:      text,
	}
}

func TestServiceCreatesOrderAndRecordsLink(t *testing.T) {
	svc, _, links := newTestService(t)
	ctx := context.Background()

	msg := inbound("612345678\n2 robes + 1 sac\n15k\nBonapriso")
	res, err := svc.HandleMessage(ctx, msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != "new_order" || res.Order == nil {
		t.Fatalf("result = %+v", res)
	}
	if res.Order.AmountDue != 15000 || res.Order.Status != orders.StatusPending {
		t.Fatalf("order = %+v", res.Order)
	}
	if links.byID[msg.MessageID] != res.Order.ID {
		t.Fatal("order creation must record the message link")
	}
}

func TestServiceReplyCollectsPartialPayment(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	create := inbound("612345678\n2 robes\n10000\nAkwa")
	created, err := svc.HandleMessage(ctx, create)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	update := inbound("Collecté 5000")
	update.QuotedMessageID = create.MessageID
	res, err := svc.HandleMessage(ctx, update)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.HistoryAction != "payment_collected" {
		t.Fatalf("action = %q", res.HistoryAction)
	}
	if res.Order.AmountPaid != 5000 || res.Order.Status != orders.StatusPending {
		t.Fatalf("order = %+v", res.Order)
	}
	if res.Order.ID != created.Order.ID {
		t.Fatal("reply must target the quoted order")
	}
}

func TestServicePhoneLookupSettlesOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.HandleMessage(ctx, inbound("612345678\n2 robes\n10000\nAkwa")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.HandleMessage(ctx, inbound("Collecté 4000 612345678")); err != nil {
		t.Fatalf("partial: %v", err)
	}

	res, err := svc.HandleMessage(ctx, inbound("Livré 612345678"))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Order.AmountPaid != 10000 {
		t.Fatalf("paid = %v, want 10000", res.Order.AmountPaid)
	}
	if res.Order.Status != orders.StatusDelivered {
		t.Fatalf("status = %s, want delivered", res.Order.Status)
	}
	if res.HistoryAction != "marked_delivered" {
		t.Fatalf("action = %q", res.HistoryAction)
	}
}

func TestServiceUnresolvedStatusIsDroppedNotFailed(t *testing.T) {
	svc, _, _ := newTestService(t)

	res, err := svc.HandleMessage(context.Background(), inbound("Échec"))
	if err != nil {
		t.Fatalf("one bad message must not fail the loop: %v", err)
	}
	if res.Decision != "status_update" || res.Dropped == "" {
		t.Fatalf("result = %+v", res)
	}
}

func TestServiceNoiseIsDropped(t *testing.T) {
	svc, repo, _ := newTestService(t)

	res, err := svc.HandleMessage(context.Background(), inbound("Bonjour tout le monde"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Decision != "noise" {
		t.Fatalf("decision = %q", res.Decision)
	}
	list, err := repo.ListRecent(context.Background(), orders.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatal("noise must not create orders")
	}
}

func TestServiceNumberChangeThenLookupOnNewNumber(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.HandleMessage(ctx, inbound("612345678\nsac\n5000\nDeido"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.HandleMessage(ctx, inbound("changer numéro 612345678 699999999")); err != nil {
		t.Fatalf("change: %v", err)
	}

	order, err := repo.GetByID(ctx, created.Order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if order.Phone != "699999999" {
		t.Fatalf("phone = %q, want the new number", order.Phone)
	}

	res, err := svc.HandleMessage(ctx, inbound("Livré 699999999"))
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if res.Order.ID != created.Order.ID || res.Order.Status != orders.StatusDelivered {
		t.Fatalf("order = %+v", res.Order)
	}
}

func TestServiceHistoryRecordsRawText(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.HandleMessage(ctx, inbound("612345678\nsac\n5000\nDeido"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.HandleMessage(ctx, inbound("Livré 612345678")); err != nil {
		t.Fatalf("settle: %v", err)
	}

	history, err := repo.History(ctx, created.Order.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d", len(history))
	}
	if history[0].Action != "marked_delivered" || history[0].Details != "Livré 612345678" {
		t.Fatalf("entry = %+v", history[0])
	}
}

func TestServiceReplyResolvesAlternateIDForms(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	create := inbound("612345678\nsac\n5000\nDeido")
	if _, err := svc.HandleMessage(ctx, create); err != nil {
		t.Fatalf("create: %v", err)
	}

	// The transport only recovered the remote form of the quoted ID.
	update := inbound("Collecté 2000")
	update.QuotedRemoteID = create.MessageID
	res, err := svc.HandleMessage(ctx, update)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.HistoryAction != "payment_collected" {
		t.Fatalf("action = %q", res.HistoryAction)
	}
}
