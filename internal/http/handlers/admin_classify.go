package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mbella-dev/colisflow/internal/intake"
	"github.com/mbella-dev/colisflow/internal/orders"
	"github.com/mbella-dev/colisflow/pkg/logging"
)

// dryRunOrder stands in for the quoted order when a dry run simulates a
// reply. It never reaches storage.
var dryRunOrder = orders.Order{Status: orders.StatusPending}

// AdminClassifyHandler runs the classification engine on arbitrary text
// without persisting anything, so operators can debug why a message was
// read the way it was.
type AdminClassifyHandler struct {
	service *intake.Service
	logger  *logging.Logger
}

// NewAdminClassifyHandler creates a new dry-run classification handler.
func NewAdminClassifyHandler(service *intake.Service, logger *logging.Logger) *AdminClassifyHandler {
	if service == nil {
		panic("handlers: intake service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminClassifyHandler{service: service, logger: logger}
}

// ClassifyRequest is the dry-run input. IsReply simulates the message
// quoting a known order; the real pipeline resolves that from message
// link storage instead.
type ClassifyRequest struct {
	Text    string `json:"text"`
	IsReply bool   `json:"is_reply"`
}

// ClassifyResponse mirrors the engine's decision in a stable wire shape.
type ClassifyResponse struct {
	Decision    string            `json:"decision"`
	Order       *ParsedOrderView  `json:"order,omitempty"`
	Intent      *StatusIntentView `json:"intent,omitempty"`
	NoiseReason string            `json:"noise_reason,omitempty"`
}

// ParsedOrderView is the JSON view of an extracted order.
type ParsedOrderView struct {
	Phone        string  `json:"phone,omitempty"`
	CustomerName string  `json:"customer_name,omitempty"`
	Items        string  `json:"items,omitempty"`
	AmountDue    float64 `json:"amount_due"`
	Quartier     string  `json:"quartier,omitempty"`
	Carrier      string  `json:"carrier,omitempty"`
}

// StatusIntentView is the JSON view of a parsed status intent.
type StatusIntentView struct {
	Kind      string  `json:"kind"`
	Phone     string  `json:"phone,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	HasAmount bool    `json:"has_amount"`
	Items     string  `json:"items,omitempty"`
	OldPhone  string  `json:"old_phone,omitempty"`
	NewPhone  string  `json:"new_phone,omitempty"`
}

// Classify handles POST /admin/classify.
func (h *AdminClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply := intake.ReplyContext{}
	if req.IsReply {
		// A synthetic quoted order is enough to exercise the reply
		// branch; the dry run never resolves or touches real orders.
		reply = intake.ReplyContext{HasQuotedOrder: true, QuotedOrder: &dryRunOrder}
	}
	decision := h.service.Classify(req.Text, reply)

	resp := ClassifyResponse{Decision: decision.Kind.String()}
	switch decision.Kind {
	case intake.DecisionNewOrder:
		resp.Order = &ParsedOrderView{
			Phone:        decision.Order.Phone,
			CustomerName: decision.Order.CustomerName,
			Items:        decision.Order.Items,
			AmountDue:    decision.Order.AmountDue,
			Quartier:     decision.Order.Quartier,
			Carrier:      decision.Order.Carrier,
		}
	case intake.DecisionStatusUpdate:
		resp.Intent = &StatusIntentView{
			Kind:      decision.Intent.Kind.String(),
			Phone:     decision.Intent.Phone,
			Amount:    decision.Intent.Amount,
			HasAmount: decision.Intent.HasAmount,
			Items:     decision.Intent.Items,
			OldPhone:  decision.Intent.OldPhone,
			NewPhone:  decision.Intent.NewPhone,
		}
	default:
		resp.NoiseReason = decision.NoiseReason
	}
	respondJSON(w, http.StatusOK, resp)
}
