package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mbella-dev/colisflow/internal/intake"
	"github.com/mbella-dev/colisflow/internal/orders"
	"github.com/mbella-dev/colisflow/pkg/logging"
)

func classifyHandler(t *testing.T) *AdminClassifyHandler {
	t.Helper()
	svc := intake.NewService(
		intake.NewClassifier(intake.DefaultGazetteer()),
		orders.NewInMemoryRepository(),
		nil,
		nil,
		logging.New("error"),
	)
	return NewAdminClassifyHandler(svc, logging.New("error"))
}

func postClassify(t *testing.T, h *AdminClassifyHandler, body string) (*httptest.ResponseRecorder, ClassifyResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/classify", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Classify(rec, req)
	var resp ClassifyResponse
	if rec.Code == http.StatusOK {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestAdminClassifyNewOrder(t *testing.T) {
	h := classifyHandler(t)
	body := `{"text":"2 montres dorées\n699112233\n15000\nAkwa"}`

	rec, resp := postClassify(t, h, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp.Decision != "new_order" {
		t.Fatalf("expected new_order decision, got %s", resp.Decision)
	}
	if resp.Order == nil || resp.Order.Phone != "699112233" || resp.Order.AmountDue != 15000 {
		t.Fatalf("unexpected order view: %+v", resp.Order)
	}
}

func TestAdminClassifyStatusIntent(t *testing.T) {
	h := classifyHandler(t)

	rec, resp := postClassify(t, h, `{"text":"Collecté 5000 du 699112233"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp.Decision != "status_update" {
		t.Fatalf("expected status_update decision, got %s", resp.Decision)
	}
	if resp.Intent == nil || resp.Intent.Kind != "payment" || resp.Intent.Amount != 5000 {
		t.Fatalf("unexpected intent view: %+v", resp.Intent)
	}
}

func TestAdminClassifyReplySimulation(t *testing.T) {
	h := classifyHandler(t)

	// Text with no keyword and no order shape would normally be noise;
	// marking it a reply forces the status-update path.
	rec, resp := postClassify(t, h, `{"text":"d'accord merci","is_reply":true}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp.Decision != "status_update" {
		t.Fatalf("expected status_update decision for reply, got %s", resp.Decision)
	}
	if resp.Intent == nil || resp.Intent.Kind != "none" {
		t.Fatalf("expected none intent kind, got %+v", resp.Intent)
	}
}

func TestAdminClassifyNoise(t *testing.T) {
	h := classifyHandler(t)

	rec, resp := postClassify(t, h, `{"text":"bonjour tout le monde"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp.Decision != "noise" {
		t.Fatalf("expected noise decision, got %s", resp.Decision)
	}
	if resp.NoiseReason == "" {
		t.Fatalf("expected a noise reason")
	}
}

func TestAdminClassifyRejectsBadInput(t *testing.T) {
	h := classifyHandler(t)

	for _, body := range []string{`{`, `{"text":"   "}`, `{"text":""}`} {
		rec, _ := postClassify(t, h, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected status %d, got %d", body, http.StatusBadRequest, rec.Code)
		}
	}
}
