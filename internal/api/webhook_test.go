package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/driver/sqlite"

	"github.com/Owoblo/sold2move-sub003/internal/config"
	"github.com/Owoblo/sold2move-sub003/internal/database"
)

func newTestServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatal("Failed to open test DB:", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal("Failed to migrate test DB:", err)
	}

	return NewServer(&config.Config{}, db, nil, nil), db
}

func postWebhook(router http.Handler, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing/stripe", bytes.NewReader(body))
	router.ServeHTTP(w, req)
	return w
}

func TestBillingWebhookStatusCodes(t *testing.T) {
	server, db := newTestServer(t)
	router := server.Router()

	checkout := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"client_reference_id": "user-1",
			"metadata": {"credits": "50"}
		}}
	}`)

	t.Run("bad payload is permanent", func(t *testing.T) {
		w := postWebhook(router, []byte("{not json"))
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d; want 400 so the provider stops retrying", w.Code)
		}
	})

	t.Run("processing failure is retryable", func(t *testing.T) {
		if err := db.Migrator().DropTable(&database.Profile{}); err != nil {
			t.Fatal("Failed to drop profiles table:", err)
		}
		w := postWebhook(router, checkout)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want 500 so the provider redelivers", w.Code)
		}
		if err := db.AutoMigrate(&database.Profile{}); err != nil {
			t.Fatal("Failed to restore profiles table:", err)
		}
	})

	t.Run("redelivery after failure grants", func(t *testing.T) {
		w := postWebhook(router, checkout)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d; want 200, body: %s", w.Code, w.Body.String())
		}

		profile, err := db.GetProfile("user-1")
		if err != nil {
			t.Fatal("GetProfile failed:", err)
		}
		if profile == nil || profile.CreditsRemaining != 50 {
			t.Errorf("profile = %+v; want 50 credits", profile)
		}
	})
}
