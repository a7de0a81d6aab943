package billing

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"

	"github.com/Owoblo/sold2move-sub003/internal/database"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:billing_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatal("Failed to open test DB:", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatal("Failed to migrate test DB:", err)
	}
	return db
}

func checkoutBody(eventID, userID, credits string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {"object": {
			"client_reference_id": %q,
			"metadata": {"credits": %q}
		}}
	}`, eventID, userID, credits))
}

func TestProcessWebhookGrantsCredits(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	event, err := svc.ProcessWebhook("stripe", checkoutBody("evt_1", "user-1", "100"))
	if err != nil {
		t.Fatal("ProcessWebhook failed:", err)
	}
	if event.CreditsGranted != 100 {
		t.Errorf("CreditsGranted = %d; want 100", event.CreditsGranted)
	}
	if event.ProcessedAt == nil {
		t.Error("ProcessedAt should be set on a granted event")
	}

	profile, err := db.GetProfile("user-1")
	if err != nil {
		t.Fatal("GetProfile failed:", err)
	}
	if profile == nil || profile.CreditsRemaining != 100 {
		t.Errorf("profile = %+v; want 100 credits", profile)
	}
}

func TestProcessWebhookRedeliveryIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	body := checkoutBody("evt_1", "user-1", "50")

	if _, err := svc.ProcessWebhook("stripe", body); err != nil {
		t.Fatal("First delivery failed:", err)
	}
	event, err := svc.ProcessWebhook("stripe", body)
	if err != nil {
		t.Fatal("Redelivery failed:", err)
	}
	if event.CreditsGranted != 50 {
		t.Errorf("redelivery should return the stored event, got %+v", event)
	}

	profile, err := db.GetProfile("user-1")
	if err != nil {
		t.Fatal("GetProfile failed:", err)
	}
	if profile.CreditsRemaining != 50 {
		t.Errorf("credits = %d; want 50, never a double grant", profile.CreditsRemaining)
	}

	var count int64
	db.Model(&database.BillingEvent{}).Count(&count)
	if count != 1 {
		t.Errorf("expected a single stored event, got %d", count)
	}
}

func TestProcessWebhookFallsBackToMetadataUser(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	body := []byte(`{
		"id": "evt_2",
		"type": "checkout.session.completed",
		"data": {"object": {
			"metadata": {"user_id": "user-9", "credits": "25"}
		}}
	}`)

	if _, err := svc.ProcessWebhook("stripe", body); err != nil {
		t.Fatal("ProcessWebhook failed:", err)
	}

	profile, err := db.GetProfile("user-9")
	if err != nil {
		t.Fatal("GetProfile failed:", err)
	}
	if profile == nil || profile.CreditsRemaining != 25 {
		t.Errorf("profile = %+v; want 25 credits via metadata user", profile)
	}
}

func TestProcessWebhookIgnoresOtherEventTypes(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	body := []byte(`{"id": "evt_3", "type": "invoice.paid", "data": {"object": {"metadata": {"user_id": "user-1", "credits": "10"}}}}`)

	event, err := svc.ProcessWebhook("stripe", body)
	if err != nil {
		t.Fatal("ProcessWebhook failed:", err)
	}
	if event.CreditsGranted != 0 || event.ProcessedAt != nil {
		t.Errorf("non-checkout event should be stored but not granted: %+v", event)
	}

	profile, err := db.GetProfile("user-1")
	if err != nil {
		t.Fatal("GetProfile failed:", err)
	}
	if profile != nil {
		t.Errorf("no profile should be created for ignored events, got %+v", profile)
	}
}

func TestProcessWebhookRejectsBadPayloads(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	_, err := svc.ProcessWebhook("stripe", []byte("{not json"))
	if !errors.Is(err, ErrBadPayload) {
		t.Errorf("malformed JSON: err = %v; want ErrBadPayload", err)
	}
	_, err = svc.ProcessWebhook("stripe", []byte(`{"type":"checkout.session.completed"}`))
	if !errors.Is(err, ErrBadPayload) {
		t.Errorf("missing event id: err = %v; want ErrBadPayload", err)
	}
}

func TestProcessWebhookRetriesAfterFailedGrant(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	body := checkoutBody("evt_5", "user-1", "50")

	// Break the grant step for the first delivery.
	if err := db.Migrator().DropTable(&database.Profile{}); err != nil {
		t.Fatal("Failed to drop profiles table:", err)
	}
	if _, err := svc.ProcessWebhook("stripe", body); err == nil {
		t.Fatal("expected an error when the grant cannot be applied")
	}

	// The failed attempt must roll back the event row, or every redelivery
	// would hit the duplicate path and the credits would be lost for good.
	var count int64
	db.Model(&database.BillingEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("failed processing left %d stored events; want 0", count)
	}

	if err := db.AutoMigrate(&database.Profile{}); err != nil {
		t.Fatal("Failed to restore profiles table:", err)
	}

	event, err := svc.ProcessWebhook("stripe", body)
	if err != nil {
		t.Fatal("Redelivery after failure should succeed:", err)
	}
	if event.CreditsGranted != 50 || event.ProcessedAt == nil {
		t.Errorf("redelivered event not processed: %+v", event)
	}

	profile, err := db.GetProfile("user-1")
	if err != nil {
		t.Fatal("GetProfile failed:", err)
	}
	if profile == nil || profile.CreditsRemaining != 50 {
		t.Errorf("profile = %+v; want 50 credits after redelivery", profile)
	}
}

func TestProcessWebhookSkipsGrantWithoutCredits(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	event, err := svc.ProcessWebhook("stripe", checkoutBody("evt_4", "user-1", "nope"))
	if err != nil {
		t.Fatal("ProcessWebhook failed:", err)
	}
	if event.CreditsGranted != 0 {
		t.Errorf("unparseable credits should skip the grant, got %+v", event)
	}
}
