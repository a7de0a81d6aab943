package database

import (
	"context"
	"testing"
	"time"
)

func TestCreateOrUpdateProfile(t *testing.T) {
	db := openTestDB(t)

	created, err := db.CreateOrUpdateProfile("user-1", "lead@example.com")
	if err != nil {
		t.Fatal("Failed to create profile:", err)
	}
	if created.UserID != "user-1" || created.Email != "lead@example.com" {
		t.Errorf("unexpected profile: %+v", created)
	}
	if created.CreditsRemaining != 0 {
		t.Errorf("new profile should start with 0 credits, got %d", created.CreditsRemaining)
	}

	updated, err := db.CreateOrUpdateProfile("user-1", "new@example.com")
	if err != nil {
		t.Fatal("Failed to update profile:", err)
	}
	if updated.Email != "new@example.com" {
		t.Errorf("Email = %q; want updated address", updated.Email)
	}

	var count int64
	db.Model(&Profile{}).Count(&count)
	if count != 1 {
		t.Errorf("expected a single profile row, got %d", count)
	}
}

func TestCreateOrUpdateProfileKeepsEmailWhenBlank(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.CreateOrUpdateProfile("user-1", "keep@example.com"); err != nil {
		t.Fatal("Failed to create profile:", err)
	}
	got, err := db.CreateOrUpdateProfile("user-1", "")
	if err != nil {
		t.Fatal("Failed to update profile:", err)
	}
	if got.Email != "keep@example.com" {
		t.Errorf("blank email should not clear the stored one, got %q", got.Email)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	db := openTestDB(t)

	profile, err := db.GetProfile("nobody")
	if err != nil {
		t.Fatal("GetProfile failed:", err)
	}
	if profile != nil {
		t.Errorf("expected nil for unknown user, got %+v", profile)
	}
}

func TestAddCredits(t *testing.T) {
	db := openTestDB(t)

	if err := db.AddCredits("user-1", 50); err != nil {
		t.Fatal("AddCredits failed:", err)
	}
	if err := db.AddCredits("user-1", 25); err != nil {
		t.Fatal("AddCredits failed:", err)
	}

	profile, err := db.GetProfile("user-1")
	if err != nil {
		t.Fatal("GetProfile failed:", err)
	}
	if profile == nil || profile.CreditsRemaining != 75 {
		t.Errorf("CreditsRemaining = %+v; want 75", profile)
	}
}

func TestServiceCities(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.CreateOrUpdateProfile("user-1", ""); err != nil {
		t.Fatal("Failed to create profile:", err)
	}
	if err := db.SetServiceCities("user-1", []string{"Windsor", "Toronto"}); err != nil {
		t.Fatal("SetServiceCities failed:", err)
	}

	profile, err := db.GetProfile("user-1")
	if err != nil {
		t.Fatal("GetProfile failed:", err)
	}
	got := profile.CityList()
	if len(got) != 2 || got[0] != "Windsor" || got[1] != "Toronto" {
		t.Errorf("CityList() = %v; want [Windsor Toronto]", got)
	}

	var nilProfile *Profile
	if cities := nilProfile.CityList(); cities != nil {
		t.Errorf("nil profile CityList() = %v; want nil", cities)
	}
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	run, err := db.StartRun(ctx, "Windsor")
	if err != nil {
		t.Fatal("StartRun failed:", err)
	}
	if run.ID == 0 || run.Status != RunStatusRunning {
		t.Errorf("unexpected new run: %+v", run)
	}

	if err := db.FinishRun(ctx, run, RunStatusCompleted, 120, 115, 5); err != nil {
		t.Fatal("FinishRun failed:", err)
	}

	latest, err := db.LatestRun(ctx)
	if err != nil {
		t.Fatal("LatestRun failed:", err)
	}
	if latest == nil || latest.ID != run.ID {
		t.Fatalf("LatestRun = %+v; want run %d", latest, run.ID)
	}
	if latest.ListingsFound != 120 || latest.ListingsUpserted != 115 || latest.ListingsFailed != 5 {
		t.Errorf("counters not persisted: %+v", latest)
	}
	if latest.FinishedAt == nil {
		t.Error("FinishedAt should be set on a completed run")
	}
}

func TestLatestRunIgnoresFailedRuns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	completed := seedCompletedRun(t, db, "Windsor", time.Now().UTC().Add(-2*time.Hour))

	failed, err := db.StartRun(ctx, "Windsor")
	if err != nil {
		t.Fatal("StartRun failed:", err)
	}
	if err := db.FinishRun(ctx, failed, RunStatusFailed, 0, 0, 0); err != nil {
		t.Fatal("FinishRun failed:", err)
	}

	latest, err := db.LatestRun(ctx)
	if err != nil {
		t.Fatal("LatestRun failed:", err)
	}
	if latest == nil || latest.ID != completed.ID {
		t.Errorf("LatestRun = %+v; want completed run %d", latest, completed.ID)
	}
}

func TestAlertCRUD(t *testing.T) {
	db := openTestDB(t)

	alert, err := db.CreateAlert("user-1", "Windsor", 100000, 500000)
	if err != nil {
		t.Fatal("CreateAlert failed:", err)
	}
	if !alert.IsActive {
		t.Error("new alerts should start active")
	}

	if _, err := db.CreateAlert("user-2", "Toronto", 0, 0); err != nil {
		t.Fatal("CreateAlert failed:", err)
	}

	mine, err := db.GetUserAlerts("user-1")
	if err != nil {
		t.Fatal("GetUserAlerts failed:", err)
	}
	if len(mine) != 1 || mine[0].City != "Windsor" {
		t.Errorf("GetUserAlerts = %+v; want only the Windsor alert", mine)
	}

	t.Run("toggle flips active flag", func(t *testing.T) {
		if err := db.ToggleAlert(alert.ID, "user-1"); err != nil {
			t.Fatal("ToggleAlert failed:", err)
		}
		got, err := db.GetAlertByID(alert.ID, "user-1")
		if err != nil {
			t.Fatal("GetAlertByID failed:", err)
		}
		if got == nil || got.IsActive {
			t.Errorf("alert should be inactive after toggle: %+v", got)
		}
	})

	t.Run("scoped lookup rejects other users", func(t *testing.T) {
		got, err := db.GetAlertByID(alert.ID, "user-2")
		if err != nil {
			t.Fatal("GetAlertByID failed:", err)
		}
		if got != nil {
			t.Errorf("user-2 should not see user-1's alert: %+v", got)
		}
	})

	t.Run("delete is scoped to the owner", func(t *testing.T) {
		if err := db.DeleteAlert(alert.ID, "user-2"); err != nil {
			t.Fatal("DeleteAlert failed:", err)
		}
		if got, _ := db.GetAlertByID(alert.ID, "user-1"); got == nil {
			t.Fatal("alert deleted by a non-owner")
		}

		if err := db.DeleteAlert(alert.ID, "user-1"); err != nil {
			t.Fatal("DeleteAlert failed:", err)
		}
		if got, _ := db.GetAlertByID(alert.ID, "user-1"); got != nil {
			t.Errorf("alert should be gone: %+v", got)
		}
	})
}

func TestGetActiveAlertsPreloadsProfile(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.CreateOrUpdateProfile("user-1", "a@example.com"); err != nil {
		t.Fatal("Failed to create profile:", err)
	}
	if err := db.SetTelegramChat("user-1", 42); err != nil {
		t.Fatal("SetTelegramChat failed:", err)
	}
	if _, err := db.CreateAlert("user-1", "Windsor", 0, 0); err != nil {
		t.Fatal("CreateAlert failed:", err)
	}

	inactive, err := db.CreateAlert("user-1", "Toronto", 0, 0)
	if err != nil {
		t.Fatal("CreateAlert failed:", err)
	}
	if err := db.ToggleAlert(inactive.ID, "user-1"); err != nil {
		t.Fatal("ToggleAlert failed:", err)
	}

	active, err := db.GetActiveAlerts()
	if err != nil {
		t.Fatal("GetActiveAlerts failed:", err)
	}
	if len(active) != 1 || active[0].City != "Windsor" {
		t.Fatalf("GetActiveAlerts = %+v; want only the Windsor alert", active)
	}
	if active[0].Profile.TelegramChatID != 42 {
		t.Errorf("Profile not preloaded: %+v", active[0].Profile)
	}
}
