package cli

import (
	"strings"
	"testing"

	"github.com/onscale/onscale-go/internal/config"
	"github.com/onscale/onscale-go/internal/models"
)

func resetFlags() {
	profileAlias = ""
	portalFlag = ""
	tokenFlag = ""
	accountFlag = ""
	quiet = false
	verbose = false
	workers = 4
}

func TestCommandTree(t *testing.T) {
	rootCmd := NewRootCmd()
	AddCommands(rootCmd)

	want := map[string][]string{
		"configure": {"list", "default", "delete"},
		"job":       {"create", "submit", "status", "stop", "tail", "estimate", "tag", "untag"},
		"file":      {"upload", "download", "list"},
		"account":   {"list", "balance", "hpc"},
	}

	for name, subs := range want {
		group, _, err := rootCmd.Find([]string{name})
		if err != nil || group.Name() != name {
			t.Fatalf("command %q not registered: %v", name, err)
		}
		for _, sub := range subs {
			found := false
			for _, c := range group.Commands() {
				if c.Name() == sub {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("command %q missing subcommand %q", name, sub)
			}
		}
	}
}

func TestLoadProfileFromFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	resetFlags()
	defer resetFlags()

	portalFlag = "test"
	tokenFlag = "tok-123"
	accountFlag = "acc-1"

	profile, err := loadProfile()
	if err != nil {
		t.Fatalf("loadProfile: %v", err)
	}
	if profile.Portal != "test" || profile.Token != "tok-123" || profile.AccountID != "acc-1" {
		t.Errorf("loadProfile = %+v", profile)
	}
}

func TestLoadProfileFromStore(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	resetFlags()
	defer resetFlags()

	store, err := config.LoadDefaultStore()
	if err != nil {
		t.Fatalf("LoadDefaultStore: %v", err)
	}
	saved := &config.Profile{
		Alias:     "work",
		Portal:    "prod",
		UserName:  "someone@example.com",
		Token:     "tok-456",
		AccountID: "acc-2",
	}
	if err := store.SetProfile(saved); err != nil {
		t.Fatalf("SetProfile: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	profile, err := loadProfile()
	if err != nil {
		t.Fatalf("loadProfile: %v", err)
	}
	if profile.Alias != "work" || profile.Token != "tok-456" {
		t.Errorf("loadProfile = %+v, want saved default profile", profile)
	}

	// Flags override the stored profile.
	accountFlag = "acc-override"
	profile, err = loadProfile()
	if err != nil {
		t.Fatalf("loadProfile with override: %v", err)
	}
	if profile.AccountID != "acc-override" {
		t.Errorf("AccountID = %q, want flag override", profile.AccountID)
	}
}

func TestLoadProfileMissingCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	resetFlags()
	defer resetFlags()

	if _, err := loadProfile(); err == nil {
		t.Fatal("loadProfile with no store and no flags should fail")
	}
}

func TestStatusColorContainsStatusText(t *testing.T) {
	for _, status := range []models.JobStatus{
		models.JobStatusCreated,
		models.JobStatusQueued,
		models.JobStatusRunning,
		models.JobStatusFinished,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	} {
		if got := statusColor(status); !strings.Contains(got, string(status)) {
			t.Errorf("statusColor(%s) = %q, status text lost", status, got)
		}
	}
}
