package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testProfile(alias string) *Profile {
	return &Profile{
		Alias:     alias,
		Portal:    "prod",
		UserName:  "user@example.com",
		Token:     "token-" + alias,
		AccountID: "acct-" + alias,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles")

	store, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}
	if err := store.SetProfile(testProfile("prod")); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := LoadStore(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	profile, err := reloaded.Profile("prod")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.Token != "token-prod" || profile.AccountID != "acct-prod" {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if profile.Alias != "prod" {
		t.Errorf("alias = %q, want prod", profile.Alias)
	}
}

func TestFirstProfileBecomesDefault(t *testing.T) {
	store, err := LoadStore(filepath.Join(t.TempDir(), "profiles"))
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}
	if err := store.SetProfile(testProfile("first")); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}
	if err := store.SetProfile(testProfile("second")); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}

	if got := store.DefaultAlias(); got != "first" {
		t.Errorf("default alias = %q, want first", got)
	}

	// Empty alias resolves the default.
	profile, err := store.Profile("")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.Alias != "first" {
		t.Errorf("resolved alias = %q, want first", profile.Alias)
	}
}

func TestProfileNotFound(t *testing.T) {
	store, err := LoadStore(filepath.Join(t.TempDir(), "profiles"))
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}
	if _, err := store.Profile("missing"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
	if _, err := store.Profile(""); !errors.Is(err, ErrNoProfiles) {
		t.Errorf("expected ErrNoProfiles, got %v", err)
	}
}

func TestSetProfileValidation(t *testing.T) {
	store, err := LoadStore(filepath.Join(t.TempDir(), "profiles"))
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}

	missing := testProfile("bad")
	missing.Token = ""
	if err := store.SetProfile(missing); !errors.Is(err, ErrMissingToken) {
		t.Errorf("expected ErrMissingToken, got %v", err)
	}

	missing = testProfile("bad")
	missing.Portal = ""
	if err := store.SetProfile(missing); !errors.Is(err, ErrMissingPortal) {
		t.Errorf("expected ErrMissingPortal, got %v", err)
	}
}

func TestDeleteProfileClearsDefault(t *testing.T) {
	store, err := LoadStore(filepath.Join(t.TempDir(), "profiles"))
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}
	if err := store.SetProfile(testProfile("only")); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}
	if err := store.DeleteProfile("only"); err != nil {
		t.Fatalf("DeleteProfile failed: %v", err)
	}
	if got := store.DefaultAlias(); got != "" {
		t.Errorf("default alias = %q, want empty", got)
	}
	if len(store.Aliases()) != 0 {
		t.Errorf("aliases = %v, want empty", store.Aliases())
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profiles")
	store, err := LoadStore(path)
	if err != nil {
		t.Fatalf("LoadStore failed: %v", err)
	}
	if err := store.SetProfile(testProfile("prod")); err != nil {
		t.Fatalf("SetProfile failed: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		t.Errorf("profile store is group/world accessible: %v", perm)
	}
}
