package domain

import "testing"

func TestAppProviders(t *testing.T) {
	providers := AppProviders()
	if len(providers) != 6 {
		t.Fatalf("expected 6 providers, got %d", len(providers))
	}

	seen := make(map[ProviderType]bool)
	for _, p := range providers {
		if seen[p] {
			t.Errorf("duplicate provider %s", p)
		}
		seen[p] = true
	}
}

func TestProviderTypeIsGoogle(t *testing.T) {
	if !ProviderTypeGoogleDrive.IsGoogle() || !ProviderTypeGmail.IsGoogle() {
		t.Error("drive and gmail are google providers")
	}
	if ProviderTypeSlack.IsGoogle() {
		t.Error("slack is not a google provider")
	}
}
