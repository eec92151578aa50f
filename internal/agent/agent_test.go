package agent

import (
	"context"
	"errors"
	"testing"
)

func TestEffectiveVoiceSettingsDefaults(t *testing.T) {
	a := Agent{ID: "7", Name: "Support"}
	if got := a.EffectiveVoiceSettings(); got != DefaultVoiceSettings {
		t.Fatalf("EffectiveVoiceSettings() = %+v, want %+v", got, DefaultVoiceSettings)
	}
	a.VoiceSettings = &VoiceSettings{Stability: 0.2, SimilarityBoost: 0.9}
	if got := a.EffectiveVoiceSettings(); got.Stability != 0.2 || got.SimilarityBoost != 0.9 {
		t.Fatalf("EffectiveVoiceSettings() = %+v, want explicit settings", got)
	}
}

func TestValidateRejectsOutOfRangeSettings(t *testing.T) {
	a := Agent{ID: "7", Name: "Support", VoiceSettings: &VoiceSettings{Stability: 1.5}}
	if err := a.Validate(); err == nil {
		t.Fatalf("Validate() expected error for stability > 1")
	}
	if err := (Agent{Name: "x"}).Validate(); err == nil {
		t.Fatalf("Validate() expected error for empty id")
	}
}

func TestMemoryStoreGetPutList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Agent{ID: "b", Name: "B"})
	if err := s.Put(ctx, Agent{ID: "a", Name: "A", VoiceID: "v1"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.VoiceID != "v1" {
		t.Fatalf("VoiceID = %q, want %q", got.VoiceID, "v1")
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	all, _ := s.List(ctx)
	if len(all) != 2 || all[0].ID != "a" || all[1].ID != "b" {
		t.Fatalf("List() = %+v, want [a b]", all)
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
[[agent]]
id = "7"
user_id = "u1"
name = "Support"
system_prompt = "Be brief."
voice_id = "v1"
is_active = true

[agent.voice_settings]
stability = 0.5
similarity_boost = 0.8

[[agent]]
id = "8"
name = "Silent"
`)
	c, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	if len(c.Agents) != 2 {
		t.Fatalf("len(Agents) = %d, want 2", len(c.Agents))
	}
	first := c.Agents[0]
	if first.SystemPrompt == nil || *first.SystemPrompt != "Be brief." {
		t.Fatalf("SystemPrompt = %v, want %q", first.SystemPrompt, "Be brief.")
	}
	if first.VoiceSettings == nil || first.VoiceSettings.SimilarityBoost != 0.8 {
		t.Fatalf("VoiceSettings = %+v, want similarity 0.8", first.VoiceSettings)
	}
	if c.Agents[1].VoiceID != "" || c.Agents[1].VoiceSettings != nil {
		t.Fatalf("second agent should have no voice config: %+v", c.Agents[1])
	}

	store := NewMemoryStore()
	n, err := Import(context.Background(), store, c)
	if err != nil || n != 2 {
		t.Fatalf("Import() = %d, %v; want 2, nil", n, err)
	}
}

func TestParseCatalogRejectsDuplicates(t *testing.T) {
	_, err := ParseCatalog([]byte("[[agent]]\nid = \"1\"\nname = \"a\"\n[[agent]]\nid = \"1\"\nname = \"b\"\n"))
	if err == nil {
		t.Fatalf("ParseCatalog() expected duplicate id error")
	}
}
