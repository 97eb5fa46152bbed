package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseVerdictDirectJSON(t *testing.T) {
	text := `{"flagged": true, "reason": "nomor HP terdeteksi", "type": "phone", "confidence": 0.95, "rule_violated": "RULE-01", "detected_pattern": "0812..."}`

	v := ParseVerdict(text)
	if !v.Flagged {
		t.Fatal("flagged = false")
	}
	if v.Type != "phone" || v.RuleViolated != "RULE-01" {
		t.Errorf("type=%q rule=%q", v.Type, v.RuleViolated)
	}
	if v.Confidence != 0.95 {
		t.Errorf("confidence = %v", v.Confidence)
	}
}

func TestParseVerdictFencedBlock(t *testing.T) {
	text := "Berikut hasilnya:\n```json\n{\"flagged\": true, \"type\": \"email\", \"confidence\": 0.8}\n```\nSemoga membantu!"

	v := ParseVerdict(text)
	if !v.Flagged || v.Type != "email" {
		t.Errorf("verdict = %+v", v)
	}
}

func TestParseVerdictEmbeddedObject(t *testing.T) {
	text := `Model output: the verdict is {"flagged": false, "confidence": 0.2} based on analysis.`

	v := ParseVerdict(text)
	if v.Flagged {
		t.Error("flagged = true")
	}
	if v.Confidence != 0.2 {
		t.Errorf("confidence = %v", v.Confidence)
	}
}

func TestParseVerdictSubstringFallback(t *testing.T) {
	// Broken JSON but the flagged marker and a rule id are present.
	text := `{"flagged": true, "rule_violated": "RULE-03", "reason": "unterminated`

	v := ParseVerdict(text)
	if !v.Flagged {
		t.Fatal("substring fallback missed flagged:true")
	}
	if v.RuleViolated != "RULE-03" {
		t.Errorf("rule = %q", v.RuleViolated)
	}
	if v.Confidence != 0.9 {
		t.Errorf("fallback confidence = %v", v.Confidence)
	}
}

func TestParseVerdictGarbage(t *testing.T) {
	v := ParseVerdict("meow meow I cannot help with that")
	if v.Flagged {
		t.Error("garbage parsed as flagged")
	}
}

func TestParseVerdictStringConfidence(t *testing.T) {
	v := ParseVerdict(`{"flagged": true, "confidence": "0.7"}`)
	if v.Confidence != 0.7 {
		t.Errorf("string confidence = %v", v.Confidence)
	}
}

func openRouterReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestModerateWithProvider(t *testing.T) {
	srv := httptest.NewServer(openRouterReply(t, `{"flagged": true, "type": "phone", "confidence": 0.9, "rule_violated": "RULE-01"}`))
	defer srv.Close()

	m := NewAIModerator(Config{OpenRouterKey: "test-key", OpenRouterURL: srv.URL})

	v := m.Moderate(context.Background(), "hubungi kosong delapan satu dua", "10.0.0.1")
	if !v.Flagged {
		t.Fatal("provider verdict not flagged")
	}
	if !v.AIChecked {
		t.Error("AIChecked = false")
	}
	if v.Provider != "openrouter/deepseek" {
		t.Errorf("provider = %q", v.Provider)
	}
}

func TestModerateUnconfiguredFailsOpen(t *testing.T) {
	m := NewAIModerator(Config{})
	if m.IsConfigured() {
		t.Fatal("moderator claims configured with no keys")
	}

	v := m.Moderate(context.Background(), "hubungi aku di nomor rahasia", "10.0.0.1")
	if v.Flagged {
		t.Error("unconfigured moderator flagged a message")
	}
}

func TestModerateProviderErrorFailsOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewAIModerator(Config{OpenRouterKey: "test-key", OpenRouterURL: srv.URL})

	v := m.Moderate(context.Background(), "pesan apapun isinya", "10.0.0.1")
	if v.Flagged {
		t.Error("provider failure did not fail open")
	}
}

func TestModerateFallsBackToGemini(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer primary.Close()

	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{
					"parts": []map[string]string{
						{"text": `{"flagged": true, "type": "social", "confidence": 0.8}`},
					},
				}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer secondary.Close()

	m := NewAIModerator(Config{
		OpenRouterKey: "test-key",
		GeminiKey:     "gemini-key",
		OpenRouterURL: primary.URL,
		GeminiURL:     secondary.URL,
	})

	v := m.Moderate(context.Background(), "follow ig aku dong", "10.0.0.1")
	if !v.Flagged {
		t.Fatal("gemini fallback verdict lost")
	}
	if v.Provider != "gemini" {
		t.Errorf("provider = %q", v.Provider)
	}
}

func TestModerateRateLimitShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		openRouterReply(t, `{"flagged": true, "confidence": 0.9}`)(w, r)
	}))
	defer srv.Close()

	m := NewAIModerator(Config{OpenRouterKey: "test-key", OpenRouterURL: srv.URL, RateLimit: 2})

	for i := 0; i < 2; i++ {
		if v := m.Moderate(context.Background(), "pesan mencurigakan banget", "10.0.0.1"); !v.Flagged {
			t.Fatalf("call %d not flagged", i)
		}
	}
	v := m.Moderate(context.Background(), "pesan mencurigakan banget", "10.0.0.1")
	if v.Flagged {
		t.Error("over-limit call did not fail open")
	}
	if calls != 2 {
		t.Errorf("provider called %d times, want 2", calls)
	}

	// A different source address has its own budget.
	if v := m.Moderate(context.Background(), "pesan mencurigakan banget", "10.0.0.2"); !v.Flagged {
		t.Error("separate address throttled")
	}
}

func TestModerateShortMessageSkipped(t *testing.T) {
	srv := httptest.NewServer(openRouterReply(t, `{"flagged": true, "confidence": 0.9}`))
	defer srv.Close()

	m := NewAIModerator(Config{OpenRouterKey: "test-key", OpenRouterURL: srv.URL})
	if v := m.Moderate(context.Background(), "ok", "10.0.0.1"); v.Flagged {
		t.Error("sub-minimum message was moderated")
	}
}

func TestGenerateMangoyenResponseFallback(t *testing.T) {
	m := NewAIModerator(Config{})
	got := m.GenerateMangoyenResponse(context.Background(), "hubungi 0812", "phone", "nomor HP", "RULE-01")
	if got != mangoyenFallback {
		t.Errorf("fallback = %q", got)
	}
}

func TestAskFallback(t *testing.T) {
	m := NewAIModerator(Config{})
	if got := m.Ask(context.Background(), "cara pakai rekber gimana?"); got != helperFallback {
		t.Errorf("fallback = %q", got)
	}
}

func TestMentionHelpers(t *testing.T) {
	if !HasMention("@mangoyen cara bayar gimana?") {
		t.Error("mention not detected")
	}
	if !HasMention("halo @MangOyen") {
		t.Error("case-insensitive mention not detected")
	}
	if HasMention("@mangoyenku halo") {
		t.Error("prefix false positive")
	}
	if got := ExtractQuestion("@mangoyen cara bayar gimana?"); got != "cara bayar gimana?" {
		t.Errorf("question = %q", got)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	current := time.Now()
	rl.now = func() time.Time { return current }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("allowed calls rejected")
	}
	if rl.Allow("a") {
		t.Fatal("limit not enforced")
	}

	current = current.Add(61 * time.Second)
	if !rl.Allow("a") {
		t.Error("window did not reset")
	}
}

func TestSystemPromptCoversAllRules(t *testing.T) {
	for _, rule := range []string{"RULE-01", "RULE-02", "RULE-03", "RULE-04", "RULE-05", "RULE-06", "RULE-07"} {
		if !strings.Contains(systemPrompt, rule) {
			t.Errorf("system prompt missing %s", rule)
		}
	}
}
