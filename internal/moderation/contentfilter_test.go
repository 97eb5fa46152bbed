package moderation

import (
	"strings"
	"testing"
)

func TestFilterCategories(t *testing.T) {
	f := NewContentFilter(FilterConfig{})

	cases := []struct {
		name     string
		input    string
		category string
		mask     string
	}{
		{"phone local", "hubungi aku di 081234567890 ya", "phone", "📞[disensor]"},
		{"phone international", "telp +62 812 3456 7890", "phone", "📞[disensor]"},
		{"email", "kirim ke budi@gmail.com aja", "email", "📧[disensor]"},
		// The phone category runs first, so a wa.me link with an Indonesian
		// number is masked as a phone number before the whatsapp pattern
		// ever sees it.
		{"whatsapp link local number", "klik wa.me/6281234567890", "phone", "📞[disensor]"},
		{"whatsapp link foreign number", "chat via wa.me/15551234567", "whatsapp", "🔗[wa-disensor]"},
		{"telegram link", "chat di t.me/budikucing", "telegram", "🔗[tg-disensor]"},
		{"url", "cek https://tokosaya.example.com/kucing", "url", "🔗[link-disensor]"},
		{"instagram handle", "follow @budi.kucing dong", "instagram", "📱[ig-disensor]"},
		{"bank account", "transfer ke 1234567890123", "bank", "💳[no-rek-disensor]"},
		{"address", "rumahku di Jl. Melati Indah No. 12", "address", "📍[alamat-disensor]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := f.Filter(tc.input)
			if !result.Censored {
				t.Fatalf("Filter(%q) not censored", tc.input)
			}
			if !containsType(result.Types, tc.category) {
				t.Errorf("Filter(%q) types = %v, want %s", tc.input, result.Types, tc.category)
			}
			if !strings.Contains(result.Text, tc.mask) {
				t.Errorf("Filter(%q) text = %q, missing mask %s", tc.input, result.Text, tc.mask)
			}
		})
	}
}

func TestFilterCleanTextUnchanged(t *testing.T) {
	f := NewContentFilter(FilterConfig{})

	input := "kucingnya lucu banget, sudah vaksin belum?"
	result := f.Filter(input)
	if result.Censored {
		t.Fatalf("clean text censored: %v", result.Types)
	}
	if result.Text != input {
		t.Errorf("clean text mutated: %q", result.Text)
	}
	if len(result.Types) != 0 {
		t.Errorf("expected no types, got %v", result.Types)
	}
}

func TestFilterEmptyInput(t *testing.T) {
	f := NewContentFilter(FilterConfig{})

	result := f.Filter("")
	if result.Censored {
		t.Error("empty input flagged as censored")
	}
	if result.Text != "" {
		t.Errorf("empty input mutated: %q", result.Text)
	}
}

func TestFilterWhitelistedHandle(t *testing.T) {
	f := NewContentFilter(FilterConfig{})

	result := f.Filter("tanya aja ke @mangoyen soal rekber")
	if result.Censored {
		t.Fatalf("whitelisted handle censored: %q", result.Text)
	}
	if !strings.Contains(result.Text, "@mangoyen") {
		t.Errorf("whitelisted handle removed: %q", result.Text)
	}

	// Mixed case still whitelisted, other handles still masked.
	result = f.Filter("dm @MangOyen atau @budi_kucing")
	if !result.Censored {
		t.Fatal("non-whitelisted handle not censored")
	}
	if !strings.Contains(result.Text, "@MangOyen") {
		t.Errorf("case-insensitive whitelist failed: %q", result.Text)
	}
	if strings.Contains(result.Text, "@budi_kucing") {
		t.Errorf("other handle survived: %q", result.Text)
	}
}

func TestFilterCumulativeCategories(t *testing.T) {
	f := NewContentFilter(FilterConfig{})

	result := f.Filter("hp 081234567890 email budi@mail.com link https://x.example")
	if !result.Censored {
		t.Fatal("multi-category message not censored")
	}
	for _, want := range []string{"phone", "email", "url"} {
		if !containsType(result.Types, want) {
			t.Errorf("types = %v, missing %s", result.Types, want)
		}
	}
}

func TestCheckDoesNotMutate(t *testing.T) {
	f := NewContentFilter(FilterConfig{})

	input := "hubungi 081234567890"
	check := f.Check(input)
	if !check.Suspicious {
		t.Fatal("Check missed phone number")
	}
	if !containsType(check.Types, "phone") {
		t.Errorf("Check types = %v", check.Types)
	}
}

func TestWarningMessage(t *testing.T) {
	f := NewContentFilter(FilterConfig{})

	msg := f.WarningMessage([]string{"phone", "bank"})
	if !strings.Contains(msg, "nomor telepon") || !strings.Contains(msg, "nomor rekening") {
		t.Errorf("warning message = %q", msg)
	}
}

func containsType(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}
