package moderation

import (
	"regexp"
	"strings"
)

// FilterResult is the outcome of censoring one message.
type FilterResult struct {
	Text     string   `json:"text"`
	Censored bool     `json:"censored"`
	Types    []string `json:"types"`
}

// CheckResult reports suspicious categories without modifying the text.
type CheckResult struct {
	Suspicious bool     `json:"suspicious"`
	Types      []string `json:"types"`
}

type FilterConfig struct {
	// Whitelist holds handles that are exempt from the social-handle
	// category (the platform's own @mangoyen account).
	Whitelist []string
}

type filterCategory struct {
	name    string
	pattern *regexp.Regexp
	mask    string
}

// ContentFilter censors contact-exchange attempts in chat. Categories are
// applied in a fixed order and accumulate: each category runs over the
// output of the previous one, so a message can be flagged under several
// categories at once.
type ContentFilter struct {
	whitelist  []string
	categories []filterCategory
}

const (
	categoryPhone     = "phone"
	categoryEmail     = "email"
	categoryWhatsApp  = "whatsapp"
	categoryTelegram  = "telegram"
	categoryURL       = "url"
	categoryInstagram = "instagram"
	categoryBank      = "bank"
	categoryAddress   = "address"
)

var (
	// Indonesian phone formats: +62, 62, 08xxx with optional separators.
	rePhone = regexp.MustCompile(`(\+62|62|0)(\s*[-.]?\s*)?\d{2,4}(\s*[-.]?\s*)?\d{2,4}(\s*[-.]?\s*)?\d{2,4}`)
	reEmail = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	reWA    = regexp.MustCompile(`(?i)wa\.me/\d+`)
	reTG    = regexp.MustCompile(`(?i)t\.me/\w+`)
	reURL   = regexp.MustCompile(`(?i)https?://[^\s]+`)
	reIG    = regexp.MustCompile(`(?i)@[a-zA-Z0-9_.]{3,30}`)
	// 10-16 digit runs, likely bank account numbers.
	reBank = regexp.MustCompile(`\b\d{10,16}\b`)
	// Indonesian street address markers followed by a house number.
	reAddress = regexp.MustCompile(`(?i)\b(jl\.|jln\.|jalan|gang|gg\.|blok|perumahan|perum|komplek|kav\.|kavling)\s+[a-zA-Z0-9\s.,]+\s*(no\.?|nomor)?\s*\d+[a-zA-Z]?`)
)

func NewContentFilter(cfg FilterConfig) *ContentFilter {
	whitelist := cfg.Whitelist
	if len(whitelist) == 0 {
		whitelist = []string{"@mangoyen"}
	}
	normalized := make([]string, len(whitelist))
	for i, w := range whitelist {
		normalized[i] = strings.ToLower(w)
	}

	return &ContentFilter{
		whitelist: normalized,
		// Order matters: phone before bank before address, because later
		// categories run over text already masked by earlier ones.
		categories: []filterCategory{
			{categoryPhone, rePhone, "📞[disensor]"},
			{categoryEmail, reEmail, "📧[disensor]"},
			{categoryWhatsApp, reWA, "🔗[wa-disensor]"},
			{categoryTelegram, reTG, "🔗[tg-disensor]"},
			{categoryURL, reURL, "🔗[link-disensor]"},
			{categoryInstagram, reIG, "📱[ig-disensor]"},
			{categoryBank, reBank, "💳[no-rek-disensor]"},
			{categoryAddress, reAddress, "📍[alamat-disensor]"},
		},
	}
}

// Filter censors the text and reports every category that fired.
// Empty input passes through unflagged.
func (f *ContentFilter) Filter(text string) FilterResult {
	if text == "" {
		return FilterResult{Text: text, Censored: false, Types: []string{}}
	}

	result := text
	types := []string{}
	for _, cat := range f.categories {
		replaced, hit := f.applyCategory(cat, result)
		if hit {
			result = replaced
			types = append(types, cat.name)
		}
	}

	return FilterResult{
		Text:     result,
		Censored: len(types) > 0,
		Types:    types,
	}
}

// Check reports suspicious categories without modifying the text. Unlike
// Filter, every category sees the original input.
func (f *ContentFilter) Check(text string) CheckResult {
	if text == "" {
		return CheckResult{Suspicious: false, Types: []string{}}
	}

	types := []string{}
	for _, cat := range f.categories {
		if cat.name == categoryInstagram {
			if f.hasHandleMatch(text) {
				types = append(types, cat.name)
			}
			continue
		}
		if cat.pattern.MatchString(text) {
			types = append(types, cat.name)
		}
	}

	return CheckResult{Suspicious: len(types) > 0, Types: types}
}

func (f *ContentFilter) applyCategory(cat filterCategory, text string) (string, bool) {
	if cat.name == categoryInstagram {
		return f.replaceHandles(cat, text)
	}
	if !cat.pattern.MatchString(text) {
		return text, false
	}
	return cat.pattern.ReplaceAllString(text, cat.mask), true
}

// replaceHandles masks social handles while exempting whitelisted ones.
// RE2 has no negative lookahead, so the whitelist check happens in the
// replacement callback instead of inside the pattern.
func (f *ContentFilter) replaceHandles(cat filterCategory, text string) (string, bool) {
	hit := false
	replaced := cat.pattern.ReplaceAllStringFunc(text, func(match string) string {
		if f.isWhitelisted(match) {
			return match
		}
		hit = true
		return cat.mask
	})
	return replaced, hit
}

func (f *ContentFilter) hasHandleMatch(text string) bool {
	for _, match := range reIG.FindAllString(text, -1) {
		if !f.isWhitelisted(match) {
			return true
		}
	}
	return false
}

func (f *ContentFilter) isWhitelisted(handle string) bool {
	lower := strings.ToLower(handle)
	for _, w := range f.whitelist {
		if lower == w {
			return true
		}
	}
	return false
}

var warningLabels = map[string]string{
	categoryPhone:     "nomor telepon",
	categoryEmail:     "email",
	categoryWhatsApp:  "link WhatsApp",
	categoryTelegram:  "link Telegram",
	categoryURL:       "link/URL",
	categoryInstagram: "username Instagram",
	categoryBank:      "nomor rekening",
	categoryAddress:   "alamat",
}

// WarningMessage builds the user-facing explanation for censored content.
func (f *ContentFilter) WarningMessage(types []string) string {
	detected := make([]string, 0, len(types))
	for _, t := range types {
		if label, ok := warningLabels[t]; ok {
			detected = append(detected, label)
		} else {
			detected = append(detected, t)
		}
	}
	return "Pesan berisi " + strings.Join(detected, ", ") + " yang disensor untuk keamanan transaksi."
}

// StrikeWarning is shown to the sender after a censored message.
func (f *ContentFilter) StrikeWarning() string {
	return "⚠️ PERINGATAN: Mengirim informasi terlarang (nomor telepon, email, rekening, alamat) dapat mengakibatkan STRIKE pada akun Anda. 3x strike = BAN PERMANEN!"
}
