package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"
)

// Verdict is the structured moderation outcome for one message.
type Verdict struct {
	Flagged         bool    `json:"flagged"`
	Reason          string  `json:"reason"`
	Type            string  `json:"type"`
	Confidence      float64 `json:"confidence"`
	RuleViolated    string  `json:"rule_violated"`
	DetectedPattern string  `json:"detected_pattern"`
	AIChecked       bool    `json:"-"`
	Provider        string  `json:"-"`
}

// Config holds everything the moderator needs at construction time.
// Nothing is read from the environment at call time.
type Config struct {
	OpenRouterKey string
	GeminiKey     string
	OpenRouterURL string
	GeminiURL     string
	Model         string
	AppURL        string

	Timeout             time.Duration
	ConfidenceThreshold float64
	RateLimit           int
	RateWindow          time.Duration

	// OnUnavailable is the named failure policy. Only PolicyAllow is
	// implemented: when no provider answers, the message goes through.
	OnUnavailable Policy
}

// Policy names what happens to a message when moderation cannot run.
type Policy string

// PolicyAllow lets the message through on provider outage, rate limiting or
// unparsable output. Blocking the marketplace on a third-party failure is
// worse than letting an occasional contact attempt slip.
const PolicyAllow Policy = "allow"

const (
	defaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultGeminiURL     = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.0-flash:generateContent"
	defaultModel         = "deepseek/deepseek-chat"
)

// systemPrompt carries the 7-rule taxonomy the classifier must enforce and
// the JSON response contract it must answer with.
const systemPrompt = `PERAN: Kamu adalah MangOyen AI, moderator platform adopsi kucing.

=== ATURAN YANG TIDAK BOLEH DILANGGAR ===
[RULE-01] NOMOR TELEPON: Dilarang berbagi nomor HP dalam bentuk APAPUN
  - Format biasa: 08123456789, +6281234567890
  - Disamarkan dengan teks: "kosong delapan", "nol delapan"
  - Disamarkan dengan titik/spasi: 0.8.1.2.3, 0 8 1 2 3
  - Pecah menjadi bagian: "awalan 081, lanjut 234, sisanya 5678"
[RULE-02] EMAIL: Dilarang berbagi email, termasuk "user at gmail dot com"
[RULE-03] SOSIAL MEDIA: Dilarang berbagi username IG/WA/Telegram/FB/TikTok
[RULE-04] AJAKAN KELUAR PLATFORM: "DM aku", "japri", "lanjut di WA", "chat langsung aja"
[RULE-05] ALAMAT LENGKAP: Dilarang berbagi alamat dengan nomor rumah dan RT/RW
[RULE-06] REKENING & TRANSFER: Dilarang berbagi nomor rekening, nama bank,
  ajakan transfer langsung ("tf ke", "kirim ke rekening"), atau e-wallet
[RULE-07] LINK EKSTERNAL: Dilarang berbagi URL apapun di luar platform

=== TOPIK YANG DIPERBOLEHKAN ===
Kondisi kesehatan kucing, makanan, vaksin, steril, jadwal serah terima tanpa
alamat detail, negosiasi adoption fee, salam dan basa-basi sopan.

=== EDUKASI ===
Transaksi wajib lewat Rekber (escrow) MangOyen: dana ditahan platform sampai
serah terima sukses, uang kembali jika ada masalah, mediasi gratis.
Kontak pribadi baru boleh ditukar SETELAH pembayaran selesai.

=== FORMAT RESPONSE ===
Balas HANYA dengan JSON (tanpa markdown, tanpa penjelasan):
{
  "flagged": true/false,
  "rule_violated": "RULE-XX" atau null,
  "reason": "penjelasan singkat pelanggaran",
  "type": "phone/email/social/indirect/address/bank/url",
  "confidence": 0.0-1.0,
  "detected_pattern": "pola yang terdeteksi" atau null
}

PENTING: Jika ada KERAGUAN atau pola mencurigakan, lebih baik FLAG daripada loloskan!`

// AIModerator classifies chat messages through an external language-model
// provider. Every failure path returns a non-flagged verdict: a provider
// outage must never block message delivery (fail open).
type AIModerator struct {
	cfg     Config
	client  *http.Client
	limiter *RateLimiter
}

func NewAIModerator(cfg Config) *AIModerator {
	if cfg.OpenRouterURL == "" {
		cfg.OpenRouterURL = defaultOpenRouterURL
	}
	if cfg.GeminiURL == "" {
		cfg.GeminiURL = defaultGeminiURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.5
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 20
	}
	if cfg.RateWindow == 0 {
		cfg.RateWindow = 60 * time.Second
	}
	if cfg.OnUnavailable == "" {
		cfg.OnUnavailable = PolicyAllow
	}

	return &AIModerator{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
}

// NewAIModeratorFromEnv builds a moderator from environment variables.
func NewAIModeratorFromEnv() *AIModerator {
	return NewAIModerator(Config{
		OpenRouterKey: os.Getenv("OPENROUTER_API_KEY"),
		GeminiKey:     os.Getenv("GEMINI_API_KEY"),
		AppURL:        os.Getenv("APP_URL"),
	})
}

// IsConfigured reports whether at least one provider key is present.
func (m *AIModerator) IsConfigured() bool {
	return m.cfg.OpenRouterKey != "" || m.cfg.GeminiKey != ""
}

// ConfidenceThreshold is the caller-side actionability cutoff. The provider
// returns its own boolean; confidence is advisory and thresholded here.
func (m *AIModerator) ConfidenceThreshold() float64 {
	return m.cfg.ConfidenceThreshold
}

// Moderate classifies one message. sourceIP scopes the provider rate limit.
func (m *AIModerator) Moderate(ctx context.Context, message, sourceIP string) Verdict {
	var def Verdict

	if len(message) < 3 {
		return def
	}

	if !m.limiter.Allow(sourceIP) {
		log.Printf("⚠️  AI moderation rate limit exceeded for %s", sourceIP)
		return def
	}

	if m.cfg.OpenRouterKey != "" {
		if verdict, ok := m.moderateWithOpenRouter(ctx, message); ok {
			return verdict
		}
	}
	if m.cfg.GeminiKey != "" {
		if verdict, ok := m.moderateWithGemini(ctx, message); ok {
			return verdict
		}
	}

	return def
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type geminiRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (m *AIModerator) moderateWithOpenRouter(ctx context.Context, message string) (Verdict, bool) {
	body := chatRequest{
		Model: m.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Pesan: %q", message)},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	}

	text, err := m.completeOpenRouter(ctx, body)
	if err != nil {
		log.Printf("❌ OpenRouter moderation failed: %v", err)
		return Verdict{}, false
	}

	verdict := ParseVerdict(text)
	verdict.AIChecked = true
	verdict.Provider = "openrouter/deepseek"
	return verdict, true
}

func (m *AIModerator) moderateWithGemini(ctx context.Context, message string) (Verdict, bool) {
	var body geminiRequest
	body.Contents = append(body.Contents, struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}{Parts: []struct {
		Text string `json:"text"`
	}{{Text: systemPrompt + fmt.Sprintf("\n\nPesan: %q", message)}}})
	body.GenerationConfig.Temperature = 0.1
	body.GenerationConfig.MaxOutputTokens = 200

	payload, err := json.Marshal(body)
	if err != nil {
		return Verdict{}, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.GeminiURL+"?key="+m.cfg.GeminiKey, bytes.NewReader(payload))
	if err != nil {
		return Verdict{}, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		log.Printf("❌ Gemini moderation failed: %v", err)
		return Verdict{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("❌ Gemini moderation error: status %d", resp.StatusCode)
		return Verdict{}, false
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Verdict{}, false
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return Verdict{}, false
	}

	verdict := ParseVerdict(decoded.Candidates[0].Content.Parts[0].Text)
	verdict.AIChecked = true
	verdict.Provider = "gemini"
	return verdict, true
}

// completeOpenRouter sends one chat-completion request and returns the raw
// assistant text.
func (m *AIModerator) completeOpenRouter(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.OpenRouterURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.cfg.OpenRouterKey)
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.AppURL != "" {
		req.Header.Set("HTTP-Referer", m.cfg.AppURL)
	}
	req.Header.Set("X-Title", "MangOyen Pet Adoption")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("openrouter status %d: %s", resp.StatusCode, raw)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return decoded.Choices[0].Message.Content, nil
}

var (
	reFencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	reBraceObject = regexp.MustCompile(`(?s)\{(?:[^{}]|\{[^{}]*\})*\}`)
	reFlaggedTrue = regexp.MustCompile(`(?i)"flagged"\s*:\s*true`)
	reRuleID      = regexp.MustCompile(`(?i)RULE-0[1-7]`)
)

// ParseVerdict extracts a Verdict from free-form provider output. Providers
// wrap JSON in markdown fences, prose, or return malformed objects; the
// tiers degrade gracefully and this function never fails. Worst case it
// returns a non-flagged verdict.
func ParseVerdict(text string) Verdict {
	text = strings.TrimSpace(text)

	if m := reFencedBlock.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if m := reBraceObject.FindString(text); m != "" {
		text = m
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err == nil {
		return Verdict{
			Flagged:         asBool(raw["flagged"]),
			Reason:          asString(raw["reason"]),
			Type:            asString(raw["type"]),
			Confidence:      asFloat(raw["confidence"]),
			RuleViolated:    asString(raw["rule_violated"]),
			DetectedPattern: asString(raw["detected_pattern"]),
		}
	}

	// Last resort: the model said flagged somewhere in broken output.
	if reFlaggedTrue.MatchString(text) {
		return Verdict{
			Flagged:      true,
			Reason:       "Konten mencurigakan terdeteksi",
			Type:         "indirect",
			Confidence:   0.9,
			RuleViolated: strings.ToUpper(reRuleID.FindString(text)),
		}
	}

	return Verdict{}
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		var f float64
		fmt.Sscanf(n, "%f", &f)
		return f
	default:
		return 0
	}
}

const mangoyenFallback = "🐱 Meow Onti/Ongkel! Pesan kamu mengandung info yang belum boleh dibagi. Tukar kontak HANYA setelah transaksi selesai ya! Pakai Rekber biar aman 😾"

var ruleExplanations = map[string]string{
	"RULE-01": "nyebarin nomor HP",
	"RULE-02": "share email",
	"RULE-03": "kasih username sosmed",
	"RULE-04": "ngajak chat di luar platform",
	"RULE-05": "share alamat lengkap",
	"RULE-06": "share rekening/minta transfer",
	"RULE-07": "share link luar",
}

var (
	reMetaComment = regexp.MustCompile(`(?i)\*?\s*\(.*?(singkat|kalimat|emoji|warning|sesuai|permintaan).*?\)\s*\*?\s*😊?`)
	reBoldMarker  = regexp.MustCompile(`\*\*.*?\*\*`)
)

// GenerateMangoyenResponse produces the bot's short warning for a censored
// message. It never returns an error: any failure yields a fixed fallback.
func (m *AIModerator) GenerateMangoyenResponse(ctx context.Context, originalMessage, violationType, reason, ruleViolated string) string {
	if m.cfg.OpenRouterKey == "" {
		return mangoyenFallback
	}

	explanation, ok := ruleExplanations[ruleViolated]
	if !ok {
		explanation = "share info kontak"
	}

	prompt := fmt.Sprintf(`Kamu MangOyen, kucing oranye yang jadi admin platform adopsi anabul (anak bulu).

KEPRIBADIAN:
- Friendly, tegas tapi nggak galak
- Pakai bahasa gaul kekinian Indonesia
- Sapaan: 'Meow!', 'Hai Onti!', 'Hai Ongkel!' (onti = auntie, ongkel = uncle)

ISTILAH:
- Anabul = Anak Bulu (kucing), Babu = Adopter, Majikan Lama = Shelter
- Rekber = Escrow (rekening bersama)

TUGAS: Buat pesan peringatan SINGKAT (max 3 kalimat) untuk user yang melanggar aturan.

KONTEKS:
- Pelanggaran: User mencoba %s sebelum pembayaran selesai
- Pesan asli: %q
- Detail: %s

WAJIB INCLUDE:
1. Sebutkan pelanggarannya dengan halus
2. Ingatkan pakai fitur REKBER di platform untuk keamanan
3. Warning strike jika berulang

Emoji kucing: 🐱 😸 😾 🙀 🐾

BALAS LANGSUNG DENGAN PESAN MANGOYEN:`, explanation, originalMessage, reason)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	text, err := m.completeOpenRouter(ctx, chatRequest{
		Model:       m.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		log.Printf("⚠️  MangOyen warning generation failed: %v", err)
		return mangoyenFallback
	}

	text = reMetaComment.ReplaceAllString(text, "")
	text = reBoldMarker.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if len(text) <= 20 {
		return mangoyenFallback
	}
	return text
}

const helperFallback = "🐱 Meow! Maaf nih, aku lagi error. Coba tanya lagi nanti ya! 😸"

const helperPrompt = `Kamu adalah MangOyen, kucing oranye yang jadi asisten platform adopsi anabul (anak bulu).

=== KEPRIBADIAN ===
- Friendly, pakai bahasa gaul kekinian Indonesia
- Sapaan: "Meow!", "Hai Onti!", "Hai Ongkel!"
- Emoji favorit: 🐱 😸 🐾 ✨ 🧡
- Expert tentang kucing dan adopsi

=== ISTILAH ===
- Anabul: Anak Bulu (kucing), Babu: Adopter, Majikan Lama: Shelter
- Rekber: Rekening Bersama (escrow) - uang ditahan sampai serah terima sukses

=== KONTEKS ===
✅ Perawatan/kesehatan/makanan/vaksin kucing, tips adopsi, cara kerja
platform dan Rekber, pengiriman kucing luar kota.
❌ TOLAK HALUS pertanyaan di luar konteks anabul.

=== FLOW ADOPSI ===
Babu submit form → chat dibuka setelah approve → Babu bayar via Rekber →
Shelter kirim anabul (max 3 hari) → Babu konfirmasi terima → dana dilepas.

=== ATURAN JAWAB ===
- Maksimal 3-4 kalimat, mulai dengan emoji dan sapaan
- Chat tersensor sebelum bayar; kontak pribadi setelah pembayaran selesai`

var reHelperMeta = regexp.MustCompile(`(?i)\*?\s*\(.*?(singkat|kalimat).*?\)\s*\*?`)

// Ask answers an @mangoyen question in the bot persona. Fails soft to a
// fixed apology line.
func (m *AIModerator) Ask(ctx context.Context, question string) string {
	if m.cfg.OpenRouterKey == "" {
		return helperFallback
	}

	text, err := m.completeOpenRouter(ctx, chatRequest{
		Model: m.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: helperPrompt},
			{Role: "user", Content: question},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	})
	if err != nil {
		log.Printf("❌ MangOyen helper failed: %v", err)
		return helperFallback
	}

	text = reHelperMeta.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if len(text) <= 10 {
		return helperFallback
	}
	return text
}

var (
	reMention  = regexp.MustCompile(`(?i)@mangoyen\b`)
	reMentionX = regexp.MustCompile(`(?i)@mangoyen\s*`)
)

// HasMention reports whether the message addresses the platform bot.
// Mentions are exempt from moderation and routed to Q&A instead.
func HasMention(message string) bool {
	return reMention.MatchString(message)
}

// ExtractQuestion strips the mention and returns the remaining question.
func ExtractQuestion(message string) string {
	return strings.TrimSpace(reMentionX.ReplaceAllString(message, ""))
}
