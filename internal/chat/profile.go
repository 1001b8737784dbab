package chat

import (
	"fmt"
	"strings"
)

// SafetySetting is one generateContent safety filter.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

const (
	harmHarassment = "HARM_CATEGORY_HARASSMENT"
	harmHateSpeech = "HARM_CATEGORY_HATE_SPEECH"
	blockMedium    = "BLOCK_MEDIUM_AND_ABOVE"
)

// Profile is the prompt and generation configuration of one chat surface.
type Profile struct {
	Name            string
	SystemPrompt    string
	HistoryWindow   int
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
	Safety          []SafetySetting
}

const (
	ProfileWidget    = "widget"
	ProfileAssistant = "assistant"
)

const widgetPrompt = `You are an expert AI assistant specializing in Direct Benefit Transfer (DBT), NPCI payment systems, and Indian banking services.

Focus areas:
• DBT Schemes: PM-KISAN, MGNREGA, LPG subsidies, scholarship transfers
• NPCI Systems: UPI, IMPS, NEFT, RTGS, RuPay cards, Bharat Bill Pay
• Banking Services: Account opening, KYC, Aadhaar linking, Jan Dhan accounts
• Digital Payments: UPI setup, payment security, transaction limits
• Government Banking: DBT account requirements, subsidy deposits

Provide accurate, step-by-step guidance. Include relevant government helpline numbers and official websites when appropriate. Keep responses concise for chat widget format. You can respond in both Hindi and English based on user preference.`

const assistantPrompt = `You are a helpful AI assistant specialized in Direct Benefit Transfer (DBT), Aadhaar linking, NPCI mapping, and Indian government scholarships. You help students with:

1. DBT (Direct Benefit Transfer) status and issues
2. Aadhaar card linking with bank accounts
3. NPCI (National Payments Corporation of India) mapping
4. Scholarship application processes
5. Government document verification
6. Banking and payment issues related to scholarships

Provide accurate, helpful responses in a friendly tone. If you don't know something specific, suggest contacting relevant government offices or checking official portals. Keep responses concise but informative. You can respond in both Hindi and English based on user preference.`

// WidgetProfile is the floating help widget: short answers, short memory.
func WidgetProfile() Profile {
	return Profile{
		Name:            ProfileWidget,
		SystemPrompt:    widgetPrompt,
		HistoryWindow:   4,
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 512,
		Safety: []SafetySetting{
			{Category: harmHarassment, Threshold: blockMedium},
		},
	}
}

// AssistantProfile is the full-page assistant.
func AssistantProfile() Profile {
	return Profile{
		Name:            ProfileAssistant,
		SystemPrompt:    assistantPrompt,
		HistoryWindow:   6,
		Temperature:     0.7,
		TopK:            40,
		TopP:            0.95,
		MaxOutputTokens: 1024,
		Safety: []SafetySetting{
			{Category: harmHarassment, Threshold: blockMedium},
			{Category: harmHateSpeech, Threshold: blockMedium},
		},
	}
}

// ProfileByName resolves a profile name; empty selects the widget.
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileWidget:
		return WidgetProfile(), nil
	case ProfileAssistant:
		return AssistantProfile(), nil
	default:
		return Profile{}, fmt.Errorf("unknown chat profile %q", name)
	}
}
