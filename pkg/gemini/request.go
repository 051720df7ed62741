package gemini

import "encoding/json"

// Request is the Gemini generateContent request format.
// Note: the Gemini API uses camelCase for JSON field names.
type Request struct {
	Contents          []Content       `json:"contents"`
	SystemInstruction *Content        `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenConfig      `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting `json:"safetySettings,omitempty"`
}

// Content represents a content object in Gemini format.
type Content struct {
	Role  string `json:"role,omitempty"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part represents a single part within content.
type Part struct {
	Text       string `json:"text,omitempty"`
	InlineData *Blob  `json:"inlineData,omitempty"`
}

// Blob represents inline binary data.
type Blob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64 encoded
}

// GenConfig contains generation configuration.
type GenConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"topP,omitempty"`
	MaxOutputTokens  *int            `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

// SafetySetting configures one safety filter category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// Safety filter categories and thresholds used by this application.
const (
	CategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	CategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	CategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	CategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"

	ThresholdBlockNone = "BLOCK_NONE"
)

// RelaxedSafetySettings disables the filter categories that would otherwise
// trip on insurance vocabulary (mortality, illness, hospitalization).
func RelaxedSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: CategoryHateSpeech, Threshold: ThresholdBlockNone},
		{Category: CategorySexuallyExplicit, Threshold: ThresholdBlockNone},
		{Category: CategoryHarassment, Threshold: ThresholdBlockNone},
		{Category: CategoryDangerousContent, Threshold: ThresholdBlockNone},
	}
}

// UserText builds a single-part user content from text.
func UserText(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

// SystemText builds a system instruction content from text.
func SystemText(text string) *Content {
	return &Content{Parts: []Part{{Text: text}}}
}
