// Package hume speaks the wire protocol of the Hume AI Octave
// text-to-speech HTTP API.
package hume

import "time"

// Provider identifies where a voice definition lives. The API serializes
// providers as fixed string tokens.
type Provider string

const (
	// ProviderHumeAI is the hosted voice library.
	ProviderHumeAI Provider = "HUME_AI"

	// ProviderCustomVoice is a user-defined voice.
	ProviderCustomVoice Provider = "CUSTOM_VOICE"
)

// VoiceRef selects a voice for one utterance. Unset fields are omitted on
// the wire, never sent as null.
type VoiceRef struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Provider Provider `json:"provider,omitempty"`
}

// Utterance is one span of text to synthesize. Description carries optional
// acting guidance (style, emotion, delivery); Voice overrides the voice for
// this utterance only.
type Utterance struct {
	Text        string    `json:"text"`
	Description string    `json:"description,omitempty"`
	Voice       *VoiceRef `json:"voice,omitempty"`
}

// Context carries prior utterances so the service can keep prosody
// consistent across turns.
type Context struct {
	Utterances []Utterance `json:"utterances"`
}

// Format selects the container for generated audio.
type Format struct {
	Type string `json:"type"`
}

// FormatPCM requests raw 16-bit little-endian PCM, mono, 24 kHz.
func FormatPCM() Format { return Format{Type: "pcm"} }

// SynthesisRequest is the body of POST /v0/tts.
type SynthesisRequest struct {
	Utterances     []Utterance `json:"utterances"`
	Context        *Context    `json:"context,omitempty"`
	Format         Format      `json:"format"`
	NumGenerations int         `json:"num_generations"`
}

// Generation is one synthesized result. Audio is base64-encoded PCM in the
// requested format.
type Generation struct {
	GenerationID string  `json:"generation_id,omitempty"`
	Audio        string  `json:"audio"`
	Duration     float64 `json:"duration,omitempty"`
}

// SynthesisResponse is the reply to POST /v0/tts.
type SynthesisResponse struct {
	Generations []Generation `json:"generations"`
	RequestID   string       `json:"request_id,omitempty"`
}

// CustomVoice is a remotely stored voice profile. Parameters is an
// open-ended tuning map whose semantics belong to the service.
type CustomVoice struct {
	ID             string         `json:"id"`
	Version        int            `json:"version"`
	Name           string         `json:"name"`
	CreatedOn      int64          `json:"created_on"`
	ModifiedOn     int64          `json:"modified_on"`
	BaseVoice      string         `json:"base_voice"`
	ParameterModel string         `json:"parameter_model"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// CreatedAt returns the creation timestamp (the wire carries unix millis).
func (v CustomVoice) CreatedAt() time.Time { return time.UnixMilli(v.CreatedOn) }

// ModifiedAt returns the last-modified timestamp.
func (v CustomVoice) ModifiedAt() time.Time { return time.UnixMilli(v.ModifiedOn) }

// CustomVoicesPage is one page of the custom voice listing.
type CustomVoicesPage struct {
	PageNumber int           `json:"page_number"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Voices     []CustomVoice `json:"custom_voices_page"`
}

type saveVoiceRequest struct {
	GenerationID string `json:"generation_id"`
	Name         string `json:"name"`
}

// SavedVoice is the reply to voice creation.
type SavedVoice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
