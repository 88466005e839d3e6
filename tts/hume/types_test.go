package hume

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestProvider_Tokens(t *testing.T) {
	data, err := json.Marshal(VoiceRef{ID: "v", Provider: ProviderHumeAI})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"provider":"HUME_AI"`) {
		t.Errorf("expected HUME_AI token, got %s", data)
	}

	data, err = json.Marshal(VoiceRef{ID: "v", Provider: ProviderCustomVoice})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"provider":"CUSTOM_VOICE"`) {
		t.Errorf("expected CUSTOM_VOICE token, got %s", data)
	}
}

func TestUtterance_OmitsEmptyOptionals(t *testing.T) {
	data, err := json.Marshal(Utterance{Text: "hi"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"text":"hi"}` {
		t.Errorf("expected bare text object, got %s", data)
	}
}

func TestCustomVoice_Timestamps(t *testing.T) {
	v := CustomVoice{CreatedOn: 1700000000000, ModifiedOn: 1700000123000}

	want := time.UnixMilli(1700000000000)
	if !v.CreatedAt().Equal(want) {
		t.Errorf("expected %v, got %v", want, v.CreatedAt())
	}
	if got := v.ModifiedAt().Sub(v.CreatedAt()); got != 123*time.Second {
		t.Errorf("expected 123s between timestamps, got %v", got)
	}
}

func TestCustomVoicesPage_WireField(t *testing.T) {
	raw := `{"page_number":0,"page_size":10,"total_pages":1,"custom_voices_page":[{"id":"x","name":"X"}]}`
	var page CustomVoicesPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(page.Voices) != 1 || page.Voices[0].ID != "x" {
		t.Errorf("custom_voices_page field not mapped: %+v", page)
	}
}
