package voicerelay

import (
	"encoding/json"
	"testing"
)

func TestFinalTranscript(t *testing.T) {
	tests := []struct {
		name string
		resp ResponseObject
		want string
	}{
		{
			name: "empty output",
			resp: ResponseObject{},
			want: "",
		},
		{
			name: "output without content",
			resp: ResponseObject{Output: []OutputItem{{Type: "message", Role: "assistant"}}},
			want: "",
		},
		{
			name: "audio transcript",
			resp: ResponseObject{Output: []OutputItem{{
				Content: []ContentPart{{Type: "audio", Transcript: "She slept through the night."}},
			}}},
			want: "She slept through the night.",
		},
		{
			name: "text fallback when transcript empty",
			resp: ResponseObject{Output: []OutputItem{{
				Content: []ContentPart{{Type: "text", Text: "Thank you, doctor."}},
			}}},
			want: "Thank you, doctor.",
		},
		{
			name: "transcript preferred over text",
			resp: ResponseObject{Output: []OutputItem{{
				Content: []ContentPart{{Type: "audio", Transcript: "spoken", Text: "written"}},
			}}},
			want: "spoken",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.finalTranscript(); got != tt.want {
				t.Errorf("finalTranscript() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEventJSONOmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(Event{Type: EventSpeechStarted, Message: "Speech detected"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m) != 2 {
		t.Errorf("expected only type and message fields, got %v", m)
	}
	if _, present := m["audioData"]; present {
		t.Error("audioData must be omitted when empty")
	}
}

func TestResponseDoneEventDecoding(t *testing.T) {
	raw := `{"type":"response.done","event_id":"ev_1","response":{"id":"resp_1","status":"completed",` +
		`"output":[{"id":"item_1","type":"message","role":"assistant",` +
		`"content":[{"type":"audio","transcript":"I understand."}]}]}}`

	var e ResponseDoneEvent
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if e.Response.Status != "completed" {
		t.Errorf("status = %q", e.Response.Status)
	}
	if got := e.Response.finalTranscript(); got != "I understand." {
		t.Errorf("finalTranscript() = %q", got)
	}
}
