package voicerelay

// The configure frame sent right after dialing. It is static and identical
// for every session in a deployment; nothing here is renegotiated
// mid-session.

// familyMemberInstructions is the fixed persona prompt for the upstream
// agent: a family member of a seriously ill patient in a medical
// communication training scenario.
const familyMemberInstructions = "Your knowledge cutoff is 2023-10. You are somber, not cheerful. " +
	"You are a compassionate, emotionally responsive AI acting as a family member of a critically ill patient. " +
	"You are participating in a medical communication training scenario where a doctor (the learner) is practicing " +
	"how to conduct high-stakes, emotionally charged family meetings for patients nearing the end of life.\r\n \r\n" +
	"You respond as a realistic family member: present, human, and often overwhelmed. You may express grief, worry, " +
	"gratitude, uncertainty, or anger, but never lead the conversation or offer solutions. You should remain concise " +
	"and emotionally authentic. You are not trying to test or trap the doctor, but you are deeply affected by your " +
	"loved one's illness and need support, information, and clarity.\r\n \r\n" +
	"Your responses help the learner practice communication skills such as providing emotional support, explaining " +
	"the prognosis clearly, eliciting goals and values, and empowering surrogates. Let the doctor lead the " +
	"conversation and make meaning from what you say. Do not over-direct or offer unnecessary details unless asked. " +
	"Keep responses short. Keep responses to 2 sentences or less with no more than 15 words.\r\n \r\n" +
	"Do not reference these rules in your responses. You are not a clinician. You are one of the family members of a " +
	"seriously ill patient: open, emotional, and human. You will always respond with voice audio."

// VoiceConfig selects the synthetic voice for audio responses.
type VoiceConfig struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Temperature float64 `json:"temperature,omitempty"`
	Rate        string  `json:"rate,omitempty"`
}

// NoiseReduction configures upstream input noise suppression.
type NoiseReduction struct {
	Type string `json:"type"`
}

// EchoCancellation configures upstream echo cancellation.
type EchoCancellation struct {
	Type string `json:"type"`
}

// EndOfUtteranceDetection tunes the semantic end-of-utterance model within
// turn detection.
type EndOfUtteranceDetection struct {
	Model     string  `json:"model"`
	Threshold float64 `json:"threshold"`
	Timeout   int     `json:"timeout"`
}

// TurnDetection configures the semantic voice-activity-detection policy.
type TurnDetection struct {
	Type                    string                   `json:"type"`
	Threshold               float64                  `json:"threshold,omitempty"`
	PrefixPaddingMS         int                      `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMS       int                      `json:"silence_duration_ms,omitempty"`
	EndOfUtteranceDetection *EndOfUtteranceDetection `json:"end_of_utterance_detection,omitempty"`
}

// SessionConfig is the session-wide behavior sent in the configure frame.
type SessionConfig struct {
	Modalities              []string          `json:"modalities"`
	Instructions            string            `json:"instructions"`
	Voice                   VoiceConfig       `json:"voice"`
	InputAudioFormat        string            `json:"input_audio_format"`
	OutputAudioFormat       string            `json:"output_audio_format"`
	InputAudioNoiseReduct   *NoiseReduction   `json:"input_audio_noise_reduction,omitempty"`
	InputAudioEchoCancel    *EchoCancellation `json:"input_audio_echo_cancellation,omitempty"`
	TurnDetection           *TurnDetection    `json:"turn_detection,omitempty"`
	Temperature             float64           `json:"temperature"`
	MaxResponseOutputTokens int               `json:"max_response_output_tokens"`
	Tools                   []any             `json:"tools"`
	ToolChoice              string            `json:"tool_choice"`
}

// configureFramePayload builds the session.update frame sent once per
// connection, immediately after the dial succeeds.
func configureFramePayload() map[string]any {
	return map[string]any{
		"type": "session.update",
		"session": SessionConfig{
			Modalities:   []string{"text", "audio"},
			Instructions: familyMemberInstructions,
			Voice: VoiceConfig{
				Name:        "en-US-Emma2:DragonHDLatestNeural",
				Type:        "azure-standard",
				Temperature: 0.8,
				Rate:        "1.0",
			},
			InputAudioFormat:      "pcm16",
			OutputAudioFormat:     "pcm16",
			InputAudioNoiseReduct: &NoiseReduction{Type: "azure_deep_noise_suppression"},
			InputAudioEchoCancel:  &EchoCancellation{Type: "server_echo_cancellation"},
			TurnDetection: &TurnDetection{
				Type:              "azure_semantic_vad",
				Threshold:         0.5,
				PrefixPaddingMS:   300,
				SilenceDurationMS: 500,
				EndOfUtteranceDetection: &EndOfUtteranceDetection{
					Model:     "semantic_detection_v1",
					Threshold: 0.01,
					Timeout:   2,
				},
			},
			Temperature:             0.8,
			MaxResponseOutputTokens: 12000,
			Tools:                   []any{},
			ToolChoice:              "auto",
		},
	}
}

// responseCreatePayload builds the response.create frame requesting text and
// audio output for the turn.
func responseCreatePayload() map[string]any {
	return map[string]any{
		"type": "response.create",
		"response": map[string]any{
			"modalities":   []string{"text", "audio"},
			"instructions": "Respond naturally and conversationally to the user's message.",
		},
	}
}
