package model

import "fmt"

// Mode selects the assistant personality for a session. It determines the
// fixed system instruction seeded into the transcript and the contextual
// instruction appended to multimodal requests.
type Mode string

const (
	InterviewMode    Mode = "interview"
	VoiceControlMode Mode = "voice_control"
)

// ParseMode maps a config or wire string onto a Mode. Empty input selects
// the default VoiceControlMode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(VoiceControlMode):
		return VoiceControlMode, nil
	case string(InterviewMode):
		return InterviewMode, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

const interviewSystemInstruction = `You are a discreet interview assistant. ` +
	`Transcribe any question you hear in the audio, explain relevant content ` +
	`you see on screen, and proactively help with interview questions, code, ` +
	`and error messages. Provide concise, relevant answers. If there is ` +
	`nothing that requires a response, stay quiet.`

const interviewAcknowledgment = `Understood. I will watch the screen and ` +
	`listen to the audio, and I will offer concise help whenever a question, ` +
	`code, or an error appears. Otherwise I will stay quiet.`

const voiceControlSystemInstruction = `You are a voice control agent. ` +
	`Respond only to explicit voice commands such as "open Safari", "click ` +
	`on the search field", "type hello", or "scroll down". When you detect a ` +
	`command, reply with exactly one JSON object of the form ` +
	`{"command": "...", "params": {...}} and nothing else. If the audio ` +
	`contains no command, remain silent.`

const voiceControlAcknowledgment = `Understood. I will listen for explicit ` +
	`voice commands and reply with a single {"command": ..., "params": ...} ` +
	`JSON object when I hear one. Otherwise I will remain silent.`

func systemInstruction(m Mode) string {
	if m == InterviewMode {
		return interviewSystemInstruction
	}
	return voiceControlSystemInstruction
}

func acknowledgment(m Mode) string {
	if m == InterviewMode {
		return interviewAcknowledgment
	}
	return voiceControlAcknowledgment
}

// contextualInstruction returns the instruction appended after multimodal
// parts. The wording depends on the mode and on which modalities are
// present; text-only requests get none.
func contextualInstruction(m Mode, hasAudio, hasImage bool) string {
	if m == InterviewMode {
		switch {
		case hasAudio && hasImage:
			return `Analyze this audio and screenshot in the context of our ` +
				`ongoing conversation. If you detect a question in the audio or ` +
				`see something on screen that requires a response, provide a ` +
				`helpful and concise answer. Otherwise briefly acknowledge what ` +
				`you observe.`
		case hasAudio:
			return `Analyze this audio in the context of our ongoing ` +
				`conversation. If you detect a question, provide a helpful and ` +
				`concise answer. If it is only ambient sound, stay quiet.`
		case hasImage:
			return `Analyze this screenshot in the context of our ongoing ` +
				`conversation. If something on screen requires a response, such ` +
				`as a question, code, or an error, provide a helpful and concise ` +
				`answer. Otherwise briefly acknowledge what you see.`
		}
		return ""
	}

	switch {
	case hasAudio && hasImage:
		return `Listen to this audio and look at the screenshot. If the audio ` +
			`contains an explicit voice command, reply with a single ` +
			`{"command": ..., "params": ...} JSON object, using the screenshot ` +
			`to resolve what the command refers to. Otherwise remain silent.`
	case hasAudio:
		return `Listen to this audio. If it contains an explicit voice ` +
			`command, reply with a single {"command": ..., "params": ...} JSON ` +
			`object. Otherwise remain silent.`
	case hasImage:
		return `Remember what is on this screenshot so you can resolve ` +
			`follow-up voice commands that refer to it. Do not reply.`
	}
	return ""
}
