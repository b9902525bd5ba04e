package callflow

import (
	"regexp"
	"strings"

	"github.com/heartline-cc/HeartLine/pkg/logger"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"
)

// Spoken lines used by the state machine. Every path through the engine ends
// in one of the builders below, so the gateway always gets a valid document.
const (
	greetingLine   = "Hi, you've reached the student support line. I'm here to listen. What's on your mind?"
	repromptLine   = "Sorry, I didn't catch that. Could you say it again?"
	troubleLine    = "We're having a little technical difficulty. Please continue, I'm still here."
	transferLine   = "I'm connecting you with one of our counselors now. Please hold on."
	bridgeFailLine = "I'm sorry, we couldn't reach the counselor. Please stay on the line and keep talking to me."
)

// fallbackDocument is the last resort if TwiML marshaling itself fails.
const fallbackDocument = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>` +
	troubleLine + `</Say></Response>`

var speechSanitizer = regexp.MustCompile(`[<>&"]|[\x00-\x1f]`)

// sanitizeSpeech strips characters that have no place in spoken markup.
func sanitizeSpeech(text string) string {
	return strings.TrimSpace(speechSanitizer.ReplaceAllString(text, " "))
}

func (e *Engine) say(text string) *twiml.VoiceSay {
	return &twiml.VoiceSay{
		Message:  text,
		Voice:    e.opts.VoiceName,
		Language: e.opts.Language,
	}
}

// promptDocument speaks a line and re-opens speech gathering. The gather
// posts back to the processing URL even when nothing was said, so silence
// comes back through the state machine as an empty-utterance event.
func (e *Engine) promptDocument(text string) string {
	gather := &twiml.VoiceGather{
		Input:               "speech",
		Action:              e.opts.ProcessURL,
		Method:              "POST",
		SpeechTimeout:       "auto",
		Language:            e.opts.Language,
		ActionOnEmptyResult: "true",
		InnerElements:       []twiml.Element{e.say(text)},
	}
	return e.render([]twiml.Element{gather})
}

// transferDocument announces the handoff and bridges the leg to the
// counselor's number, with a spoken fallback if the bridge returns.
func (e *Engine) transferDocument(number string) string {
	dial := &twiml.VoiceDial{Number: number}
	return e.render([]twiml.Element{
		e.say(transferLine),
		dial,
		e.say(bridgeFailLine),
	})
}

// goodbyeDocument speaks a terminal line and hangs up.
func (e *Engine) goodbyeDocument(text string) string {
	return e.render([]twiml.Element{
		e.say(text),
		&twiml.VoiceHangup{},
	})
}

func (e *Engine) render(elements []twiml.Element) string {
	doc, err := twiml.Voice(elements)
	if err != nil {
		logger.Error("twiml render failed", zap.Error(err))
		return fallbackDocument
	}
	return doc
}
