package domain

import "strings"

type Emotion string

const (
	EmotionJoy     Emotion = "Joy"
	EmotionHappy   Emotion = "Happy"
	EmotionCalm    Emotion = "Calm"
	EmotionNeutral Emotion = "Neutral"
	EmotionAnxious Emotion = "Anxious"
	EmotionSad     Emotion = "Sad"
	EmotionAngry   Emotion = "Angry"
)

// Emotions lists the closed emotion set in prompt order.
var Emotions = []Emotion{
	EmotionJoy,
	EmotionHappy,
	EmotionCalm,
	EmotionNeutral,
	EmotionAnxious,
	EmotionSad,
	EmotionAngry,
}

// ParseEmotion is case-insensitive and maps anything outside the set to Neutral.
func ParseEmotion(raw string) Emotion {
	value := strings.TrimSpace(raw)
	for _, emotion := range Emotions {
		if strings.EqualFold(value, string(emotion)) {
			return emotion
		}
	}
	return EmotionNeutral
}

func (e Emotion) Valid() bool {
	for _, emotion := range Emotions {
		if e == emotion {
			return true
		}
	}
	return false
}

// GenerationErrorMarker prefixes generator output that encodes a failure in-band.
const GenerationErrorMarker = "[generation_error]"

type StructuredAnswer struct {
	Shloka        string  `json:"shloka"`
	Meaning       string  `json:"meaning"`
	ShlokaSummary string  `json:"shloka_summary"`
	Response      string  `json:"response"`
	Reflection    string  `json:"reflection"`
	Emotion       Emotion `json:"emotion"`
	NewSummary    string  `json:"new_summary"`
}

// Answer field keys as they appear in generator JSON.
const (
	FieldShloka        = "shloka"
	FieldMeaning       = "meaning"
	FieldShlokaSummary = "shloka_summary"
	FieldResponse      = "response"
	FieldReflection    = "reflection"
	FieldEmotion       = "emotion"
	FieldNewSummary    = "new_summary"
)

var AnswerFields = []string{
	FieldShloka,
	FieldMeaning,
	FieldShlokaSummary,
	FieldResponse,
	FieldReflection,
	FieldEmotion,
	FieldNewSummary,
}

const (
	fallbackShloka        = "कर्मण्येवाधिकारस्ते मा फलेषु कदाचन। मा कर्मफलहेतुर्भूर्मा ते सङ्गोऽस्त्वकर्मणि॥"
	fallbackMeaning       = "You have a right to perform your prescribed duties, but you are not entitled to the fruits of your actions. Never consider yourself the cause of the results, and never be attached to inaction."
	fallbackShlokaSummary = "Bhagavad Gita 2.47 asks us to give our full effort to what is in front of us and to loosen our grip on outcomes we cannot control."
	fallbackResponse      = "My dear friend, I could not shape a complete answer for you this time, but I am still here with you. Whatever weighs on you right now, begin with the one step that is yours to take, and offer it without clutching at the result. Ask me again in a moment, and we will look at it together."
	fallbackReflection    = "What is one small action within your control today that you can do wholeheartedly, without worrying about how it turns out?"

	// ConversationalReflection accompanies short conversational replies.
	ConversationalReflection = "Whenever you are ready, share what is on your mind."
)

// FallbackAnswer is the canonical answer used when recovery cannot produce a valid
// structure. Its verse fields are deliberately non-empty.
func FallbackAnswer(previousSummary string) StructuredAnswer {
	return StructuredAnswer{
		Shloka:        fallbackShloka,
		Meaning:       fallbackMeaning,
		ShlokaSummary: fallbackShlokaSummary,
		Response:      fallbackResponse,
		Reflection:    fallbackReflection,
		Emotion:       EmotionCalm,
		NewSummary:    previousSummary,
	}
}

// FallbackReflection is the default reflection for answers that omitted one.
func FallbackReflection() string {
	return fallbackReflection
}
