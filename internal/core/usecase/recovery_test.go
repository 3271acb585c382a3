package usecase

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

var lenientStages = []RecoveryStage{StageLenientYAML, StageLenientRepair}

func TestRecoverExtractsEmbeddedObject(t *testing.T) {
	engine := NewResponseRecoveryEngine()

	rec := engine.Recover(`blah {"response":"ok","shloka":"X"} blah`, "earlier talk")
	require.NoError(t, rec.Err)
	require.Equal(t, StageStrict, rec.Stage)
	require.Equal(t, domain.StructuredAnswer{
		Shloka:        "X",
		Meaning:       "",
		ShlokaSummary: "",
		Response:      "ok",
		Reflection:    domain.FallbackReflection(),
		Emotion:       domain.EmotionNeutral,
		NewSummary:    "earlier talk",
	}, rec.Answer)
}

func TestRecoverPrefersFencedBlock(t *testing.T) {
	raw := "Here you go {not this}\n```json\n{\n  \"response\": \"Be steady\",\n  \"emotion\": \"anxious\",\n  \"new_summary\": \"User worries about exams.\"\n}\n```\nHope it helps"

	rec := NewResponseRecoveryEngine().Recover(raw, "")
	require.Equal(t, StageStrict, rec.Stage)
	require.Equal(t, "Be steady", rec.Answer.Response)
	require.Equal(t, domain.EmotionAnxious, rec.Answer.Emotion)
	require.Equal(t, "User worries about exams.", rec.Answer.NewSummary)
}

func TestRecoverFallbacks(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		stage RecoveryStage
	}{
		{name: "empty", raw: "  \n ", stage: StageFallbackEmpty},
		{name: "marker", raw: domain.GenerationErrorMarker + " model offline", stage: StageFallbackMarker},
		{name: "prose", raw: "I am sorry, I cannot help with that.", stage: StageFallbackUnparseable},
		{name: "no response", raw: `{"shloka": "X", "meaning": "Y"}`, stage: StageFallbackNoResponse},
		{name: "blank response", raw: `{"response": "   "}`, stage: StageFallbackNoResponse},
		{name: "array", raw: `["response", "ok"]`, stage: StageFallbackUnparseable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewResponseRecoveryEngine().Recover(tc.raw, "carry me")
			require.Equal(t, tc.stage, rec.Stage)
			require.True(t, rec.Stage.IsFallback())
			require.Equal(t, domain.FallbackAnswer("carry me"), rec.Answer)
			require.Error(t, rec.Err)
			require.True(t, domain.IsKind(rec.Err, domain.ErrMalformedOutput))
		})
	}
}

func TestRecoverLenientInputs(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		response string
		emotion  domain.Emotion
	}{
		{
			name:     "unquoted keys and single quotes",
			raw:      `{response: 'Walk your own path', emotion: 'Calm'}`,
			response: "Walk your own path",
			emotion:  domain.EmotionCalm,
		},
		{
			name:     "trailing comma",
			raw:      `{"response": "Rest now", "emotion": "Sad",}`,
			response: "Rest now",
			emotion:  domain.EmotionSad,
		},
		{
			name:     "stray inner quotes",
			raw:      `{"response": "He said "be calm" to me", "emotion": "Joy"}`,
			response: `He said "be calm" to me`,
			emotion:  domain.EmotionJoy,
		},
		{
			name:     "unterminated object",
			raw:      `{"response": "Stay steady", "emotion": "Angry", "reflection": "Breathe`,
			response: "Stay steady",
			emotion:  domain.EmotionAngry,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewResponseRecoveryEngine().Recover(tc.raw, "")
			require.NoError(t, rec.Err)
			require.Contains(t, lenientStages, rec.Stage)
			require.Equal(t, tc.response, rec.Answer.Response)
			require.Equal(t, tc.emotion, rec.Answer.Emotion)
		})
	}
}

func TestRecoverUnterminatedKeepsPartialField(t *testing.T) {
	rec := NewResponseRecoveryEngine().Recover(`{"response": "Stay steady", "reflection": "Breathe`, "")
	require.Equal(t, StageLenientRepair, rec.Stage)
	require.Equal(t, "Breathe", rec.Answer.Reflection)
}

func TestRecoverFieldCompletion(t *testing.T) {
	raw := `{"Response": 42, "shloka_summary": ["duty", "detachment"], "emotion": "furious", "new_summary": ""}`

	rec := NewResponseRecoveryEngine().Recover(raw, "previous")
	require.Equal(t, StageStrict, rec.Stage)
	require.Equal(t, "42", rec.Answer.Response)
	require.Equal(t, "duty detachment", rec.Answer.ShlokaSummary)
	require.Equal(t, domain.EmotionNeutral, rec.Answer.Emotion)
	require.Equal(t, "previous", rec.Answer.NewSummary)
	require.Equal(t, domain.FallbackReflection(), rec.Answer.Reflection)
}

func TestRecoverNormalizesLineBreaks(t *testing.T) {
	rec := NewResponseRecoveryEngine().Recover("{\"response\": \"line one\r\nline two\"}", "")
	require.Equal(t, StageStrict, rec.Stage)
	require.Equal(t, "line one line two", rec.Answer.Response)
}

func TestRecoverIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"{",
		"}{",
		"```",
		"```json\n```",
		`{"response": }`,
		`{"response": "x", "emotion": {"nested": true}}`,
		`{'response': "mixed' quotes}`,
		`{response: ok, flag: True, other: None}`,
		"\x00\x01{\"response\": \"ctrl\"}",
		`{"a": [1, 2, {"b": "c"`,
		`null`,
		`"just a string"`,
	}

	engine := NewResponseRecoveryEngine()
	for _, raw := range inputs {
		rec := engine.Recover(raw, "prev")
		require.NotEmpty(t, rec.Answer.Response, "input %q", raw)
		require.NotEmpty(t, rec.Answer.Reflection, "input %q", raw)
		require.True(t, rec.Answer.Emotion.Valid(), "input %q", raw)
		require.NotEmpty(t, rec.Answer.NewSummary, "input %q", raw)
	}
}

func TestRepairJSONProducesValidJSON(t *testing.T) {
	cases := map[string]map[string]any{
		`{response: ok, flag: True, none: None}`: {"response": "ok", "flag": true, "none": nil},
		`{'response': 'it\'s fine', 'list': ['a', 'b',],}`: {"response": "it's fine", "list": []any{"a", "b"}},
		`{"response": "unterminated`:                       {"response": "unterminated"},
		`{"response": "x", "reflection":`:                  {"response": "x", "reflection": nil},
	}

	for input, want := range cases {
		repaired := repairJSON(input)
		require.True(t, json.Valid([]byte(repaired)), "repairJSON(%q) = %q", input, repaired)

		var got map[string]any
		require.NoError(t, json.Unmarshal([]byte(repaired), &got))
		require.Equal(t, want, got)
	}
}

func TestExtractSpan(t *testing.T) {
	require.Equal(t, `{"a":1}`, extractSpan(`noise {"a":1} noise`))
	require.Equal(t, `{"a":{"b":2}}`, extractSpan(`x {"a":{"b":2}} y`))
	require.Equal(t, `{"a":"open`, extractSpan(`lead {"a":"open`))
	require.Equal(t, `{"a":1}`, extractSpan("```json\n{\"a\":1}\n```"))
	require.Equal(t, "plain words", extractSpan("plain words"))
}
