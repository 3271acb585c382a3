package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/divinegpt/divinegpt/internal/core/domain"
)

// askRequest and askResponse keep the shape of the first public gateway, which
// only knew about the Gita.
type askRequest struct {
	Query    string `json:"query"`
	UserType string `json:"user_type"`
}

type retrievedShloka struct {
	ID              string `json:"id"`
	Chapter         int    `json:"chapter"`
	Verse           int    `json:"verse"`
	Shloka          string `json:"shloka"`
	Transliteration string `json:"transliteration,omitempty"`
	EngMeaning      string `json:"eng_meaning,omitempty"`
	HinMeaning      string `json:"hin_meaning,omitempty"`
}

type askResponse struct {
	UserQuery        string            `json:"user_query"`
	RetrievedShlokas []retrievedShloka `json:"retrieved_shlokas"`
	LLMResponse      string            `json:"llm_response"`
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !rt.decodeJSON(w, r, "AskRequest", &req) {
		return
	}

	result, err := rt.answers.Answer(r.Context(), domain.AnswerRequest{
		Query:    req.Query,
		UserType: req.UserType,
		Corpus:   string(domain.CorpusGita),
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAskResponse(req.Query, result))
}

func newAskResponse(query string, result *domain.AnswerResult) askResponse {
	shlokas := make([]retrievedShloka, 0, len(result.Passages))
	for _, passage := range result.Passages {
		shlokas = append(shlokas, retrievedShloka{
			ID:              passage.ID,
			Chapter:         passage.Locator.Chapter,
			Verse:           passage.Locator.Verse,
			Shloka:          passage.Text,
			Transliteration: passage.Transliteration,
			EngMeaning:      passage.Translation,
			HinMeaning:      passage.HindiTranslation,
		})
	}
	encoded, err := json.Marshal(result.Answer)
	if err != nil {
		encoded = []byte(result.Answer.Response)
	}
	return askResponse{
		UserQuery:        query,
		RetrievedShlokas: shlokas,
		LLMResponse:      string(encoded),
	}
}
