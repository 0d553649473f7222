package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/service"
)

type TranslateHTTP struct {
	Svc *service.TranslateService
}

type translateRequest struct {
	Text               json.RawMessage `json:"text"`
	Texts              []string        `json:"texts"`
	SourceLanguageCode string          `json:"source_language_code"`
	TargetLanguageCode string          `json:"target_language_code"`
}

// texts accepts "text" as a string or a list, plus an explicit "texts" list.
func (r translateRequest) texts() ([]string, error) {
	out := append([]string(nil), r.Texts...)
	if len(r.Text) == 0 || string(r.Text) == "null" {
		return out, nil
	}

	var one string
	if err := json.Unmarshal(r.Text, &one); err == nil {
		return append(out, one), nil
	}
	var many []string
	if err := json.Unmarshal(r.Text, &many); err != nil {
		return nil, err
	}
	return append(out, many...), nil
}

func (h *TranslateHTTP) Translate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	texts, err := req.texts()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "text must be a string or a list of strings")
	}

	out, err := h.Svc.Translate(c.Request().Context(), service.TranslateInput{
		Texts:  texts,
		Source: req.SourceLanguageCode,
		Target: req.TargetLanguageCode,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"translations": out})
}
