package handlers

import (
	"encoding/json"
	"net/http"

	"taskManager/internal/logger"
)

// envelope: общий формат всех ответов API.
type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Message string         `json:"message,omitempty"`
	Errors  map[string]any `json:"errors,omitempty"`
	Code    string         `json:"code,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, code int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("HTTP: Не удалось записать ответ", err)
	}
}

func responseWithJSON(w http.ResponseWriter, code int, data any) {
	writeEnvelope(w, code, envelope{Success: true, Data: data})
}

func responseWithMessage(w http.ResponseWriter, code int, message string, data any) {
	writeEnvelope(w, code, envelope{Success: true, Data: data, Message: message})
}

func responseWithError(w http.ResponseWriter, code int, errCode, message string, details map[string]any) {
	writeEnvelope(w, code, envelope{
		Success: false,
		Message: message,
		Errors:  details,
		Code:    errCode,
	})
}
