package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/botpanel/internal/bot"
	"github.com/cory-johannsen/botpanel/internal/panel"
	"github.com/cory-johannsen/botpanel/internal/storage/postgres"
)

type createBotRequest struct {
	Name          string `json:"name"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Version       string `json:"version"`
	PasswordCmd   string `json:"password_cmd"`
	ExtraCommands string `json:"extra_commands"`
	AutoMessage   string `json:"auto_message"`
	AutoInterval  int    `json:"auto_interval_seconds"`
}

type botResponse struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Host         string      `json:"host"`
	Port         int         `json:"port"`
	Username     string      `json:"username"`
	Version      string      `json:"version"`
	AutoMessage  string      `json:"auto_message,omitempty"`
	AutoInterval int         `json:"auto_interval_seconds,omitempty"`
	Status       *bot.Status `json:"status,omitempty"`
}

func toBotResponse(b postgres.Bot, status *bot.Status) botResponse {
	return botResponse{
		ID:           b.ID,
		Name:         b.Name,
		Host:         b.Host,
		Port:         b.Port,
		Username:     b.BotUsername,
		Version:      b.Version,
		AutoMessage:  b.AutoMessage,
		AutoInterval: b.AutoInterval,
		Status:       status,
	}
}

// handleListBots returns the user's bot configurations with live session
// status merged in. Bots without a session carry no status object.
func (a *API) handleListBots(w http.ResponseWriter, r *http.Request, userID int64) {
	bots, err := a.svc.ListBots(r.Context(), userID)
	if err != nil {
		a.logger.Error("listing bots failed", zap.Error(err), zap.Int64("user_id", userID))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sessions, err := a.svc.ListSessions(r.Context(), userID)
	if err != nil {
		a.logger.Error("listing sessions failed", zap.Error(err), zap.Int64("user_id", userID))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]botResponse, 0, len(bots))
	for _, b := range bots {
		var status *bot.Status
		if st, ok := sessions[b.ID]; ok {
			status = &st
		}
		out = append(out, toBotResponse(b, status))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) handleCreateBot(w http.ResponseWriter, r *http.Request, userID int64) {
	var req createBotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Host == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, "name, host, and username are required")
		return
	}

	created, err := a.svc.CreateBot(r.Context(), userID, postgres.Bot{
		Name:          req.Name,
		Host:          req.Host,
		Port:          req.Port,
		BotUsername:   req.Username,
		Version:       req.Version,
		PasswordCmd:   req.PasswordCmd,
		ExtraCommands: req.ExtraCommands,
		AutoMessage:   req.AutoMessage,
		AutoInterval:  req.AutoInterval,
	})
	if err != nil {
		a.writeServiceError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusCreated, toBotResponse(created, nil))
}

func (a *API) handleDeleteBot(w http.ResponseWriter, r *http.Request, userID int64) {
	botID, ok := pathBotID(w, r)
	if !ok {
		return
	}
	if err := a.svc.DeleteBot(r.Context(), userID, botID); err != nil {
		a.writeServiceError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleStartBot(w http.ResponseWriter, r *http.Request, userID int64) {
	botID, ok := pathBotID(w, r)
	if !ok {
		return
	}
	if err := a.svc.StartSession(r.Context(), userID, botID); err != nil {
		a.writeServiceError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "connecting"})
}

func (a *API) handleStopBot(w http.ResponseWriter, r *http.Request, userID int64) {
	botID, ok := pathBotID(w, r)
	if !ok {
		return
	}
	if err := a.svc.StopSession(r.Context(), userID, botID); err != nil {
		a.writeServiceError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleBotStatus(w http.ResponseWriter, r *http.Request, userID int64) {
	botID, ok := pathBotID(w, r)
	if !ok {
		return
	}
	status, err := a.svc.Status(r.Context(), userID, botID)
	if err != nil {
		a.writeServiceError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (a *API) handleSendChat(w http.ResponseWriter, r *http.Request, userID int64) {
	botID, ok := pathBotID(w, r)
	if !ok {
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := a.svc.SendChat(r.Context(), userID, botID, req.Message); err != nil {
		a.writeServiceError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type autoChatRequest struct {
	Message  string `json:"message"`
	Interval int    `json:"interval_seconds"`
}

func (a *API) handleStartAutoChat(w http.ResponseWriter, r *http.Request, userID int64) {
	botID, ok := pathBotID(w, r)
	if !ok {
		return
	}

	var req autoChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" || req.Interval <= 0 {
		writeError(w, http.StatusBadRequest, "message and a positive interval_seconds are required")
		return
	}

	if err := a.svc.StartAutoChat(r.Context(), userID, botID, req.Message, req.Interval); err != nil {
		a.writeServiceError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *API) handleStopAutoChat(w http.ResponseWriter, r *http.Request, userID int64) {
	botID, ok := pathBotID(w, r)
	if !ok {
		return
	}
	if err := a.svc.StopAutoChat(r.Context(), userID, botID); err != nil {
		a.writeServiceError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func pathBotID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid bot id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps service-layer errors to the API's status codes.
func (a *API) writeServiceError(w http.ResponseWriter, err error, userID int64) {
	switch {
	case errors.Is(err, postgres.ErrBotNotFound):
		writeError(w, http.StatusNotFound, "bot not found")
	case errors.Is(err, panel.ErrQuotaExceeded):
		writeError(w, http.StatusBadRequest, "bot limit reached")
	case errors.Is(err, bot.ErrAlreadyActive):
		writeError(w, http.StatusBadRequest, "bot is already running")
	case errors.Is(err, bot.ErrNotFound):
		writeError(w, http.StatusBadRequest, "bot is not running")
	case errors.Is(err, bot.ErrNotActive):
		writeError(w, http.StatusBadRequest, "bot is not connected")
	default:
		a.logger.Error("request failed", zap.Error(err), zap.Int64("user_id", userID))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
