// ABOUTME: HTTP API handlers for message dispatch and ledger queries
// ABOUTME: Provides POST /send-message plus read-only chat, history, and report endpoints

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode"
)

// SendMessageRequest is the JSON request body for POST /send-message.
type SendMessageRequest struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// SendMessageResponse is the JSON response for a successful dispatch.
type SendMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChatMessagesResponse is the JSON response for GET /chats/{id}/messages.
type ChatMessagesResponse struct {
	ChatID   string `json:"chat_id"`
	Messages any    `json:"messages"`
}

// handleSendMessage handles POST /send-message requests.
// It validates the destination against the transport and delivers the text.
//
// Responsibilities:
//  1. Parse JSON body - decode SendMessageRequest from request body
//  2. Validate required fields - ensure number and message are present
//  3. Check transport readiness - fail fast when the session is down
//  4. Verify destination - reject numbers not registered on the network
//  5. Deliver via transport - surface send failures with details
func (g *Gateway) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	req, err := parseSendRequest(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	chatID := g.transport.AddressFromNumber(stripNonDigits(req.Number))

	if !g.transport.Ready() {
		g.sendJSONError(w, http.StatusInternalServerError, "Cliente não está conectado!")
		return
	}

	registered, err := g.transport.IsRegistered(r.Context(), chatID)
	if err != nil {
		g.logger.Error("registration check failed", "chat", chatID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "Erro ao verificar o número")
		return
	}
	if !registered {
		g.sendJSONError(w, http.StatusBadRequest, "O número não está registrado!")
		return
	}

	if err := g.transport.SendText(r.Context(), chatID, req.Message); err != nil {
		g.logger.Error("dispatch failed", "chat", chatID, "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "Erro ao enviar mensagem",
			"details": err.Error(),
		})
		return
	}

	g.logger.Info("mensagem enviada", "chat", chatID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SendMessageResponse{
		Success: true,
		Message: "Mensagem enviada para " + req.Number,
	})
}

// handleListChats handles GET /chats requests.
// Returns all registered chats in first-sighting order.
func (g *Gateway) handleListChats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g.store.ListChats())
}

// handleChatMessages handles GET /chats/{id}/messages requests.
// Returns the chat's ordered message history.
func (g *Gateway) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if chatID == "" {
		g.sendJSONError(w, http.StatusBadRequest, "chat id is required")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ChatMessagesResponse{
		ChatID:   chatID,
		Messages: g.store.History(chatID),
	})
}

// handleListReports handles GET /reports requests.
// Returns captured support reports in capture order.
func (g *Gateway) handleListReports(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(g.store.ListReports())
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseSendRequest parses and validates a SendMessageRequest from the given reader.
// Returns an error if the JSON is invalid or required fields are missing.
func parseSendRequest(r io.Reader) (*SendMessageRequest, error) {
	var req SendMessageRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}

	if req.Number == "" || req.Message == "" {
		return nil, errors.New("Número e mensagem são obrigatórios!")
	}

	return &req, nil
}

// stripNonDigits removes everything but digits from a phone number.
func stripNonDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
