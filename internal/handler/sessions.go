package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"storecopy-api/internal/middleware"
	"storecopy-api/internal/model"
	"storecopy-api/internal/session"
	"storecopy-api/pkg/apierror"
	"storecopy-api/pkg/response"
)

// SessionsHandler manages offline platform sessions.
type SessionsHandler struct {
	sessions session.Store
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sessions session.Store) *SessionsHandler {
	return &SessionsHandler{sessions: sessions}
}

type saveSessionRequest struct {
	AccessToken string `json:"accessToken"`
}

// Save handles POST /api/v1/sessions. The session is stored under the shop's
// offline session id, replacing any previous token.
func (h *SessionsHandler) Save(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())

	var req saveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	defer r.Body.Close()

	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		response.Error(w, apierror.BadRequest("accessToken is required"))
		return
	}

	sess := &model.Session{
		ID:          model.OfflineSessionID(shopDomain),
		ShopDomain:  shopDomain,
		AccessToken: token,
	}
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		response.Error(w, apierror.InternalError("failed to store session"))
		return
	}

	response.Created(w, map[string]interface{}{
		"sessionId":  sess.ID,
		"shopDomain": shopDomain,
	})
}

// Delete handles DELETE /api/v1/sessions
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	shopDomain := middleware.GetShopDomain(r.Context())

	if err := h.sessions.Delete(r.Context(), model.OfflineSessionID(shopDomain)); err != nil {
		response.Error(w, apierror.InternalError("failed to delete session"))
		return
	}
	response.NoContent(w)
}
