package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// SendOTPHandler mails a one-time login code.
func (h *Handler) SendOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.OTP.Send(r.Context(), req.Email); err != nil {
		h.fail(w, err, "Failed to send code")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

// VerifyOTPHandler exchanges a valid code for a bearer token and a session.
func (h *Handler) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	login, err := h.OTP.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		h.fail(w, err, "Failed to verify code")
		return
	}
	if h.Sessions != nil {
		if err := h.Sessions.Login(w, r, login.UserID); err != nil {
			h.Log.Warn("failed to save session after otp login", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, login)
}
