package handlers

import (
	"net/http"

	"autonomeal/auth"
	"autonomeal/utils"

	"go.uber.org/zap"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func LoginHandler(w http.ResponseWriter, r *http.Request, svc *auth.Service, secureCookies bool, logger *zap.Logger) {
	sess := SessionFrom(r.Context())
	if sess.Authenticated() {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "username": sess.Username})
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, logger, err)
		return
	}

	next, err := svc.Login(r.Context(), sess, req.Username, req.Password)
	if err != nil {
		writeError(w, r, logger, err)
		return
	}

	utils.SetSessionCookie(w, next, secureCookies)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"username": next.Username,
		"message":  auth.MsgLoginOK,
	})
}

func SignupHandler(w http.ResponseWriter, r *http.Request, svc *auth.Service, secureCookies bool, logger *zap.Logger) {
	sess := SessionFrom(r.Context())
	if sess.Authenticated() {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "username": sess.Username})
		return
	}

	var req auth.SignupInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, logger, err)
		return
	}

	next, err := svc.Signup(r.Context(), sess, req)
	if err != nil {
		writeError(w, r, logger, err)
		return
	}

	utils.SetSessionCookie(w, next, secureCookies)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"username": next.Username,
		"message":  auth.MsgSignupOK,
	})
}

func LogOutHandler(w http.ResponseWriter, r *http.Request, svc *auth.Service, secureCookies bool) {
	svc.Logout(r.Context(), SessionFrom(r.Context()))
	utils.ClearSessionCookie(w, secureCookies)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": auth.MsgLogoutOK,
	})
}

func CheckAuthHandler(w http.ResponseWriter, r *http.Request) {
	ok, username := auth.CheckAuth(SessionFrom(r.Context()))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      username,
	})
}
