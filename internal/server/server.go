package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"filevault/internal/app"
	"filevault/internal/util"
	"filevault/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	MaxUploadBytes int64
	TrustedProxies *util.TrustedProxies
}

// Server exposes the HTTP surface of the file-storage service.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	maxUploadBytes int64
	trustedProxies *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
		trustedProxies: cfg.TrustedProxies,
	}
	s.routes()
	return s
}

// Router returns the configured handler with ambient middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)

	// files (auth required)
	s.mux.Handle("/api/files/upload", s.authenticated(s.handleUpload))
	s.mux.Handle("/api/files/list", s.authenticated(s.handleList))
	s.mux.Handle("/api/files/download/", s.authenticated(s.handleDownload))
	s.mux.Handle("/api/files/delete/", s.authenticated(s.handleDelete))
	s.mux.Handle("/api/files/info/", s.authenticated(s.handleInfo))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			s.audit(r, "auth.token", "fail", "reason", "missing_token")
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid token")
			return
		}
		user, ok := s.app.UserFromToken(token)
		if !ok {
			s.audit(r, "auth.token", "fail", "reason", "invalid_token")
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid token")
			return
		}
		next(w, r, user)
	})
}

// auth handlers
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.register", "fail", "reason", err.Error())
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "auth.register", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "auth.login", "fail", "reason", err.Error())
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "auth.login", "success", "user_id", user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// file handlers
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "uploaded payload exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "validation", "no file provided")
		return
	}
	payload, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", "no file provided")
		return
	}
	defer payload.Close()

	mimeType := header.Header.Get("Content-Type")
	file, err := s.app.Upload(r.Context(), user.ID, header.Filename, mimeType, header.Size, payload)
	if err != nil {
		s.audit(r, "files.upload", "fail", "user_id", user.ID, "reason", err.Error())
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "files.upload", "success", "user_id", user.ID, "file_id", file.ID, "size", file.SizeBytes)
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message: "file uploaded",
		File:    file,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	fileID, ok := pathID(r, "/api/files/download/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	file, rc, err := s.app.Download(r.Context(), user.ID, fileID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	defer rc.Close()

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", contentDisposition(file.OriginalName))
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are gone; nothing left to do but log.
		slog.Warn("download stream interrupted", "file_id", file.ID, "err", err)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	files, usage, err := s.app.List(user.ID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Files:        files,
		StorageUsage: usage.UsedBytes,
		StorageLimit: usage.LimitBytes,
		FileCount:    usage.FileCount,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	fileID, ok := pathID(r, "/api/files/delete/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := s.app.Delete(r.Context(), user.ID, fileID); err != nil {
		s.audit(r, "files.delete", "fail", "user_id", user.ID, "file_id", fileID, "reason", err.Error())
		s.writeAppError(w, err)
		return
	}
	s.audit(r, "files.delete", "success", "user_id", user.ID, "file_id", fileID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "file deleted"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	fileID, ok := pathID(r, "/api/files/info/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	file, err := s.app.Info(user.ID, fileID)
	if err != nil {
		s.writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "validation", "method not allowed")
}

func pathID(r *http.Request, prefix string) (string, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func contentDisposition(name string) string {
	// Quote-unsafe characters would break the header; strip them.
	name = strings.NewReplacer("\"", "", "\r", "", "\n", "").Replace(name)
	return `attachment; filename="` + name + `"`
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type uploadResponse struct {
	Message string      `json:"message"`
	File    domain.File `json:"file"`
}

type listResponse struct {
	Files        []domain.File `json:"files"`
	StorageUsage int64         `json:"storageUsage"`
	StorageLimit int64         `json:"storageLimit"`
	FileCount    int           `json:"fileCount"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the single-message error body plus a machine-readable
// taxonomy code, without changing the transport status codes.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

// writeAppError maps the core failure kinds onto transport status codes.
func (s *Server) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, domain.ErrEmailTaken):
		// 400 matches the original behavior; the code field carries the kind.
		writeError(w, http.StatusBadRequest, "conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, http.StatusRequestEntityTooLarge, "quota_exceeded", err.Error())
	case errors.Is(err, domain.ErrStorageWrite), errors.Is(err, domain.ErrStorageRead):
		writeError(w, http.StatusInternalServerError, "storage", "storage failure")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
		"request_id", util.RequestIDFromRequest(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return domain.StorageLimitBytes
	}
	return value
}
