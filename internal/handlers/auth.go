package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/liamwears/reelwrapped/internal/database"
	"github.com/liamwears/reelwrapped/internal/middleware"
	"github.com/liamwears/reelwrapped/internal/models"
	"github.com/liamwears/reelwrapped/internal/services"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubAPIURL      = "https://api.github.com"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	accounts       Accounts
	sessions       Sessions
	authMiddleware *middleware.AuthMiddleware
	googleConfig   *oauth2.Config
	githubConfig   *oauth2.Config
	googleUserInfo string
	githubAPI      string
	renderer       *Renderer
	logger         *log.Logger
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
	CallbackHost       string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	accounts Accounts,
	sessions Sessions,
	authMiddleware *middleware.AuthMiddleware,
	renderer *Renderer,
	cfg AuthConfig,
	logger *log.Logger,
) *AuthHandler {
	ghConfig := &oauth2.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		RedirectURL:  fmt.Sprintf("%s/auth/github/callback", cfg.CallbackHost),
		Scopes:       []string{"user:email"},
		Endpoint:     github.Endpoint,
	}

	googleConfig := &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  fmt.Sprintf("%s/auth/google/callback", cfg.CallbackHost),
		Scopes:       []string{"profile", "email"},
		Endpoint:     google.Endpoint,
	}

	return &AuthHandler{
		accounts:       accounts,
		sessions:       sessions,
		authMiddleware: authMiddleware,
		renderer:       renderer,
		logger:         logger,
		googleConfig:   googleConfig,
		githubConfig:   ghConfig,
		googleUserInfo: googleUserInfoURL,
		githubAPI:      githubAPIURL,
	}
}

type authPage struct {
	Error         string
	Username      string
	GoogleEnabled bool
	GitHubEnabled bool
}

func (h *AuthHandler) page(username, errMsg string) authPage {
	return authPage{
		Error:         errMsg,
		Username:      username,
		GoogleEnabled: h.googleConfig.ClientID != "",
		GitHubEnabled: h.githubConfig.ClientID != "",
	}
}

// startSession stores a new session for user and hands the cookie to the client
func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	sessionID, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		return err
	}
	h.authMiddleware.SetSessionCookie(w, sessionID)
	return nil
}

// LoginPage displays the login page
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderPage(w, "login.html", h.page("", ""))
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	user, err := h.accounts.Authenticate(r.Context(), username, password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.renderer.RenderPage(w, "login.html", h.page(username, "Invalid credentials"))
		return
	}
	if err != nil {
		h.logger.Printf("Failed to authenticate %q: %v", username, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.logger.Printf("Failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/movies", http.StatusSeeOther)
}

// RegisterPage displays the registration page
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderPage(w, "register.html", h.page("", ""))
}

// Register handles POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	if err := services.ValidateRegistration(username, password, r.PostFormValue("confirm")); err != nil {
		msg := "Username and password are required"
		if errors.Is(err, services.ErrPasswordMismatch) {
			msg = "Passwords mismatch"
		}
		h.renderer.RenderPage(w, "register.html", h.page(username, msg))
		return
	}

	user, err := h.accounts.Register(r.Context(), username, password)
	if errors.Is(err, services.ErrUserExists) {
		h.renderer.RenderPage(w, "register.html", h.page(username, "User exists"))
		return
	}
	if err != nil {
		h.logger.Printf("Failed to register %q: %v", username, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.logger.Printf("Failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/movies", http.StatusSeeOther)
}

// APIRegister handles POST /api/register
func (h *AuthHandler) APIRegister(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))

	_, err := h.accounts.Register(r.Context(), username, r.PostFormValue("password"))
	switch {
	case errors.Is(err, services.ErrMissingCredentials):
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	case errors.Is(err, services.ErrUserExists):
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	case err != nil:
		h.logger.Printf("Failed to register %q: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	writeJSON(w, http.StatusOK, statusMessage{Status: "ok", Message: "User created"})
}

// APILogin handles POST /api/login and sets the session cookie on success
func (h *AuthHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))

	user, err := h.accounts.Authenticate(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, services.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.logger.Printf("Failed to authenticate %q: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.logger.Printf("Failed to create session: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "username": user.Username})
}

// redirectToProvider issues a single-use state token and sends the browser
// to the provider's consent page.
func (h *AuthHandler) redirectToProvider(w http.ResponseWriter, r *http.Request, cfg *oauth2.Config, opts ...oauth2.AuthCodeOption) {
	if cfg.ClientID == "" {
		http.NotFound(w, r)
		return
	}

	state, err := h.sessions.NewState(r.Context())
	if err != nil {
		h.logger.Printf("Failed to generate state token: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, cfg.AuthCodeURL(state, opts...), http.StatusTemporaryRedirect)
}

// exchange checks the state token and trades the code for an access token
func (h *AuthHandler) exchange(w http.ResponseWriter, r *http.Request, cfg *oauth2.Config) (*oauth2.Token, bool) {
	err := h.sessions.ConsumeState(r.Context(), r.URL.Query().Get("state"))
	if errors.Is(err, database.ErrStateMismatch) {
		http.Error(w, "Invalid OAuth state", http.StatusBadRequest)
		return nil, false
	}
	if err != nil {
		h.logger.Printf("Failed to check OAuth state: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "No code provided", http.StatusBadRequest)
		return nil, false
	}

	token, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Printf("Failed to exchange code: %v", err)
		http.Error(w, "Failed to exchange code", http.StatusInternalServerError)
		return nil, false
	}

	return token, true
}

// finishOAuth links the provider identity to a user and signs them in
func (h *AuthHandler) finishOAuth(w http.ResponseWriter, r *http.Request, providerID string, provider models.Provider, email, name string) {
	user, err := h.accounts.FindOrCreate(r.Context(), providerID, provider, email, name)
	if err != nil {
		h.logger.Printf("Failed to find or create user: %v", err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	if err := h.startSession(w, r, user); err != nil {
		h.logger.Printf("Failed to create session: %v", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/movies", http.StatusSeeOther)
}

// GoogleLogin initiates Google OAuth flow
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.redirectToProvider(w, r, h.googleConfig, oauth2.AccessTypeOffline)
}

// GoogleCallback handles Google OAuth callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	token, ok := h.exchange(w, r, h.googleConfig)
	if !ok {
		return
	}

	client := h.googleConfig.Client(r.Context(), token)
	resp, err := client.Get(h.googleUserInfo)
	if err != nil {
		h.logger.Printf("Failed to get user info: %v", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var userInfo struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		h.logger.Printf("Failed to decode user info: %v", err)
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	h.finishOAuth(w, r, userInfo.ID, models.ProviderGoogle, userInfo.Email, userInfo.Name)
}

// GitHubLogin initiates GitHub OAuth flow
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	h.redirectToProvider(w, r, h.githubConfig)
}

// GitHubCallback handles GitHub OAuth callback
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	token, ok := h.exchange(w, r, h.githubConfig)
	if !ok {
		return
	}

	client := h.githubConfig.Client(r.Context(), token)
	resp, err := client.Get(h.githubAPI + "/user")
	if err != nil {
		h.logger.Printf("Failed to get user info: %v", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var userInfo struct {
		ID    int    `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		h.logger.Printf("Failed to decode user info: %v", err)
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	// GitHub leaves email empty when it is private
	if userInfo.Email == "" {
		userInfo.Email = h.primaryGitHubEmail(client)
	}

	if userInfo.Name == "" {
		userInfo.Name = userInfo.Login
	}

	h.finishOAuth(w, r, fmt.Sprintf("%d", userInfo.ID), models.ProviderGitHub, userInfo.Email, userInfo.Name)
}

func (h *AuthHandler) primaryGitHubEmail(client *http.Client) string {
	resp, err := client.Get(h.githubAPI + "/user/emails")
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	var emails []struct {
		Email   string `json:"email"`
		Primary bool   `json:"primary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return ""
	}
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	return ""
}

// Logout handles user logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := h.authMiddleware.SessionID(r); ok {
		if err := h.sessions.Delete(r.Context(), sessionID); err != nil {
			h.logger.Printf("Failed to delete session: %v", err)
		}
	}

	h.authMiddleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
