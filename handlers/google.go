package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"yapper/apperr"
	"yapper/models"
	"yapper/store"
)

var googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

const maxUsernameAttempts = 4

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Aud     string `json:"aud"`
}

func (h *Handler) googleOAuthConfig() *oauth2.Config {
	if h.cfg.GoogleClientID == "" || h.cfg.GoogleClientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		RedirectURL:  h.cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// GoogleAuthURL starts the redirect OAuth flow.
func (h *Handler) GoogleAuthURL(c *gin.Context) {
	conf := h.googleOAuthConfig()
	if conf == nil {
		h.respondError(c, apperr.New(apperr.Upstream, "Google sign-in is not configured"))
		return
	}
	state := primitive.NewObjectID().Hex()
	c.JSON(http.StatusOK, gin.H{"url": conf.AuthCodeURL(state, oauth2.AccessTypeOffline)})
}

// GoogleCallback exchanges the authorization code and signs the user in.
func (h *Handler) GoogleCallback(c *gin.Context) {
	conf := h.googleOAuthConfig()
	if conf == nil {
		h.respondError(c, apperr.New(apperr.Upstream, "Google sign-in is not configured"))
		return
	}
	code := c.Query("code")
	if code == "" {
		h.respondError(c, apperr.New(apperr.Validation, "Missing authorization code"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Authentication, "Google authorization failed", err))
		return
	}

	client := conf.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Failed to fetch Google profile", err))
		return
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Failed to decode Google profile", err))
		return
	}

	h.signInGoogleUser(c, info)
}

// GoogleCredential signs in with an ID token from Google One Tap or the
// sign-in button. The token is verified against Google's tokeninfo
// endpoint, including the audience.
func (h *Handler) GoogleCredential(c *gin.Context) {
	var req struct {
		Credential string `json:"credential" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(apperr.Validation, "Missing Google credential"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	endpoint := googleTokenInfoURL + "?id_token=" + url.QueryEscape(req.Credential)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Google verification failed", err))
		return
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Google verification failed", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		h.respondError(c, apperr.New(apperr.Authentication, "Invalid Google credential"))
		return
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Google verification failed", err))
		return
	}
	if h.cfg.GoogleClientID != "" && info.Aud != h.cfg.GoogleClientID {
		h.respondError(c, apperr.New(apperr.Authentication, "Google credential audience mismatch"))
		return
	}

	h.signInGoogleUser(c, info)
}

// signInGoogleUser finds or creates the account for a verified Google
// identity, then issues a session token.
func (h *Handler) signInGoogleUser(c *gin.Context, info googleUserInfo) {
	if info.Email == "" {
		h.respondError(c, apperr.New(apperr.Validation, "Email not provided by Google"))
		return
	}
	email := strings.ToLower(info.Email)

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		created := models.User{
			ID:             primitive.NewObjectID(),
			Username:       usernameFromEmail(email),
			Email:          email,
			AuthProvider:   "google",
			GoogleID:       &info.Sub,
			ProfilePicture: info.Picture,
			Communities:    []primitive.ObjectID{},
			CreatedAt:      time.Now().Unix(),
		}
		var createErr error
		for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
			createErr = h.users.Create(ctx, &created)
			if !errors.Is(createErr, store.ErrDuplicate) {
				break
			}
			created.Username = fmt.Sprintf("%s%d", usernameBase(email), time.Now().UnixNano()%1e9)
		}
		if createErr != nil {
			h.respondError(c, apperr.Wrap(apperr.Upstream, "Failed to create user account", createErr))
			return
		}
		user = &created

	case err != nil:
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Server error", err))
		return

	default:
		if user.GoogleID == nil && info.Sub != "" {
			if err := h.users.LinkGoogle(ctx, user.ID, info.Sub, info.Picture); err != nil {
				h.logger.Warn().Err(err).Str("user", user.ID.Hex()).Msg("link google identity")
			}
		}
	}

	h.issueSession(c, http.StatusOK, user)
}

// usernameFromEmail derives a valid username from the address local part,
// padded with the current time when too short.
func usernameFromEmail(email string) string {
	username := usernameBase(email)
	if len(username) < 8 {
		username = fmt.Sprintf("%s%d", username, time.Now().UnixNano()%1e9)
	}
	return username
}

func usernameBase(email string) string {
	local := strings.SplitN(email, "@", 2)[0]
	var b strings.Builder
	for _, r := range strings.ToLower(local) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
