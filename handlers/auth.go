package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"yapper/apperr"
	"yapper/middleware"
	"yapper/models"
	"yapper/store"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9]{8,}$`)

type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	EmailOrUsername string `json:"emailOrUsername" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// validPassword requires at least 8 characters with a lowercase letter,
// an uppercase letter, a digit and a special character.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune("@$!%*?&", r):
			special = true
		}
	}
	return lower && upper && digit && special
}

func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(apperr.Validation, "Invalid signup payload"))
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		h.respondError(c, apperr.New(apperr.Validation, "Invalid username format"))
		return
	}
	if !validPassword(req.Password) {
		h.respondError(c, apperr.New(apperr.Validation, "Invalid password format"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.users.FindByUsername(ctx, req.Username); err == nil {
		h.respondError(c, apperr.New(apperr.Validation, "Username is already taken"))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error creating user", err))
		return
	}
	if _, err := h.users.FindByEmail(ctx, strings.ToLower(req.Email)); err == nil {
		h.respondError(c, apperr.New(apperr.Validation, "Email is already in use"))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error creating user", err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error creating user", err))
		return
	}
	hashed := string(hash)

	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: &hashed,
		AuthProvider: "password",
		Communities:  []primitive.ObjectID{},
		CreatedAt:    time.Now().Unix(),
	}
	if err := h.users.Create(ctx, &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Unique index beat the lookups in a race.
			h.respondError(c, apperr.New(apperr.Validation, "Username or email is already in use"))
			return
		}
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Error creating user", err))
		return
	}

	h.issueSession(c, http.StatusCreated, &user)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, apperr.New(apperr.Validation, "Please provide email/username and password"))
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.FindByEmailOrUsername(ctx, req.EmailOrUsername)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(c, apperr.New(apperr.Authentication, "Invalid credentials"))
			return
		}
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Server error", err))
		return
	}
	if user.PasswordHash == nil {
		h.respondError(c, apperr.New(apperr.Authentication, "Account uses Google sign-in"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		h.respondError(c, apperr.New(apperr.Authentication, "Invalid credentials"))
		return
	}

	h.issueSession(c, http.StatusOK, user)
}

func (h *Handler) Me(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	user, err := h.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.respondError(c, apperr.New(apperr.NotFound, "User not found"))
			return
		}
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Server error", err))
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) issueSession(c *gin.Context, status int, user *models.User) {
	token, err := middleware.IssueToken(h.cfg.JWTSecret, user.ID.Hex(), h.cfg.TokenTTL)
	if err != nil {
		h.respondError(c, apperr.Wrap(apperr.Upstream, "Failed to generate token", err))
		return
	}
	c.JSON(status, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID.Hex(),
			"username": user.Username,
			"email":    user.Email,
		},
	})
}
