package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/layer-3/minigate/core"
	"github.com/layer-3/minigate/ports"
	"github.com/layer-3/minigate/service"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "minigate_session"

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	identities  ports.IdentityStore
	log         *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, identities ports.IdentityStore, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		identities:  identities,
		log:         log,
	}
}

type nonceRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	ChainID    int64  `json:"chain_id" binding:"omitempty,min=1,max=2147483647"`
}

type signInRequest struct {
	Message       string `json:"message" binding:"required"`
	Signature     string `json:"signature" binding:"required"`
	Identifier    string `json:"identifier" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required"`
	ChainID       int64  `json:"chain_id" binding:"omitempty,min=1,max=2147483647"`
	Email         string `json:"email" binding:"omitempty,email"`
	User          struct {
		Username  string `json:"username"`
		AvatarURL string `json:"avatar_url"`
	} `json:"user"`
}

type userResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Image           string    `json:"image,omitempty"`
	VerifiedAddress string    `json:"verified_address"`
	PersonVerified  bool      `json:"person_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

func toUserResponse(u *core.User) userResponse {
	return userResponse{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Image:           u.Image,
		VerifiedAddress: u.VerifiedAddress,
		PersonVerified:  u.PersonVerified,
		CreatedAt:       u.CreatedAt,
	}
}

// Nonce handles the challenge nonce request
func (h *AuthHandlers) Nonce(c *gin.Context) {
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "BAD_REQUEST"})
		return
	}
	if req.ChainID == 0 {
		req.ChainID = 1
	}

	challenge, err := h.authService.RequestNonce(c.Request.Context(), req.Identifier, req.ChainID)
	if err != nil {
		h.log.Error("nonce issuance failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create nonce", "code": "INTERNAL_SERVER_ERROR"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"nonce": challenge.Nonce})
}

// SignIn handles the sign-in submission
func (h *AuthHandlers) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "code": "BAD_REQUEST"})
		return
	}
	if req.ChainID == 0 {
		req.ChainID = 1
	}

	result, err := h.authService.SignIn(c.Request.Context(), service.SignInInput{
		Message:    req.Message,
		Signature:  req.Signature,
		Identifier: req.Identifier,
		Address:    req.WalletAddress,
		ChainID:    req.ChainID,
		Email:      req.Email,
		Profile: core.Profile{
			Username: req.User.Username,
			Avatar:   req.User.AvatarURL,
		},
	})
	if err != nil {
		status, code, msg := classify(err)
		c.JSON(status, gin.H{"error": msg, "code": code})
		return
	}

	// The mini-app runs embedded cross-origin, so the cookie must be
	// delivered cross-site.
	c.SetSameSite(http.SameSiteNoneMode)
	maxAge := int(time.Until(result.Session.ExpiresAt) / time.Second)
	c.SetCookie(SessionCookieName, result.Session.Token, maxAge, "/", "", true, true)

	c.JSON(http.StatusOK, gin.H{
		"token":   result.Session.Token,
		"success": true,
		"user":    toUserResponse(result.User),
	})
}

// Me returns the authenticated user and its linked wallets
func (h *AuthHandlers) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.identities.FindUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user", "code": "UNAUTHORIZED"})
		return
	}

	wallets, err := h.identities.ListWallets(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("list wallets failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL_SERVER_ERROR"})
		return
	}

	type walletResponse struct {
		Address   string `json:"address"`
		ChainID   string `json:"chain_id"`
		IsPrimary bool   `json:"is_primary"`
	}
	out := make([]walletResponse, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, walletResponse{Address: w.Address, ChainID: w.ChainID, IsPrimary: w.IsPrimary})
	}

	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user), "wallets": out})
}

// classify maps domain errors to HTTP status codes and machine-readable codes.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, core.ErrInvalidAddress):
		return http.StatusBadRequest, "BAD_REQUEST", "invalid wallet address"
	case errors.Is(err, core.ErrEmailRequired):
		return http.StatusBadRequest, "BAD_REQUEST_EMAIL_REQUIRED", "email is required when anonymous sign-in is disabled"
	case errors.Is(err, core.ErrNonceExpiredOrMissing):
		return http.StatusUnauthorized, "UNAUTHORIZED_INVALID_OR_EXPIRED_NONCE", "invalid or expired nonce"
	case errors.Is(err, core.ErrInvalidSignature):
		return http.StatusUnauthorized, "UNAUTHORIZED_INVALID_SIGNATURE", "invalid signature"
	case errors.Is(err, core.ErrSessionCreation):
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "internal error"
	default:
		return http.StatusUnauthorized, "UNAUTHORIZED", "something went wrong, please try again later"
	}
}
