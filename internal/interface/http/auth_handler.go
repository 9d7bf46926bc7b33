package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	appauth "curema-crm/internal/application/auth"
	authDomain "curema-crm/internal/domain/auth"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	bundle, err := s.authSvc.Login(c.Request.Context(), body.Username, body.Password, s.clientMeta(c))
	if err != nil {
		// 失敗原因不區分，避免帳號列舉。
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid username or password", "error_code": errCodeInvalidCredentials})
		return
	}

	c.JSON(http.StatusOK, bundleResponse(bundle))
}

func (s *Server) handleRefresh(c *gin.Context) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "refreshToken required", "error_code": errCodeBadRequest})
		return
	}

	bundle, err := s.authSvc.Refresh(c.Request.Context(), body.RefreshToken, s.clientMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, authDomain.ErrTokenExpired):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "refresh token expired", "error_code": errCodeTokenExpired})
		case errors.Is(err, authDomain.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "account disabled", "error_code": errCodeAccountDisabled})
		case errors.Is(err, authDomain.ErrTokenNotFound), errors.Is(err, authDomain.ErrTokenRevoked):
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid refresh token", "error_code": errCodeUnauthorized})
		default:
			log.Printf("[HTTP] refresh failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "refresh failed", "error_code": errCodeInternal})
		}
		return
	}

	c.JSON(http.StatusOK, bundleResponse(bundle))
}

func (s *Server) handleLogout(c *gin.Context) {
	var body struct {
		SessionID    string `json:"sessionId"`
		RefreshToken string `json:"refreshToken"`
	}
	// 登出不挑剔輸入：body 缺漏或格式錯誤都照樣回成功。
	_ = c.ShouldBindJSON(&body)

	s.authSvc.Logout(c.Request.Context(), body.SessionID, body.RefreshToken)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "logged out"})
}

func (s *Server) handleLogoutAll(c *gin.Context) {
	principal := currentPrincipal(c)
	if err := s.authSvc.LogoutAll(c.Request.Context(), principal.Username); err != nil {
		log.Printf("[HTTP] logout-all for %s failed: %v", principal.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "logout-all failed", "error_code": errCodeInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "all sessions terminated"})
}

func (s *Server) handleRegister(c *gin.Context) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	user, err := s.authSvc.Register(c.Request.Context(), appauth.RegisterInput{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, authDomain.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "username already taken", "error_code": errCodeUsernameTaken})
		case errors.Is(err, authDomain.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "email already registered", "error_code": errCodeEmailTaken})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": userResponse(user)})
}

func (s *Server) handleValidate(c *gin.Context) {
	principal := currentPrincipal(c)
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"valid":    true,
		"username": principal.Username,
	})
}

func (s *Server) handleProfile(c *gin.Context) {
	principal := currentPrincipal(c)
	user, err := s.authSvc.UserByUsername(c.Request.Context(), principal.Username)
	if err != nil {
		if errors.Is(err, authDomain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found", "error_code": errCodeNotFound})
			return
		}
		log.Printf("[HTTP] profile lookup for %s failed: %v", principal.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "profile lookup failed", "error_code": errCodeInternal})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": userResponse(user)})
}

func bundleResponse(b authDomain.TokenBundle) gin.H {
	return gin.H{
		"success":      true,
		"accessToken":  b.AccessToken,
		"refreshToken": b.RefreshToken,
		"tokenType":    b.TokenType,
		"expiresIn":    b.ExpiresIn,
		"sessionId":    b.SessionID,
		"issuedAt":     b.IssuedAt.Format(time.RFC3339),
		"expiresAt":    b.ExpiresAt.Format(time.RFC3339),
		"user":         userResponse(b.User),
	}
}

func userResponse(u authDomain.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
		"enabled":  u.Enabled,
	}
}
