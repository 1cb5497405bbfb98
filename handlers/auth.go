package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/SIMHADRI-1817/Smart-Clinic/middleware"
	"github.com/SIMHADRI-1817/Smart-Clinic/models"
	"github.com/SIMHADRI-1817/Smart-Clinic/scheduling"
)

const refreshTokenTTL = 7 * 24 * time.Hour

// Register crea una cuenta nueva. El username y el email son únicos; un
// duplicado devuelve 409 sin crear nada.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Username == "" || req.FullName == "" || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "username, full name and password are required",
		})
	}
	if !models.ValidRoles[req.Role] {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid role",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to process password",
		})
	}

	user := &models.User{
		Username:  req.Username,
		FullName:  req.FullName,
		Password:  string(hashed),
		Role:      req.Role,
		CreatedAt: time.Now(),
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		user.Email = &email
	}
	if req.Role == models.RoleDoctor {
		if spec := strings.TrimSpace(req.Specialization); spec != "" {
			user.Specialization = &spec
		}
	}

	if err := h.Users.Create(c.Context(), user); err != nil {
		if errors.Is(err, scheduling.ErrDuplicateUser) {
			return c.Status(409).JSON(fiber.Map{
				"error": "username or email is already registered",
			})
		}
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to create user",
		})
	}

	h.Audit.Event(models.LogLevelSuccess, "user registered", user.Username, user.Role,
		map[string]interface{}{"user_id": user.ID, "action": "user_registered"})

	return c.Status(201).JSON(fiber.Map{
		"message": "user registered successfully",
		"user":    user.PublicView(),
	})
}

// Login autentica por username/password (más código TOTP si la cuenta tiene
// MFA habilitado) y devuelve el par de tokens.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	user, err := h.Users.GetByUsername(c.Context(), req.Username)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{
			"error": "invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(401).JSON(fiber.Map{
			"error": "invalid credentials",
		})
	}

	if user.MFAEnabled {
		if req.MFACode == "" {
			return c.Status(401).JSON(fiber.Map{
				"error":        "MFA code required",
				"requires_mfa": true,
			})
		}
		if !totp.Validate(req.MFACode, user.MFASecret) {
			return c.Status(401).JSON(fiber.Map{
				"error": "invalid MFA code",
			})
		}
	}

	accessToken, err := middleware.GenerateJWT(user)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	refresh := &models.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
		CreatedAt: time.Now(),
	}
	if err := h.Users.SaveRefreshToken(c.Context(), refresh); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to persist session",
		})
	}

	return c.JSON(models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    int(middleware.AccessTokenTTL.Seconds()),
		User:         user.PublicView(),
	})
}

// RefreshToken rota el refresh token y emite un access token nuevo
func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "refresh_token is required",
		})
	}

	stored, err := h.Users.GetRefreshToken(c.Context(), req.RefreshToken)
	if err != nil || stored.IsRevoked || time.Now().After(stored.ExpiresAt) {
		return c.Status(401).JSON(fiber.Map{
			"error": "invalid or expired refresh token",
		})
	}

	user, err := h.Users.GetByID(c.Context(), stored.UserID)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{
			"error": "invalid refresh token",
		})
	}

	accessToken, err := middleware.GenerateJWT(user)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to generate token",
		})
	}

	// Rotación: el token usado queda revocado y se emite uno nuevo
	if err := h.Users.RevokeRefreshToken(c.Context(), stored.Token); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to rotate refresh token",
		})
	}
	next := &models.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
		CreatedAt: time.Now(),
	}
	if err := h.Users.SaveRefreshToken(c.Context(), next); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to persist session",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  accessToken,
		"refresh_token": next.Token,
		"expires_in":    int(middleware.AccessTokenTTL.Seconds()),
	})
}

// Logout revoca el refresh token entregado
func (h *Handler) Logout(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "refresh_token is required",
		})
	}
	if err := h.Users.RevokeRefreshToken(c.Context(), req.RefreshToken); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to revoke token",
		})
	}
	return c.JSON(fiber.Map{
		"message": "session closed",
	})
}

// Profile devuelve el perfil del usuario autenticado
func (h *Handler) Profile(c *fiber.Ctx) error {
	actor := identityFromCtx(c)
	user, err := h.Users.GetByID(c.Context(), actor.UserID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "user not found",
		})
	}
	return c.JSON(user.PublicView())
}

// MFASetup genera el secreto TOTP para la cuenta autenticada. Exige la
// contraseña actual antes de entregar el secreto.
func (h *Handler) MFASetup(c *fiber.Ctx) error {
	var req models.MFASetupRequest
	if err := c.BodyParser(&req); err != nil || req.Password == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "password is required",
		})
	}

	actor := identityFromCtx(c)
	user, err := h.Users.GetByID(c.Context(), actor.UserID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "user not found",
		})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(401).JSON(fiber.Map{
			"error": "invalid credentials",
		})
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Smart Clinic",
		AccountName: user.Username,
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to generate MFA secret",
		})
	}
	if err := h.Users.SetMFASecret(c.Context(), user.ID, key.Secret()); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to store MFA secret",
		})
	}

	return c.JSON(models.MFASetupResponse{
		Secret:    key.Secret(),
		QRCodeURL: key.URL(),
	})
}

// MFAVerify confirma el primer código y habilita MFA para la cuenta
func (h *Handler) MFAVerify(c *fiber.Ctx) error {
	var req models.MFAVerifyRequest
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "code is required",
		})
	}

	actor := identityFromCtx(c)
	user, err := h.Users.GetByID(c.Context(), actor.UserID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "user not found",
		})
	}
	if user.MFASecret == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "MFA setup has not been started",
		})
	}
	if !totp.Validate(req.Code, user.MFASecret) {
		return c.Status(401).JSON(fiber.Map{
			"error": "invalid MFA code",
		})
	}
	if err := h.Users.EnableMFA(c.Context(), user.ID); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to enable MFA",
		})
	}

	h.Audit.Event(models.LogLevelInfo, "MFA enabled", user.Username, user.Role,
		map[string]interface{}{"user_id": user.ID, "action": "mfa_enabled"})

	return c.JSON(fiber.Map{
		"message": "MFA enabled successfully",
	})
}
