package handler

import (
	"database/sql"
	"time"

	"ars-backend/internal/config"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

const userColumns = `id, username, email, password, full_name, role, department, phone, is_active, last_login_at, created_at, updated_at`

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.FullName,
		&user.Role,
		&user.Department,
		&user.Phone,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// Login authenticates by username or email and issues an access/refresh
// token pair.
func Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username and password are required",
		})
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? OR email = ?`
	user, err := scanUser(config.DB.QueryRow(query, req.Username, req.Username))

	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid username or password",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	if !user.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Account is deactivated",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid username or password",
		})
	}

	accessToken, err := config.GenerateAccessToken(user.ID, user.Username, user.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	refreshToken, err := config.GenerateRefreshToken(user.ID, user.Username, user.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	now := time.Now()
	config.DB.Exec("UPDATE users SET last_login_at = ? WHERE id = ?", now, user.ID)
	user.LastLoginAt = sql.NullTime{Time: now, Valid: true}

	return c.JSON(models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    config.GetEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30) * 60,
		User:         models.ToUserResponse(user),
	})
}

// Refresh swaps a valid refresh token for a new access token.
func Refresh(c *fiber.Ctx) error {
	var req models.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "refresh_token is required",
		})
	}

	claims, err := config.ValidateToken(req.RefreshToken, config.TokenTypeRefresh)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}

	// Re-check the account; it may have been deactivated since the token
	// was issued.
	var isActive bool
	var role string
	err = config.DB.QueryRow("SELECT is_active, role FROM users WHERE id = ?", claims.UserID).Scan(&isActive, &role)
	if err == sql.ErrNoRows || (err == nil && !isActive) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found or deactivated",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}

	accessToken, err := config.GenerateAccessToken(claims.UserID, claims.Username, role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"access_token": accessToken,
		"token_type":   "bearer",
		"expires_in":   config.GetEnvInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30) * 60,
	})
}

func Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Successfully logged out",
	})
}

// Me returns the authenticated user's profile.
func Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(int64)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(config.DB.QueryRow(query, userID))

	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch user",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.ToUserResponse(user),
	})
}
