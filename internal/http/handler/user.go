package handler

import (
	"database/sql"
	"strconv"
	"strings"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// GetAllUsers - list users with search, filters and pagination (admin only)
func GetAllUsers(c *fiber.Ctx) error {
	search := c.Query("search")
	role := c.Query("role")
	isActive := c.Query("is_active")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := " WHERE 1=1"
	args := []interface{}{}

	if search != "" {
		like := "%" + strings.TrimSpace(search) + "%"
		where += " AND (username LIKE ? OR email LIKE ? OR full_name LIKE ?)"
		args = append(args, like, like, like)
	}
	if role != "" {
		where += " AND role = ?"
		args = append(args, role)
	}
	if isActive != "" {
		where += " AND is_active = ?"
		args = append(args, isActive == "true")
	}

	var totalData int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM users"+where, args...).Scan(&totalData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count users",
		})
	}

	query := "SELECT " + userColumns + " FROM users" + where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch users",
		})
	}
	defer rows.Close()

	users := []models.UserResponse{}
	for rows.Next() {
		var user models.User
		err := rows.Scan(
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
		if err != nil {
			continue
		}
		users = append(users, models.ToUserResponse(user))
	}

	totalPages := (totalData + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_data":  totalData,
			"total_pages": totalPages,
		},
	})
}

// GetUserByID - fetch a single user (admin only)
func GetUserByID(c *fiber.Ctx) error {
	id := c.Params("id")

	user, err := scanUser(config.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))

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

// CreateUser - create a user account (admin only)
func CreateUser(c *fiber.Ctx) error {
	var req models.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Username == "" || req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username, email, password, full_name and role are required",
		})
	}

	if !helper.IsValidEmail(req.Email) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid email format",
		})
	}

	if !models.IsValidRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Role must be admin, manager, operator or viewer",
		})
	}

	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Password must be at least 8 characters",
		})
	}

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM users WHERE username = ? OR email = ?", req.Username, req.Email).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate user",
		})
	}

	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Username or email already in use",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash password",
		})
	}

	query := `
		INSERT INTO users (username, email, password, full_name, role, department, phone, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)
	`
	result, err := config.DB.Exec(query,
		req.Username, req.Email, string(hashedPassword), req.FullName, req.Role,
		nullableString(req.Department), nullableString(req.Phone),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	id, _ := result.LastInsertId()

	user, _ := scanUser(config.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))

	helper.WriteAuditLog(c, "create", "user", strconv.FormatInt(id, 10), nil, fiber.Map{
		"username": req.Username,
		"role":     req.Role,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created",
		"data":    models.ToUserResponse(user),
	})
}

// UpdateUser - partial update of a user (admin only)
func UpdateUser(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		FullName   string `json:"full_name"`
		Role       string `json:"role"`
		Department string `json:"department"`
		Phone      string `json:"phone"`
		IsActive   *bool  `json:"is_active"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var exists int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM users WHERE id = ?", id).Scan(&exists)
	if err != nil || exists == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	query := "UPDATE users SET "
	args := []interface{}{}
	updates := []string{}

	if req.Email != "" {
		if !helper.IsValidEmail(req.Email) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid email format",
			})
		}

		var count int
		config.DB.QueryRow("SELECT COUNT(*) FROM users WHERE email = ? AND id != ?", req.Email, id).Scan(&count)
		if count > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email already in use",
			})
		}

		updates = append(updates, "email = ?")
		args = append(args, req.Email)
	}

	if req.Password != "" {
		if len(req.Password) < 8 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Password must be at least 8 characters",
			})
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to hash password",
			})
		}
		updates = append(updates, "password = ?")
		args = append(args, string(hashedPassword))
	}

	if req.FullName != "" {
		updates = append(updates, "full_name = ?")
		args = append(args, req.FullName)
	}

	if req.Role != "" {
		if !models.IsValidRole(req.Role) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Role must be admin, manager, operator or viewer",
			})
		}
		updates = append(updates, "role = ?")
		args = append(args, req.Role)
	}

	if req.Department != "" {
		updates = append(updates, "department = ?")
		args = append(args, req.Department)
	}

	if req.Phone != "" {
		updates = append(updates, "phone = ?")
		args = append(args, req.Phone)
	}

	if req.IsActive != nil {
		updates = append(updates, "is_active = ?")
		args = append(args, *req.IsActive)
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nothing to update",
		})
	}

	query += strings.Join(updates, ", ") + " WHERE id = ?"
	args = append(args, id)

	_, err = config.DB.Exec(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update user",
		})
	}

	user, _ := scanUser(config.DB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id))

	helper.WriteAuditLog(c, "update", "user", id, nil, req)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User updated",
		"data":    models.ToUserResponse(user),
	})
}

// DeactivateUser - soft delete; the account stays for audit history
func DeactivateUser(c *fiber.Ctx) error {
	id := c.Params("id")

	result, err := config.DB.Exec("UPDATE users SET is_active = 0 WHERE id = ?", id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deactivate user",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	helper.WriteAuditLog(c, "deactivate", "user", id, nil, nil)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deactivated",
	})
}

// HardDeleteUser - permanent delete; refuses to remove the last active admin
func HardDeleteUser(c *fiber.Ctx) error {
	id, _ := strconv.ParseInt(c.Params("id"), 10, 64)

	var userRole string
	err := config.DB.QueryRow("SELECT role FROM users WHERE id = ?", id).Scan(&userRole)
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate user",
		})
	}

	if userRole == models.RoleAdmin {
		var adminCount int
		err := config.DB.QueryRow("SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active = 1").Scan(&adminCount)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to validate user",
			})
		}
		if adminCount <= 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Cannot delete the last active admin",
			})
		}
	}

	result, err := config.DB.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete user",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	helper.WriteAuditLog(c, "delete", "user", c.Params("id"), nil, nil)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User permanently deleted",
	})
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
