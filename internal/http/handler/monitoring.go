package handler

import (
	"strings"
	"time"

	"ars-backend/internal/config"
	"ars-backend/internal/models"
	"ars-backend/internal/realtime"

	"github.com/gofiber/fiber/v2"
)

var serverStart = time.Now()

// HealthCheck - liveness plus DB/Redis reachability, 503 when either is down
func HealthCheck(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := config.DB.Ping(); err != nil {
		dbStatus = "down"
	}

	redisStatus := "ok"
	if err := config.Redis.Ping(config.Ctx).Err(); err != nil {
		redisStatus = "down"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "ok" || redisStatus != "ok" {
		status = fiber.StatusServiceUnavailable
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":         overall,
		"database":       dbStatus,
		"redis":          redisStatus,
		"uptime_seconds": int64(time.Since(serverStart).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSystemStats - dashboard counters (admin/manager)
func GetSystemStats(c *fiber.Ctx) error {
	stats := fiber.Map{}

	counters := []struct {
		key   string
		query string
	}{
		{"total_users", "SELECT COUNT(*) FROM users WHERE is_active = 1"},
		{"total_scenarios", "SELECT COUNT(*) FROM scenarios"},
		{"active_scenarios", "SELECT COUNT(*) FROM scenarios WHERE status = 'active'"},
		{"total_voice_actors", "SELECT COUNT(*) FROM voice_actors WHERE is_active = 1"},
		{"ready_voice_models", "SELECT COUNT(*) FROM voice_models WHERE status = 'ready'"},
		{"total_generations", "SELECT COUNT(*) FROM tts_generations"},
		{"pending_generations", "SELECT COUNT(*) FROM tts_generations WHERE status IN ('pending', 'processing')"},
		{"total_files", "SELECT COUNT(*) FROM files"},
	}

	for _, counter := range counters {
		var count int
		if err := config.DB.QueryRow(counter.query).Scan(&count); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to collect stats",
			})
		}
		stats[counter.key] = count
	}

	stats["active_simulations"] = Simulations.Count()
	stats["websocket_clients"] = realtime.Generations.ClientCount()

	// Per-status generation counters kept in Redis by the worker pool.
	for _, genStatus := range []string{"processing", "completed", "failed"} {
		val, err := config.Redis.Get(config.Ctx, "tts:generations:"+genStatus).Int64()
		if err == nil {
			stats["generations_"+genStatus+"_since_start"] = val
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    stats,
	})
}

// GetAuditLogs - admin-only, filterable trail of every mutating request
func GetAuditLogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := []string{"1=1"}
	args := []interface{}{}

	if userID := c.Query("user_id"); userID != "" {
		where = append(where, "user_id = ?")
		args = append(args, userID)
	}
	if action := c.Query("action"); action != "" {
		where = append(where, "action = ?")
		args = append(args, action)
	}
	if resourceType := c.Query("resource_type"); resourceType != "" {
		where = append(where, "resource_type = ?")
		args = append(args, resourceType)
	}
	if from := c.Query("from"); from != "" {
		where = append(where, "created_at >= ?")
		args = append(args, from)
	}
	if to := c.Query("to"); to != "" {
		where = append(where, "created_at <= ?")
		args = append(args, to)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM audit_logs WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count audit logs",
		})
	}

	query := `
		SELECT id, user_id, action, resource_type, resource_id, old_values, new_values, ip_address, user_agent, created_at
		FROM audit_logs
		WHERE ` + whereClause + `
		ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := config.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch audit logs",
		})
	}
	defer rows.Close()

	logs := []models.AuditLogResponse{}
	for rows.Next() {
		var entry models.AuditLog
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Action, &entry.ResourceType, &entry.ResourceID,
			&entry.OldValues, &entry.NewValues, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt,
		)
		if err != nil {
			continue
		}
		logs = append(logs, models.ToAuditLogResponse(entry))
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    logs,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}
