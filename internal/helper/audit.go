package helper

import (
	"encoding/json"
	"log"

	"ars-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

// WriteAuditLog records a mutation in audit_logs. Audit failures are logged
// and swallowed so they never fail the request that triggered them.
func WriteAuditLog(c *fiber.Ctx, action, resourceType, resourceID string, oldValues, newValues interface{}) {
	var userID interface{}
	if v, ok := c.Locals("user_id").(int64); ok {
		userID = v
	}

	oldJSON := marshalOrNil(oldValues)
	newJSON := marshalOrNil(newValues)

	query := `
		INSERT INTO audit_logs (user_id, action, resource_type, resource_id, old_values, new_values, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := config.DB.Exec(query,
		userID,
		action,
		resourceType,
		nilIfEmpty(resourceID),
		oldJSON,
		newJSON,
		c.IP(),
		c.Get("User-Agent"),
	)
	if err != nil {
		log.Printf("[audit] failed to record %s %s/%s: %v", action, resourceType, resourceID, err)
	}
}

func marshalOrNil(v interface{}) interface{} {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
