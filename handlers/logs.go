package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetAuditLogs devuelve las últimas entradas del audit log, con filtro
// opcional por nivel (?log_level=) y límite (?limit=). Sólo admin.
func (h *Handler) GetAuditLogs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	level := c.Query("log_level")

	logs, err := h.Audit.Recent(c.Context(), level, limit)
	if err != nil {
		return respondErr(c, 500, "F40", "failed to fetch audit logs")
	}

	return respondOK(c, 200, "S40", fiber.Map{
		"logs":  logs,
		"total": len(logs),
	})
}
