package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
)

// ListDoctors devuelve el directorio de doctores para el formulario de
// reserva (nombre y especialización).
func (h *Handler) ListDoctors(c *fiber.Ctx) error {
	doctors, err := h.Users.ListByRole(c.Context(), models.RoleDoctor)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to list doctors",
		})
	}

	out := make([]models.UserResponse, 0, len(doctors))
	for i := range doctors {
		out = append(out, doctors[i].PublicView())
	}

	return c.JSON(fiber.Map{
		"doctors": out,
		"total":   len(out),
	})
}
