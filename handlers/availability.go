package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// DoctorAvailability es el endpoint JSON que alimenta el dropdown de
// horarios del formulario de reserva: ?doctor=...&date=... devuelve la
// enumeración fija menos los slots ocupados. Faltando cualquiera de los
// parámetros responde 400.
func (h *Handler) DoctorAvailability(c *fiber.Ctx) error {
	doctor := c.Query("doctor")
	date := c.Query("date")
	if doctor == "" || date == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "doctor and date query parameters are required",
		})
	}

	times, err := h.Core.CheckAvailability(c.Context(), doctor, date)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "failed to check availability",
		})
	}

	return c.JSON(fiber.Map{
		"available_times": times,
	})
}
