package handlers

import (
	"encoding/csv"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
)

// GetStats entrega los contadores del panel de administración: total de
// citas, citas de hoy, llegadas registradas y cancelaciones.
func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats, err := h.Core.Stats(c.Context())
	if err != nil {
		return domainErr(c, "F30", err)
	}

	return respondOK(c, 200, "S30", fiber.Map{
		"stats": stats,
	})
}

// ReceptionList es el listado del mostrador, filtrable por fecha exacta
// (?date=) y subcadena del nombre del doctor (?doctor=). Sin filtros
// muestra la agenda de hoy.
func (h *Handler) ReceptionList(c *fiber.Ctx) error {
	filter := models.AppointmentFilter{
		Date:           c.Query("date"),
		DoctorContains: c.Query("doctor"),
	}

	appts, err := h.Core.ReceptionList(c.Context(), filter)
	if err != nil {
		return domainErr(c, "F31", err)
	}

	return respondOK(c, 200, "S31", fiber.Map{
		"appointments": appts,
		"total":        len(appts),
	})
}

// ExportAppointmentsCSV exporta todas las citas ordenadas por (fecha, hora)
// como archivo CSV plano.
func (h *Handler) ExportAppointmentsCSV(c *fiber.Ctx) error {
	appts, err := h.Core.Export(c.Context())
	if err != nil {
		return domainErr(c, "F32", err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="appointments.csv"`)

	w := csv.NewWriter(c.Response().BodyWriter())
	if err := w.Write([]string{"id", "patient_name", "doctor_name", "date", "time", "status"}); err != nil {
		return err
	}
	for _, appt := range appts {
		record := []string{
			strconv.Itoa(appt.ID),
			appt.PatientName,
			appt.DoctorName,
			appt.Date,
			appt.Time,
			appt.Status,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
