package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
	"github.com/SIMHADRI-1817/Smart-Clinic/pkg/metrics"
	"github.com/SIMHADRI-1817/Smart-Clinic/scheduling"
)

// BookAppointment reserva un slot. Los pacientes reservan a su nombre;
// recepción y admin indican el paciente en el formulario. Un slot ocupado
// por una cita pending o checked_in devuelve 409.
func (h *Handler) BookAppointment(c *fiber.Ctx) error {
	var req models.BookAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, 400, "F20", "invalid request body")
	}

	actor := identityFromCtx(c)
	appt, err := h.Core.Book(c.Context(), actor, req)
	if err != nil {
		if errors.Is(err, scheduling.ErrSlotTaken) {
			metrics.BookingConflicts.Inc()
		}
		return domainErr(c, "F20", err)
	}

	metrics.AppointmentsBooked.Inc()
	h.Audit.Event(models.LogLevelSuccess, "appointment booked", actor.Username, actor.Role,
		map[string]interface{}{
			"appointment_id": appt.ID,
			"patient_name":   appt.PatientName,
			"doctor_name":    appt.DoctorName,
			"date":           appt.Date,
			"time":           appt.Time,
			"action":         "appointment_booked",
		})

	return respondOK(c, 201, "S20", fiber.Map{
		"message":     "appointment booked successfully",
		"appointment": appt,
	})
}

// ListAppointments lista citas acotadas al rol: los pacientes ven las
// suyas, los doctores su propia agenda y recepción/admin todas.
func (h *Handler) ListAppointments(c *fiber.Ctx) error {
	filter := models.AppointmentFilter{
		Date:           c.Query("date"),
		DoctorContains: c.Query("doctor"),
	}

	actor := identityFromCtx(c)
	appts, err := h.Core.List(c.Context(), actor, filter)
	if err != nil {
		return domainErr(c, "F21", err)
	}

	return respondOK(c, 200, "S21", fiber.Map{
		"appointments": appts,
		"total":        len(appts),
	})
}

// GetAppointment devuelve una cita por id
func (h *Handler) GetAppointment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return respondErr(c, 400, "F21", "invalid appointment id")
	}

	actor := identityFromCtx(c)
	appt, err := h.Core.Get(c.Context(), actor, id)
	if err != nil {
		return domainErr(c, "F21", err)
	}

	return respondOK(c, 200, "S21", fiber.Map{
		"appointment": appt,
	})
}

// EditAppointment reprograma una cita pendiente. Aplica la misma regla de
// conflicto que la reserva pero excluyendo a la propia cita, así que moverla
// a su slot actual siempre es válido.
func (h *Handler) EditAppointment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return respondErr(c, 400, "F22", "invalid appointment id")
	}

	var req models.EditAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondErr(c, 400, "F22", "invalid request body")
	}

	actor := identityFromCtx(c)
	appt, err := h.Core.Edit(c.Context(), actor, id, req)
	if err != nil {
		return domainErr(c, "F22", err)
	}

	h.Audit.Event(models.LogLevelInfo, "appointment rescheduled", actor.Username, actor.Role,
		map[string]interface{}{
			"appointment_id": appt.ID,
			"doctor_name":    appt.DoctorName,
			"date":           appt.Date,
			"time":           appt.Time,
			"action":         "appointment_rescheduled",
		})

	return respondOK(c, 200, "S22", fiber.Map{
		"message":     "appointment updated successfully",
		"appointment": appt,
	})
}

// CheckInAppointment registra la llegada del paciente y asigna el siguiente
// número de turno del (doctor, fecha). Los números nunca se reinician ni se
// reutilizan dentro de ese alcance.
func (h *Handler) CheckInAppointment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return respondErr(c, 400, "F23", "invalid appointment id")
	}

	actor := identityFromCtx(c)
	appt, err := h.Core.CheckIn(c.Context(), actor, id)
	if err != nil {
		return domainErr(c, "F23", err)
	}

	metrics.CheckIns.Inc()
	h.Audit.Event(models.LogLevelSuccess, "patient checked in", actor.Username, actor.Role,
		map[string]interface{}{
			"appointment_id": appt.ID,
			"queue_number":   appt.QueueNumber,
			"action":         "patient_checked_in",
		})

	return respondOK(c, 200, "S23", fiber.Map{
		"message":      "patient checked in",
		"appointment":  appt,
		"queue_number": appt.QueueNumber,
	})
}

// CancelAppointment cancela una cita. Es idempotente, conserva el número de
// turno ya asignado y libera el slot para nuevas reservas.
func (h *Handler) CancelAppointment(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return respondErr(c, 400, "F24", "invalid appointment id")
	}

	actor := identityFromCtx(c)
	if err := h.Core.Cancel(c.Context(), actor, id); err != nil {
		return domainErr(c, "F24", err)
	}

	metrics.Cancellations.Inc()
	h.Audit.Event(models.LogLevelInfo, "appointment cancelled", actor.Username, actor.Role,
		map[string]interface{}{
			"appointment_id": id,
			"action":         "appointment_cancelled",
		})

	return respondOK(c, 200, "S24", fiber.Map{
		"message": "appointment cancelled",
	})
}
