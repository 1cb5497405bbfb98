package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
)

const dateLayout = "2006-01-02"

// Identity son los claims del usuario autenticado; los handlers la
// construyen desde el token y la pasan explícitamente a cada operación.
type Identity struct {
	UserID   int
	Username string
	FullName string
	Role     string
}

// Acciones mutantes sujetas a la política de autorización
const (
	ActionBook    = "book"
	ActionEdit    = "edit"
	ActionCheckIn = "checkin"
	ActionCancel  = "cancel"
)

// Permitted es la política de autorización única del sistema:
// (rol del actor, identidad del actor, dueño del recurso) → permitido.
// Editar exige ser recepción/admin o el paciente dueño de la cita;
// check-in y cancelación sólo están habilitados por rol, sin chequeo de
// propiedad (los pacientes cancelan a través de recepción).
func Permitted(actor Identity, action, ownerName string) bool {
	switch action {
	case ActionBook:
		return actor.Role == models.RolePatient ||
			actor.Role == models.RoleReception ||
			actor.Role == models.RoleAdmin
	case ActionEdit:
		if actor.Role == models.RoleReception || actor.Role == models.RoleAdmin {
			return true
		}
		return actor.Role == models.RolePatient && actor.FullName == ownerName
	case ActionCheckIn, ActionCancel:
		return actor.Role == models.RoleReception || actor.Role == models.RoleAdmin
	default:
		return false
	}
}

// Core implementa la lógica de agenda sobre un AppointmentStore explícito
type Core struct {
	appts AppointmentStore
}

// NewCore crea el núcleo de agenda
func NewCore(appts AppointmentStore) *Core {
	return &Core{appts: appts}
}

// CheckAvailability devuelve los horarios libres para un (doctor, fecha):
// la enumeración fija menos los slots con citas pending o checked_in.
func (c *Core) CheckAvailability(ctx context.Context, doctor, date string) ([]string, error) {
	if strings.TrimSpace(doctor) == "" || strings.TrimSpace(date) == "" {
		return nil, ErrValidation.WithMessage("doctor and date are required")
	}
	taken, err := c.appts.TakenTimes(ctx, doctor, date)
	if err != nil {
		return nil, err
	}
	return remainingTimes(taken), nil
}

// Book reserva un slot para un paciente. Si el actor es un paciente, la cita
// queda siempre a su propio nombre; recepción y admin reservan en nombre del
// paciente indicado en el formulario.
func (c *Core) Book(ctx context.Context, actor Identity, req models.BookAppointmentRequest) (*models.Appointment, error) {
	if !Permitted(actor, ActionBook, "") {
		return nil, ErrForbidden
	}

	patient := strings.TrimSpace(req.PatientName)
	if actor.Role == models.RolePatient {
		patient = actor.FullName
	}

	if err := validateSlotFields(patient, req.DoctorName, req.Date, req.Time); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		PatientName: patient,
		DoctorName:  strings.TrimSpace(req.DoctorName),
		Date:        strings.TrimSpace(req.Date),
		Time:        strings.TrimSpace(req.Time),
		Status:      models.StatusPending,
		CreatedAt:   time.Now(),
	}
	if err := c.appts.CreateIfFree(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// Edit reprograma una cita existente aplicando la misma regla de conflicto
// que la reserva, excluyendo a la propia cita (moverla a su slot actual es
// válido). Sólo el paciente dueño, recepción o admin pueden editar.
func (c *Core) Edit(ctx context.Context, actor Identity, id int, req models.EditAppointmentRequest) (*models.Appointment, error) {
	appt, err := c.appts.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Permitted(actor, ActionEdit, appt.PatientName) {
		return nil, ErrForbidden
	}
	if err := validateSlotFields(appt.PatientName, req.DoctorName, req.Date, req.Time); err != nil {
		return nil, err
	}
	if err := c.appts.RescheduleIfFree(ctx, id, strings.TrimSpace(req.DoctorName),
		strings.TrimSpace(req.Date), strings.TrimSpace(req.Time)); err != nil {
		return nil, err
	}
	return c.appts.GetAppointmentByID(ctx, id)
}

// CheckIn registra la llegada del paciente: asigna el siguiente número de
// turno dentro del (doctor, fecha) de la cita y la marca checked_in.
func (c *Core) CheckIn(ctx context.Context, actor Identity, id int) (*models.Appointment, error) {
	if !Permitted(actor, ActionCheckIn, "") {
		return nil, ErrForbidden
	}
	if _, err := c.appts.CheckIn(ctx, id); err != nil {
		return nil, err
	}
	return c.appts.GetAppointmentByID(ctx, id)
}

// Cancel marca la cita como cancelada. Es idempotente y conserva el número
// de turno ya asignado; el slot queda reutilizable.
func (c *Core) Cancel(ctx context.Context, actor Identity, id int) error {
	if !Permitted(actor, ActionCancel, "") {
		return ErrForbidden
	}
	return c.appts.Cancel(ctx, id)
}

// Get devuelve una cita visible para el actor
func (c *Core) Get(ctx context.Context, actor Identity, id int) (*models.Appointment, error) {
	appt, err := c.appts.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RolePatient:
		if appt.PatientName != actor.FullName {
			return nil, ErrForbidden
		}
	case models.RoleDoctor:
		if appt.DoctorName != actor.FullName {
			return nil, ErrForbidden
		}
	}
	return appt, nil
}

// List devuelve las citas acotadas al rol del actor: los pacientes ven las
// suyas, los doctores su propia agenda y recepción/admin todo.
func (c *Core) List(ctx context.Context, actor Identity, filter models.AppointmentFilter) ([]models.Appointment, error) {
	switch actor.Role {
	case models.RolePatient:
		filter.PatientName = actor.FullName
	case models.RoleDoctor:
		filter.DoctorName = actor.FullName
	}
	return c.appts.List(ctx, filter)
}

// ReceptionList es el listado del mostrador: filtrable por fecha exacta y
// por subcadena del nombre del doctor, con "hoy" como vista por defecto.
func (c *Core) ReceptionList(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	if filter.Date == "" && filter.DoctorContains == "" {
		filter.Date = time.Now().Format(dateLayout)
	}
	return c.appts.List(ctx, filter)
}

// Stats agrega los contadores del panel de administración
func (c *Core) Stats(ctx context.Context) (models.AppointmentStats, error) {
	stats, err := c.appts.Stats(ctx, time.Now().Format(dateLayout))
	if err != nil {
		return models.AppointmentStats{}, err
	}
	stats.GeneratedAt = time.Now()
	return stats, nil
}

// Export devuelve todas las citas ordenadas por (fecha, hora) para el CSV
func (c *Core) Export(ctx context.Context) ([]models.Appointment, error) {
	return c.appts.All(ctx)
}

func validateSlotFields(patient, doctor, date, timeSlot string) error {
	if strings.TrimSpace(patient) == "" {
		return ErrValidation.WithMessage("patient name is required")
	}
	if strings.TrimSpace(doctor) == "" {
		return ErrValidation.WithMessage("doctor name is required")
	}
	if strings.TrimSpace(date) == "" {
		return ErrValidation.WithMessage("date is required")
	}
	timeSlot = strings.TrimSpace(timeSlot)
	if timeSlot == "" {
		return ErrValidation.WithMessage("time is required")
	}
	if !IsSlotTime(timeSlot) {
		return ErrValidation.WithMessage("time is not a bookable slot")
	}
	return nil
}
