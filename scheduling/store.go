package scheduling

import (
	"context"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
)

// AppointmentStore es el almacén de citas. Las operaciones de escritura que
// dependen de una lectura previa (chequeo de conflicto, max+1 del número de
// turno) deben ejecutarse de forma atómica dentro de la implementación.
type AppointmentStore interface {
	// CreateIfFree inserta la cita como pending sólo si el slot
	// (doctor, date, time) no está ocupado por una cita pending o
	// checked_in. Devuelve ErrSlotTaken en caso de conflicto.
	CreateIfFree(ctx context.Context, appt *models.Appointment) error

	// RescheduleIfFree mueve la cita id al slot indicado aplicando la misma
	// regla de conflicto, excluyendo a la propia cita del chequeo.
	// Devuelve ErrNotFound o ErrSlotTaken.
	RescheduleIfFree(ctx context.Context, id int, doctor, date, timeSlot string) error

	// CheckIn marca la cita como checked_in y le asigna
	// 1 + max(queue_number) dentro de su (doctor, date). Los números de
	// turno nunca se reinician ni se reutilizan dentro de ese alcance.
	CheckIn(ctx context.Context, id int) (int, error)

	// Cancel marca la cita como cancelled sin tocar queue_number.
	// Cancelar dos veces es un no-op.
	Cancel(ctx context.Context, id int) error

	GetAppointmentByID(ctx context.Context, id int) (*models.Appointment, error)

	// TakenTimes devuelve los horarios ocupados (pending o checked_in)
	// para un (doctor, date).
	TakenTimes(ctx context.Context, doctor, date string) ([]string, error)

	// List devuelve las citas que cumplen el filtro, ordenadas por
	// (date, time).
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)

	// All devuelve todas las citas ordenadas por (date, time); la usa la
	// exportación CSV.
	All(ctx context.Context) ([]models.Appointment, error)

	Stats(ctx context.Context, today string) (models.AppointmentStats, error)
}

// UserStore es el directorio de cuentas
type UserStore interface {
	// Create inserta el usuario; devuelve ErrDuplicateUser si el username
	// o el email ya existen.
	Create(ctx context.Context, u *models.User) error

	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	ListByRole(ctx context.Context, role string) ([]models.User, error)

	SetMFASecret(ctx context.Context, userID int, secret string) error
	EnableMFA(ctx context.Context, userID int) error

	SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, token string) error
}
