package models

import (
	"time"
)

// Appointment statuses. A slot is considered occupied while its
// appointment is pending or checked_in; cancelled frees the slot.
const (
	StatusPending   = "pending"
	StatusCheckedIn = "checked_in"
	StatusCancelled = "cancelled"
)

// Appointment representa una fila de la tabla appointments
type Appointment struct {
	ID          int       `json:"id" db:"id"`
	PatientName string    `json:"patient_name" db:"patient_name"`
	DoctorName  string    `json:"doctor_name" db:"doctor_name"`
	Date        string    `json:"date" db:"date"` // 2006-01-02
	Time        string    `json:"time" db:"time"` // 15:04, one of the bookable slots
	Status      string    `json:"status" db:"status"`
	QueueNumber *int      `json:"queue_number" db:"queue_number"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// BookAppointmentRequest representa la solicitud para reservar una cita
type BookAppointmentRequest struct {
	PatientName string `json:"patient_name"` // ignored for patients, required for reception/admin
	DoctorName  string `json:"doctor_name" validate:"required"`
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time" validate:"required"`
}

// EditAppointmentRequest reschedules an existing appointment
type EditAppointmentRequest struct {
	DoctorName string `json:"doctor_name" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Time       string `json:"time" validate:"required"`
}

// AppointmentFilter acota los listados de citas
type AppointmentFilter struct {
	Date           string // exact calendar date
	DoctorContains string // case-insensitive substring on doctor_name
	PatientName    string // exact match, used for patient-scoped listings
	DoctorName     string // exact match, used for doctor-scoped listings
}

// AppointmentStats es el resumen del panel de administración
type AppointmentStats struct {
	Total       int       `json:"total"`
	Today       int       `json:"today"`
	CheckedIn   int       `json:"checked_in"`
	Cancelled   int       `json:"cancelled"`
	GeneratedAt time.Time `json:"generated_at"`
}
