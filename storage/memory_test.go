package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
	"github.com/SIMHADRI-1817/Smart-Clinic/scheduling"
)

func seedAppointment(t *testing.T, m *Memory, patient, doctor, date, timeSlot string) *models.Appointment {
	t.Helper()
	appt := &models.Appointment{
		PatientName: patient,
		DoctorName:  doctor,
		Date:        date,
		Time:        timeSlot,
	}
	if err := m.CreateIfFree(context.Background(), appt); err != nil {
		t.Fatalf("seeding appointment failed: %v", err)
	}
	return appt
}

func TestCreateIfFreeConflict(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seedAppointment(t, m, "Asha Verma", "Dr. Neha Sharma", "2025-01-10", "09:00")

	err := m.CreateIfFree(ctx, &models.Appointment{
		PatientName: "Ravi Kumar",
		DoctorName:  "Dr. Neha Sharma",
		Date:        "2025-01-10",
		Time:        "09:00",
	})
	if !errors.Is(err, scheduling.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	appts, err := m.All(ctx)
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("conflicting insert must not be stored, got %d appointments", len(appts))
	}
}

func TestCreateIfFreeIgnoresCancelled(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	appt := seedAppointment(t, m, "Asha Verma", "Dr. Neha Sharma", "2025-01-10", "09:00")
	if err := m.Cancel(ctx, appt.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	err := m.CreateIfFree(ctx, &models.Appointment{
		PatientName: "Ravi Kumar",
		DoctorName:  "Dr. Neha Sharma",
		Date:        "2025-01-10",
		Time:        "09:00",
	})
	if err != nil {
		t.Fatalf("cancelled appointment must free the slot, got %v", err)
	}
}

func TestRescheduleIfFreeExcludesSelf(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	appt := seedAppointment(t, m, "Asha Verma", "Dr. Neha Sharma", "2025-01-10", "09:00")

	// Moverse a su propio slot no es conflicto
	if err := m.RescheduleIfFree(ctx, appt.ID, "Dr. Neha Sharma", "2025-01-10", "09:00"); err != nil {
		t.Fatalf("rescheduling to the same slot must succeed, got %v", err)
	}

	other := seedAppointment(t, m, "Ravi Kumar", "Dr. Neha Sharma", "2025-01-10", "09:30")
	err := m.RescheduleIfFree(ctx, other.ID, "Dr. Neha Sharma", "2025-01-10", "09:00")
	if !errors.Is(err, scheduling.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	if err := m.RescheduleIfFree(ctx, 999, "Dr. Neha Sharma", "2025-01-10", "10:00"); !errors.Is(err, scheduling.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckInQueueMaxPlusOne(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := seedAppointment(t, m, "Asha Verma", "Dr. Neha Sharma", "2025-01-10", "09:00")
	second := seedAppointment(t, m, "Ravi Kumar", "Dr. Neha Sharma", "2025-01-10", "09:30")

	n, err := m.CheckIn(ctx, first.ID)
	if err != nil || n != 1 {
		t.Fatalf("expected queue number 1, got %d (%v)", n, err)
	}

	// La cancelación conserva el turno, así que el siguiente es 2
	if err := m.Cancel(ctx, first.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	n, err = m.CheckIn(ctx, second.ID)
	if err != nil || n != 2 {
		t.Fatalf("expected queue number 2 after cancellation, got %d (%v)", n, err)
	}
}

func TestTakenTimesExcludesCancelled(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	kept := seedAppointment(t, m, "Asha Verma", "Dr. Neha Sharma", "2025-01-10", "09:00")
	dropped := seedAppointment(t, m, "Ravi Kumar", "Dr. Neha Sharma", "2025-01-10", "09:30")
	if err := m.Cancel(ctx, dropped.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := m.CheckIn(ctx, kept.ID); err != nil {
		t.Fatalf("check-in failed: %v", err)
	}

	times, err := m.TakenTimes(ctx, "Dr. Neha Sharma", "2025-01-10")
	if err != nil {
		t.Fatalf("taken times failed: %v", err)
	}
	if len(times) != 1 || times[0] != "09:00" {
		t.Fatalf("expected only the checked_in slot, got %v", times)
	}
}

func TestListSortedByDateTime(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seedAppointment(t, m, "A", "Dr. Neha Sharma", "2025-01-11", "09:00")
	seedAppointment(t, m, "B", "Dr. Neha Sharma", "2025-01-10", "14:00")
	seedAppointment(t, m, "C", "Dr. Neha Sharma", "2025-01-10", "09:30")

	appts, err := m.List(ctx, models.AppointmentFilter{})
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if len(appts) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(appts))
	}
	want := []string{"C", "B", "A"}
	for i, w := range want {
		if appts[i].PatientName != w {
			t.Errorf("position %d: expected %q, got %q", i, w, appts[i].PatientName)
		}
	}
}

func TestListFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seedAppointment(t, m, "Asha Verma", "Dr. Neha Sharma", "2025-01-10", "09:00")
	seedAppointment(t, m, "Ravi Kumar", "Dr. Arjun Mehta", "2025-01-10", "09:00")
	seedAppointment(t, m, "Asha Verma", "Dr. Neha Sharma", "2025-01-11", "09:00")

	byDate, _ := m.List(ctx, models.AppointmentFilter{Date: "2025-01-10"})
	if len(byDate) != 2 {
		t.Errorf("date filter: expected 2, got %d", len(byDate))
	}

	// Subcadena insensible a mayúsculas sobre el nombre del doctor
	byDoctor, _ := m.List(ctx, models.AppointmentFilter{DoctorContains: "neha"})
	if len(byDoctor) != 2 {
		t.Errorf("doctor substring filter: expected 2, got %d", len(byDoctor))
	}

	byPatient, _ := m.List(ctx, models.AppointmentFilter{PatientName: "Ravi Kumar"})
	if len(byPatient) != 1 {
		t.Errorf("patient filter: expected 1, got %d", len(byPatient))
	}
}

func TestStatsCounts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a := seedAppointment(t, m, "Asha Verma", "Dr. Neha Sharma", "2025-01-10", "09:00")
	b := seedAppointment(t, m, "Ravi Kumar", "Dr. Neha Sharma", "2025-01-10", "09:30")
	seedAppointment(t, m, "Meena Rao", "Dr. Neha Sharma", "2025-02-01", "09:00")

	if _, err := m.CheckIn(ctx, a.ID); err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if err := m.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	stats, err := m.Stats(ctx, "2025-01-10")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Today != 2 || stats.CheckedIn != 1 || stats.Cancelled != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestCreateUserUniqueness(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	email := "admin@clinic.local"
	if err := m.Create(ctx, &models.User{Username: "admin", FullName: "Administrator", Role: models.RoleAdmin, Email: &email}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	err := m.Create(ctx, &models.User{Username: "admin", FullName: "Impostor", Role: models.RoleAdmin})
	if !errors.Is(err, scheduling.ErrDuplicateUser) {
		t.Fatalf("duplicate username: expected ErrDuplicateUser, got %v", err)
	}

	err = m.Create(ctx, &models.User{Username: "admin2", FullName: "Other", Role: models.RoleAdmin, Email: &email})
	if !errors.Is(err, scheduling.ErrDuplicateUser) {
		t.Fatalf("duplicate email: expected ErrDuplicateUser, got %v", err)
	}

	admins, err := m.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		t.Fatalf("listing failed: %v", err)
	}
	if len(admins) != 1 {
		t.Fatalf("expected a single admin account, got %d", len(admins))
	}
}

func TestUserLookups(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u := &models.User{Username: "neha.sharma", FullName: "Dr. Neha Sharma", Role: models.RoleDoctor}
	if err := m.Create(ctx, u); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byName, err := m.GetByUsername(ctx, "neha.sharma")
	if err != nil || byName.ID != u.ID {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if _, err := m.GetByUsername(ctx, "nobody"); !errors.Is(err, scheduling.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := m.GetByID(ctx, 999); !errors.Is(err, scheduling.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMFAFlags(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	u := &models.User{Username: "asha", FullName: "Asha Verma", Role: models.RolePatient}
	if err := m.Create(ctx, u); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := m.SetMFASecret(ctx, u.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("SetMFASecret failed: %v", err)
	}
	if err := m.EnableMFA(ctx, u.ID); err != nil {
		t.Fatalf("EnableMFA failed: %v", err)
	}

	stored, err := m.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !stored.MFAEnabled || stored.MFASecret != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("MFA state not persisted: %+v", stored)
	}
}

func TestRefreshTokenLifecycle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	token := &models.RefreshToken{
		UserID:    1,
		Token:     "opaque-token",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := m.SaveRefreshToken(ctx, token); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	stored, err := m.GetRefreshToken(ctx, "opaque-token")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.IsRevoked {
		t.Fatal("token must not start revoked")
	}

	if err := m.RevokeRefreshToken(ctx, "opaque-token"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	stored, err = m.GetRefreshToken(ctx, "opaque-token")
	if err != nil {
		t.Fatalf("get after revoke failed: %v", err)
	}
	if !stored.IsRevoked {
		t.Fatal("token must be revoked")
	}

	if _, err := m.GetRefreshToken(ctx, "unknown"); !errors.Is(err, scheduling.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
