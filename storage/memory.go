package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
	"github.com/SIMHADRI-1817/Smart-Clinic/scheduling"
)

// Memory es una implementación en memoria de los almacenes, usada en los
// tests y como modo de desarrollo cuando no hay DATABASE_URL configurada.
// Un único mutex serializa cada operación, así que los read-modify-write
// son atómicos igual que las transacciones del almacén Postgres.
type Memory struct {
	mu sync.Mutex

	appts      map[int]*models.Appointment
	nextApptID int

	users      map[int]*models.User
	nextUserID int

	refreshTokens map[string]*models.RefreshToken
	nextTokenID   int
}

// NewMemory crea los almacenes vacíos
func NewMemory() *Memory {
	return &Memory{
		appts:         make(map[int]*models.Appointment),
		nextApptID:    1,
		users:         make(map[int]*models.User),
		nextUserID:    1,
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func occupies(a *models.Appointment) bool {
	return a.Status == models.StatusPending || a.Status == models.StatusCheckedIn
}

// ---- AppointmentStore ----

func (m *Memory) CreateIfFree(ctx context.Context, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.appts {
		if occupies(existing) && existing.DoctorName == appt.DoctorName &&
			existing.Date == appt.Date && existing.Time == appt.Time {
			return scheduling.ErrSlotTaken
		}
	}

	appt.ID = m.nextApptID
	m.nextApptID++
	appt.Status = models.StatusPending
	stored := *appt
	m.appts[appt.ID] = &stored
	return nil
}

func (m *Memory) RescheduleIfFree(ctx context.Context, id int, doctor, date, timeSlot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.appts[id]
	if !ok {
		return scheduling.ErrNotFound
	}
	for _, existing := range m.appts {
		if existing.ID != id && occupies(existing) && existing.DoctorName == doctor &&
			existing.Date == date && existing.Time == timeSlot {
			return scheduling.ErrSlotTaken
		}
	}
	appt.DoctorName = doctor
	appt.Date = date
	appt.Time = timeSlot
	return nil
}

func (m *Memory) CheckIn(ctx context.Context, id int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.appts[id]
	if !ok {
		return 0, scheduling.ErrNotFound
	}

	max := 0
	for _, existing := range m.appts {
		if existing.DoctorName == appt.DoctorName && existing.Date == appt.Date &&
			existing.QueueNumber != nil && *existing.QueueNumber > max {
			max = *existing.QueueNumber
		}
	}
	queueNumber := max + 1
	appt.Status = models.StatusCheckedIn
	appt.QueueNumber = &queueNumber
	return queueNumber, nil
}

func (m *Memory) Cancel(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.appts[id]
	if !ok {
		return scheduling.ErrNotFound
	}
	appt.Status = models.StatusCancelled
	return nil
}

func (m *Memory) GetAppointmentByID(ctx context.Context, id int) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	appt, ok := m.appts[id]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	copied := *appt
	return &copied, nil
}

func (m *Memory) TakenTimes(ctx context.Context, doctor, date string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var times []string
	for _, appt := range m.appts {
		if occupies(appt) && appt.DoctorName == doctor && appt.Date == date {
			times = append(times, appt.Time)
		}
	}
	return times, nil
}

func (m *Memory) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var appts []models.Appointment
	for _, appt := range m.appts {
		if filter.Date != "" && appt.Date != filter.Date {
			continue
		}
		if filter.DoctorContains != "" &&
			!strings.Contains(strings.ToLower(appt.DoctorName), strings.ToLower(filter.DoctorContains)) {
			continue
		}
		if filter.PatientName != "" && appt.PatientName != filter.PatientName {
			continue
		}
		if filter.DoctorName != "" && appt.DoctorName != filter.DoctorName {
			continue
		}
		appts = append(appts, *appt)
	}
	sort.Slice(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		if appts[i].Time != appts[j].Time {
			return appts[i].Time < appts[j].Time
		}
		return appts[i].ID < appts[j].ID
	})
	return appts, nil
}

func (m *Memory) All(ctx context.Context) ([]models.Appointment, error) {
	return m.List(ctx, models.AppointmentFilter{})
}

func (m *Memory) Stats(ctx context.Context, today string) (models.AppointmentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats models.AppointmentStats
	for _, appt := range m.appts {
		stats.Total++
		if appt.Date == today {
			stats.Today++
		}
		switch appt.Status {
		case models.StatusCheckedIn:
			stats.CheckedIn++
		case models.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// ---- UserStore ----

func (m *Memory) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username {
			return scheduling.ErrDuplicateUser
		}
		if u.Email != nil && existing.Email != nil && *existing.Email == *u.Email {
			return scheduling.ErrDuplicateUser
		}
	}

	u.ID = m.nextUserID
	m.nextUserID++
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *Memory) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, scheduling.ErrUserNotFound
}

func (m *Memory) GetByID(ctx context.Context, id int) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, scheduling.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *Memory) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []models.User
	for _, u := range m.users {
		if u.Role == role {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].FullName < users[j].FullName })
	return users, nil
}

func (m *Memory) SetMFASecret(ctx context.Context, userID int, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return scheduling.ErrUserNotFound
	}
	u.MFASecret = secret
	return nil
}

func (m *Memory) EnableMFA(ctx context.Context, userID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return scheduling.ErrUserNotFound
	}
	u.MFAEnabled = true
	return nil
}

func (m *Memory) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextTokenID++
	t.ID = m.nextTokenID
	stored := *t
	m.refreshTokens[t.Token] = &stored
	return nil
}

func (m *Memory) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.refreshTokens[token]
	if !ok {
		return nil, scheduling.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *Memory) RevokeRefreshToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.refreshTokens[token]; ok {
		t.IsRevoked = true
	}
	return nil
}
