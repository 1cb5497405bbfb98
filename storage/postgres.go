package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
	"github.com/SIMHADRI-1817/Smart-Clinic/scheduling"
)

// Postgres implementa scheduling.AppointmentStore y scheduling.UserStore
// sobre un pool pgx explícito. Los read-modify-write (conflicto de slot,
// max+1 del número de turno) corren en transacciones serializables; el
// índice único parcial sobre (doctor_name, date, time) actúa de respaldo.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres crea el almacén sobre un pool ya conectado
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ---- AppointmentStore ----

func (s *Postgres) CreateIfFree(ctx context.Context, appt *models.Appointment) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var taken bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM appointments
		     WHERE doctor_name = $1 AND date = $2 AND time = $3
		       AND status IN ('pending', 'checked_in'))`,
		appt.DoctorName, appt.Date, appt.Time).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return scheduling.ErrSlotTaken
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (patient_name, doctor_name, date, time, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		appt.PatientName, appt.DoctorName, appt.Date, appt.Time,
		models.StatusPending, appt.CreatedAt).Scan(&appt.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return scheduling.ErrSlotTaken
		}
		return err
	}
	appt.Status = models.StatusPending
	return tx.Commit(ctx)
}

func (s *Postgres) RescheduleIfFree(ctx context.Context, id int, doctor, date, timeSlot string) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM appointments WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return scheduling.ErrNotFound
	}

	// La propia cita queda excluida del chequeo de conflicto.
	var taken bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM appointments
		     WHERE doctor_name = $1 AND date = $2 AND time = $3
		       AND status IN ('pending', 'checked_in')
		       AND id <> $4)`,
		doctor, date, timeSlot, id).Scan(&taken)
	if err != nil {
		return err
	}
	if taken {
		return scheduling.ErrSlotTaken
	}

	_, err = tx.Exec(ctx,
		"UPDATE appointments SET doctor_name = $1, date = $2, time = $3 WHERE id = $4",
		doctor, date, timeSlot, id)
	if err != nil {
		if isUniqueViolation(err) {
			return scheduling.ErrSlotTaken
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Postgres) CheckIn(ctx context.Context, id int) (int, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var doctor, date string
	err = tx.QueryRow(ctx,
		"SELECT doctor_name, date FROM appointments WHERE id = $1", id).Scan(&doctor, &date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, scheduling.ErrNotFound
		}
		return 0, err
	}

	// Siguiente turno dentro del (doctor, fecha); nunca se renumera.
	var queueNumber int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(queue_number), 0) + 1 FROM appointments
		 WHERE doctor_name = $1 AND date = $2`,
		doctor, date).Scan(&queueNumber)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE appointments SET status = $1, queue_number = $2 WHERE id = $3",
		models.StatusCheckedIn, queueNumber, id)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return queueNumber, nil
}

func (s *Postgres) Cancel(ctx context.Context, id int) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE appointments SET status = $1 WHERE id = $2", models.StatusCancelled, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}
	return nil
}

func (s *Postgres) GetAppointmentByID(ctx context.Context, id int) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.QueryRow(ctx,
		`SELECT id, patient_name, doctor_name, date, time, status, queue_number, created_at
		 FROM appointments WHERE id = $1`, id).Scan(
		&appt.ID, &appt.PatientName, &appt.DoctorName, &appt.Date, &appt.Time,
		&appt.Status, &appt.QueueNumber, &appt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, scheduling.ErrNotFound
		}
		return nil, err
	}
	return &appt, nil
}

func (s *Postgres) TakenTimes(ctx context.Context, doctor, date string) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT time FROM appointments
		 WHERE doctor_name = $1 AND date = $2 AND status IN ('pending', 'checked_in')`,
		doctor, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (s *Postgres) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	query := `SELECT id, patient_name, doctor_name, date, time, status, queue_number, created_at
	          FROM appointments`
	var conditions []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, strings.Replace(cond, "?", placeholder(len(args)), 1))
	}

	if filter.Date != "" {
		add("date = ?", filter.Date)
	}
	if filter.DoctorContains != "" {
		add("doctor_name ILIKE ?", "%"+filter.DoctorContains+"%")
	}
	if filter.PatientName != "" {
		add("patient_name = ?", filter.PatientName)
	}
	if filter.DoctorName != "" {
		add("doctor_name = ?", filter.DoctorName)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date, time"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func (s *Postgres) All(ctx context.Context) ([]models.Appointment, error) {
	return s.List(ctx, models.AppointmentFilter{})
}

func (s *Postgres) Stats(ctx context.Context, today string) (models.AppointmentStats, error) {
	var stats models.AppointmentStats
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE date = $1),
		        COUNT(*) FILTER (WHERE status = 'checked_in'),
		        COUNT(*) FILTER (WHERE status = 'cancelled')
		 FROM appointments`, today).Scan(
		&stats.Total, &stats.Today, &stats.CheckedIn, &stats.Cancelled)
	if err != nil {
		return models.AppointmentStats{}, err
	}
	return stats, nil
}

func scanAppointments(rows pgx.Rows) ([]models.Appointment, error) {
	var appts []models.Appointment
	for rows.Next() {
		var appt models.Appointment
		err := rows.Scan(&appt.ID, &appt.PatientName, &appt.DoctorName, &appt.Date,
			&appt.Time, &appt.Status, &appt.QueueNumber, &appt.CreatedAt)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// ---- UserStore ----

func (s *Postgres) Create(ctx context.Context, u *models.User) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
		     SELECT 1 FROM users
		     WHERE username = $1 OR ($2::text IS NOT NULL AND email = $2))`,
		u.Username, u.Email).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return scheduling.ErrDuplicateUser
	}

	err = s.db.QueryRow(ctx,
		`INSERT INTO users (username, full_name, email, password, role, specialization, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		u.Username, u.FullName, u.Email, u.Password, u.Role, u.Specialization,
		u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return scheduling.ErrDuplicateUser
		}
		return err
	}
	return nil
}

func (s *Postgres) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "username = $1", username)
}

func (s *Postgres) GetByID(ctx context.Context, id int) (*models.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

func (s *Postgres) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, username, full_name, email, password, role, specialization,
		        mfa_enabled, COALESCE(mfa_secret, ''), created_at
		 FROM users WHERE `+where, arg).Scan(
		&u.ID, &u.Username, &u.FullName, &u.Email, &u.Password, &u.Role,
		&u.Specialization, &u.MFAEnabled, &u.MFASecret, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, scheduling.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Postgres) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, username, full_name, email, password, role, specialization,
		        mfa_enabled, COALESCE(mfa_secret, ''), created_at
		 FROM users WHERE role = $1 ORDER BY full_name`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.Password,
			&u.Role, &u.Specialization, &u.MFAEnabled, &u.MFASecret, &u.CreatedAt)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Postgres) SetMFASecret(ctx context.Context, userID int, secret string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE users SET mfa_secret = $1 WHERE id = $2", secret, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrUserNotFound
	}
	return nil
}

func (s *Postgres) EnableMFA(ctx context.Context, userID int) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE users SET mfa_enabled = TRUE WHERE id = $1", userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrUserNotFound
	}
	return nil
}

func (s *Postgres) SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at, created_at, is_revoked)
		 VALUES ($1, $2, $3, $4, FALSE) RETURNING id`,
		t.UserID, t.Token, t.ExpiresAt, t.CreatedAt).Scan(&t.ID)
}

func (s *Postgres) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, token, expires_at, created_at, is_revoked
		 FROM refresh_tokens WHERE token = $1`, token).Scan(
		&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.CreatedAt, &t.IsRevoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, scheduling.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Postgres) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE refresh_tokens SET is_revoked = TRUE WHERE token = $1", token)
	return err
}
