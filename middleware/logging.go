package middleware

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SIMHADRI-1817/Smart-Clinic/models"
)

// AuditLogger registra cada petición y los eventos de dominio en la tabla
// audit_logs. Recibe el pool por parámetro; con db nil (modo en memoria)
// se vuelve un no-op.
type AuditLogger struct {
	db *pgxpool.Pool
}

// NewAuditLogger crea el logger sobre un pool explícito (puede ser nil)
func NewAuditLogger(db *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{db: db}
}

// Middleware captura y registra todas las peticiones HTTP
func (a *AuditLogger) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if a.db == nil {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()
		responseTime := int(time.Since(start).Milliseconds())

		entry := a.entryFromCtx(c, responseTime)
		// Guardar en base de datos de forma asíncrona
		go a.save(entry)

		return err
	}
}

// Event registra un evento de dominio (reserva, check-in, cancelación...)
func (a *AuditLogger) Event(level, message, username, role string, fields map[string]interface{}) {
	if a.db == nil {
		return
	}

	entry := models.AuditLog{
		Method:      "EVENT",
		Path:        "/event",
		StatusCode:  200,
		IP:          "127.0.0.1",
		LogLevel:    level,
		Environment: environment(),
	}
	if username != "" {
		entry.Username = &username
	}
	if role != "" {
		entry.Role = &role
	}

	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["message"] = message
	if body, err := json.Marshal(fields); err == nil {
		bodyStr := string(body)
		entry.Body = &bodyStr
	}

	go a.save(entry)
}

// Recent devuelve las últimas entradas, opcionalmente filtradas por nivel
func (a *AuditLogger) Recent(ctx context.Context, level string, limit int) ([]models.AuditLog, error) {
	if a.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT id, method, path, status_code, response_time, ip, user_agent,
	                 username, role, body, log_level, environment, created_at
	          FROM audit_logs`
	var args []interface{}
	if level != "" {
		query += " WHERE log_level = $1"
		args = append(args, level)
	}
	query += " ORDER BY id DESC LIMIT " + strconv.Itoa(limit)

	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		err := rows.Scan(&l.ID, &l.Method, &l.Path, &l.StatusCode, &l.ResponseTime,
			&l.IP, &l.UserAgent, &l.Username, &l.Role, &l.Body, &l.LogLevel,
			&l.Environment, &l.CreatedAt)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (a *AuditLogger) entryFromCtx(c *fiber.Ctx, responseTime int) models.AuditLog {
	entry := models.AuditLog{
		Method:       c.Method(),
		Path:         c.Path(),
		StatusCode:   c.Response().StatusCode(),
		ResponseTime: &responseTime,
		LogLevel:     levelForStatus(c.Response().StatusCode()),
		Environment:  environment(),
	}

	// IP real del cliente
	entry.IP = c.IP()
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		entry.IP = strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}

	if ua := c.Get("User-Agent"); ua != "" {
		entry.UserAgent = &ua
	}

	// Claims del usuario autenticado, si los hay
	if username, ok := c.Locals("username").(string); ok && username != "" {
		entry.Username = &username
	}
	if role, ok := c.Locals("user_role").(string); ok && role != "" {
		entry.Role = &role
	}

	// Body sólo para métodos con cuerpo, con campos sensibles filtrados
	if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
		if body := string(c.Body()); body != "" {
			filtered := filterSensitiveData(body)
			entry.Body = &filtered
		}
	}

	return entry
}

func (a *AuditLogger) save(entry models.AuditLog) {
	_, err := a.db.Exec(context.Background(),
		`INSERT INTO audit_logs (method, path, status_code, response_time, ip,
		                         user_agent, username, role, body, log_level,
		                         environment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		entry.Method, entry.Path, entry.StatusCode, entry.ResponseTime, entry.IP,
		entry.UserAgent, entry.Username, entry.Role, entry.Body, entry.LogLevel,
		entry.Environment, time.Now())
	if err != nil {
		log.Printf("audit log insert failed: %v", err)
	}
}

// filterSensitiveData filtra información sensible del body
func filterSensitiveData(body string) string {
	sensitiveFields := []string{"password", "mfa_code", "secret", "token", "refresh_token"}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		if len(body) > 1000 {
			return body[:1000] + "...[truncated]"
		}
		return body
	}

	for _, field := range sensitiveFields {
		if _, exists := data[field]; exists {
			data[field] = "[FILTERED]"
		}
	}

	filteredJSON, _ := json.Marshal(data)
	filtered := string(filteredJSON)
	if len(filtered) > 1000 {
		return filtered[:1000] + "...[truncated]"
	}
	return filtered
}

// levelForStatus determina el nivel de log según el status code
func levelForStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return models.LogLevelSuccess
	case statusCode >= 300 && statusCode < 400:
		return models.LogLevelInfo
	case statusCode >= 400 && statusCode < 500:
		return models.LogLevelWarning
	case statusCode >= 500:
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

func environment() string {
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		return env
	}
	return models.EnvironmentDevelopment
}
