package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/SIMHADRI-1817/Smart-Clinic/handlers"
	"github.com/SIMHADRI-1817/Smart-Clinic/middleware"
	"github.com/SIMHADRI-1817/Smart-Clinic/models"
	"github.com/SIMHADRI-1817/Smart-Clinic/routes"
	"github.com/SIMHADRI-1817/Smart-Clinic/scheduling"
	"github.com/SIMHADRI-1817/Smart-Clinic/storage"
)

type testEnv struct {
	app   *fiber.App
	store *storage.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemory()
	core := scheduling.NewCore(store)
	h := handlers.New(core, store, middleware.NewAuditLogger(nil))

	app := fiber.New()
	routes.SetupRoutes(app, h)
	return &testEnv{app: app, store: store}
}

// createUser inserta la cuenta directamente en el almacén y devuelve un
// token de acceso válido para ella.
func (e *testEnv) createUser(t *testing.T, username, fullName, password, role string) (*models.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password failed: %v", err)
	}
	u := &models.User{
		Username:  username,
		FullName:  fullName,
		Password:  string(hashed),
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := e.store.Create(context.Background(), u); err != nil {
		t.Fatalf("creating user failed: %v", err)
	}

	token, err := middleware.GenerateJWT(u)
	if err != nil {
		t.Fatalf("generating token failed: %v", err)
	}
	return u, token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body failed: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decoding response failed: %v", err)
	}
}

// envelopeData extrae el primer elemento de data del envelope estándar
func envelopeData(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var env handlers.StandardResponse
	decodeJSON(t, resp, &env)
	if len(env.Body.Data) == 0 {
		t.Fatal("empty response envelope")
	}
	data, ok := env.Body.Data[0].(map[string]interface{})
	if !ok {
		t.Fatalf("unexpected envelope payload: %#v", env.Body.Data[0])
	}
	return data
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "GET", "/health", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health payload: %v", body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "GET", "/api/v1/appointments/", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = env.request(t, "GET", "/api/v1/appointments/", "not-a-token", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 with a bogus token, got %d", resp.StatusCode)
	}
}

func TestRegisterAndDuplicate(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]string{
		"username":  "asha",
		"full_name": "Asha Verma",
		"password":  "secret123",
		"role":      models.RolePatient,
	}
	resp := env.request(t, "POST", "/api/v1/auth/register", "", payload)
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.request(t, "POST", "/api/v1/auth/register", "", payload)
	if resp.StatusCode != 409 {
		t.Fatalf("duplicate username: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	payload["username"] = "mystery"
	payload["role"] = "superuser"
	resp = env.request(t, "POST", "/api/v1/auth/register", "", payload)
	if resp.StatusCode != 400 {
		t.Fatalf("invalid role: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLoginIssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "asha", "Asha Verma", "secret123", models.RolePatient)

	resp := env.request(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "asha", "password": "secret123",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var login models.LoginResponse
	decodeJSON(t, resp, &login)
	if login.AccessToken == "" || login.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}
	if login.User.Username != "asha" {
		t.Fatalf("unexpected user in login response: %+v", login.User)
	}

	resp = env.request(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "asha", "password": "wrong",
	})
	if resp.StatusCode != 401 {
		t.Fatalf("wrong password: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRefreshTokenRotation(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "asha", "Asha Verma", "secret123", models.RolePatient)

	resp := env.request(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "asha", "password": "secret123",
	})
	var login models.LoginResponse
	decodeJSON(t, resp, &login)

	resp = env.request(t, "POST", "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("refresh: expected 200, got %d", resp.StatusCode)
	}
	var rotated map[string]interface{}
	decodeJSON(t, resp, &rotated)
	if rotated["access_token"] == "" || rotated["refresh_token"] == login.RefreshToken {
		t.Fatalf("expected a rotated token pair: %v", rotated)
	}

	// El token usado queda revocado
	resp = env.request(t, "POST", "/api/v1/auth/refresh", "", map[string]string{
		"refresh_token": login.RefreshToken,
	})
	if resp.StatusCode != 401 {
		t.Fatalf("reused refresh token: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDoctorAvailabilityEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, "GET", "/api/doctor_availability", "", nil)
	if resp.StatusCode != 400 {
		t.Fatalf("missing params: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.request(t, "GET", "/api/doctor_availability?doctor=Dr.+Neha+Sharma&date=2025-01-10", "", nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		AvailableTimes []string `json:"available_times"`
	}
	decodeJSON(t, resp, &body)
	if len(body.AvailableTimes) != len(scheduling.SlotTimes) {
		t.Fatalf("expected the full enumeration, got %v", body.AvailableTimes)
	}
}

func TestBookingFlow(t *testing.T) {
	env := newTestEnv(t)
	_, patientToken := env.createUser(t, "asha", "Asha Verma", "secret123", models.RolePatient)
	_, receptionToken := env.createUser(t, "reception", "Front Desk", "secret123", models.RoleReception)

	slot := map[string]string{
		"doctor_name": "Dr. Neha Sharma",
		"date":        "2025-01-10",
		"time":        "09:00",
	}
	resp := env.request(t, "POST", "/api/v1/appointments/", patientToken, slot)
	if resp.StatusCode != 201 {
		t.Fatalf("booking: expected 201, got %d", resp.StatusCode)
	}
	data := envelopeData(t, resp)
	appt, ok := data["appointment"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing appointment in response: %v", data)
	}
	// El nombre del paciente sale del token, no del body
	if appt["patient_name"] != "Asha Verma" {
		t.Fatalf("expected the patient's own name, got %v", appt["patient_name"])
	}
	if appt["status"] != models.StatusPending {
		t.Fatalf("expected pending status, got %v", appt["status"])
	}
	if appt["queue_number"] != nil {
		t.Fatalf("expected null queue_number, got %v", appt["queue_number"])
	}

	// Mismo slot desde recepción: conflicto
	conflict := map[string]string{
		"patient_name": "Ravi Kumar",
		"doctor_name":  "Dr. Neha Sharma",
		"date":         "2025-01-10",
		"time":         "09:00",
	}
	resp = env.request(t, "POST", "/api/v1/appointments/", receptionToken, conflict)
	if resp.StatusCode != 409 {
		t.Fatalf("double booking: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// El slot ocupado desaparece de la disponibilidad
	resp = env.request(t, "GET", "/api/doctor_availability?doctor=Dr.+Neha+Sharma&date=2025-01-10", "", nil)
	var avail struct {
		AvailableTimes []string `json:"available_times"`
	}
	decodeJSON(t, resp, &avail)
	for _, ti := range avail.AvailableTimes {
		if ti == "09:00" {
			t.Fatal("booked slot still reported as available")
		}
	}
	if len(avail.AvailableTimes) != len(scheduling.SlotTimes)-1 {
		t.Fatalf("expected %d available times, got %d", len(scheduling.SlotTimes)-1, len(avail.AvailableTimes))
	}
}

func TestCheckInAndRoleEnforcement(t *testing.T) {
	env := newTestEnv(t)
	_, patientToken := env.createUser(t, "asha", "Asha Verma", "secret123", models.RolePatient)
	_, receptionToken := env.createUser(t, "reception", "Front Desk", "secret123", models.RoleReception)

	resp := env.request(t, "POST", "/api/v1/appointments/", patientToken, map[string]string{
		"doctor_name": "Dr. Neha Sharma", "date": "2025-01-10", "time": "09:00",
	})
	data := envelopeData(t, resp)
	appt := data["appointment"].(map[string]interface{})
	id := int(appt["id"].(float64))

	// Un paciente no puede registrar llegadas
	resp = env.request(t, "PUT", fmt.Sprintf("/api/v1/appointments/%d/checkin", id), patientToken, nil)
	if resp.StatusCode != 403 {
		t.Fatalf("patient check-in: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.request(t, "PUT", fmt.Sprintf("/api/v1/appointments/%d/checkin", id), receptionToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("reception check-in: expected 200, got %d", resp.StatusCode)
	}
	data = envelopeData(t, resp)
	if qn, ok := data["queue_number"].(float64); !ok || qn != 1 {
		t.Fatalf("expected queue_number 1, got %v", data["queue_number"])
	}

	// Cancelación también es de mostrador
	resp = env.request(t, "DELETE", fmt.Sprintf("/api/v1/appointments/%d", id), patientToken, nil)
	if resp.StatusCode != 403 {
		t.Fatalf("patient cancel: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.request(t, "DELETE", fmt.Sprintf("/api/v1/appointments/%d", id), receptionToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("reception cancel: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEditAppointmentConflict(t *testing.T) {
	env := newTestEnv(t)
	_, receptionToken := env.createUser(t, "reception", "Front Desk", "secret123", models.RoleReception)

	resp := env.request(t, "POST", "/api/v1/appointments/", receptionToken, map[string]string{
		"patient_name": "Asha Verma", "doctor_name": "Dr. Neha Sharma", "date": "2025-01-10", "time": "09:00",
	})
	resp.Body.Close()
	resp = env.request(t, "POST", "/api/v1/appointments/", receptionToken, map[string]string{
		"patient_name": "Ravi Kumar", "doctor_name": "Dr. Neha Sharma", "date": "2025-01-10", "time": "09:30",
	})
	data := envelopeData(t, resp)
	appt := data["appointment"].(map[string]interface{})
	id := int(appt["id"].(float64))

	resp = env.request(t, "PUT", fmt.Sprintf("/api/v1/appointments/%d", id), receptionToken, map[string]string{
		"doctor_name": "Dr. Neha Sharma", "date": "2025-01-10", "time": "09:00",
	})
	if resp.StatusCode != 409 {
		t.Fatalf("edit into occupied slot: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Moverla a su propio slot es válido
	resp = env.request(t, "PUT", fmt.Sprintf("/api/v1/appointments/%d", id), receptionToken, map[string]string{
		"doctor_name": "Dr. Neha Sharma", "date": "2025-01-10", "time": "09:30",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("edit to own slot: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPatientListIsScoped(t *testing.T) {
	env := newTestEnv(t)
	_, ashaToken := env.createUser(t, "asha", "Asha Verma", "secret123", models.RolePatient)
	_, raviToken := env.createUser(t, "ravi", "Ravi Kumar", "secret123", models.RolePatient)

	resp := env.request(t, "POST", "/api/v1/appointments/", ashaToken, map[string]string{
		"doctor_name": "Dr. Neha Sharma", "date": "2025-01-10", "time": "09:00",
	})
	resp.Body.Close()
	resp = env.request(t, "POST", "/api/v1/appointments/", raviToken, map[string]string{
		"doctor_name": "Dr. Neha Sharma", "date": "2025-01-10", "time": "09:30",
	})
	resp.Body.Close()

	resp = env.request(t, "GET", "/api/v1/appointments/", ashaToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("listing: expected 200, got %d", resp.StatusCode)
	}
	data := envelopeData(t, resp)
	if total, _ := data["total"].(float64); total != 1 {
		t.Fatalf("patient should only see their own appointment, got total %v", data["total"])
	}
}

func TestStatsRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, patientToken := env.createUser(t, "asha", "Asha Verma", "secret123", models.RolePatient)
	_, adminToken := env.createUser(t, "admin", "Administrator", "secret123", models.RoleAdmin)

	resp := env.request(t, "GET", "/api/v1/reports/stats", patientToken, nil)
	if resp.StatusCode != 403 {
		t.Fatalf("patient stats: expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.request(t, "GET", "/api/v1/reports/stats", adminToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("admin stats: expected 200, got %d", resp.StatusCode)
	}
	data := envelopeData(t, resp)
	if _, ok := data["stats"].(map[string]interface{}); !ok {
		t.Fatalf("missing stats payload: %v", data)
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.createUser(t, "admin", "Administrator", "secret123", models.RoleAdmin)

	resp := env.request(t, "POST", "/api/v1/appointments/", adminToken, map[string]string{
		"patient_name": "Asha Verma", "doctor_name": "Dr. Neha Sharma", "date": "2025-01-10", "time": "09:00",
	})
	resp.Body.Close()

	resp = env.request(t, "GET", "/api/v1/reports/export.csv", adminToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("export: expected 200, got %d", resp.StatusCode)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv content type, got %q", ct)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one record, got %d lines", len(lines))
	}
	if lines[0] != "id,patient_name,doctor_name,date,time,status" {
		t.Fatalf("unexpected CSV header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "Asha Verma") || !strings.Contains(lines[1], "pending") {
		t.Fatalf("unexpected CSV record: %q", lines[1])
	}
}

func TestListDoctors(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "neha.sharma", "Dr. Neha Sharma", "secret123", models.RoleDoctor)
	_, patientToken := env.createUser(t, "asha", "Asha Verma", "secret123", models.RolePatient)

	resp := env.request(t, "GET", "/api/v1/doctors", patientToken, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Doctors []models.UserResponse `json:"doctors"`
		Total   int                   `json:"total"`
	}
	decodeJSON(t, resp, &body)
	if body.Total != 1 || len(body.Doctors) != 1 || body.Doctors[0].FullName != "Dr. Neha Sharma" {
		t.Fatalf("expected a single doctor, got %+v", body)
	}
}

func TestMFASetupAndLogin(t *testing.T) {
	env := newTestEnv(t)
	user, token := env.createUser(t, "admin", "Administrator", "secret123", models.RoleAdmin)

	resp := env.request(t, "POST", "/api/v1/auth/mfa/setup", token, map[string]string{
		"password": "secret123",
	})
	if resp.StatusCode != 200 {
		t.Fatalf("MFA setup: expected 200, got %d", resp.StatusCode)
	}
	var setup models.MFASetupResponse
	decodeJSON(t, resp, &setup)
	if setup.Secret == "" || setup.QRCodeURL == "" {
		t.Fatal("expected a TOTP secret and provisioning URL")
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("generating TOTP code failed: %v", err)
	}
	resp = env.request(t, "POST", "/api/v1/auth/mfa/verify", token, map[string]string{
		"code": code,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("MFA verify: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Con MFA habilitado, el login sin código se rechaza
	resp = env.request(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": user.Username, "password": "secret123",
	})
	if resp.StatusCode != 401 {
		t.Fatalf("login without MFA code: expected 401, got %d", resp.StatusCode)
	}
	var challenge map[string]interface{}
	decodeJSON(t, resp, &challenge)
	if challenge["requires_mfa"] != true {
		t.Fatalf("expected requires_mfa flag, got %v", challenge)
	}

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("generating TOTP code failed: %v", err)
	}
	resp = env.request(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": user.Username, "password": "secret123", "mfa_code": code,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("login with MFA code: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
