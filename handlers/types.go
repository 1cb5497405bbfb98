package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/SIMHADRI-1817/Smart-Clinic/middleware"
	"github.com/SIMHADRI-1817/Smart-Clinic/scheduling"
)

type BodyResponse struct {
	IntCode string        `json:"intCode"`
	Data    []interface{} `json:"data"`
}

type StandardResponse struct {
	StatusCode int          `json:"statusCode"`
	Body       BodyResponse `json:"body"`
}

// Handler agrupa las dependencias de los endpoints: el núcleo de agenda, el
// directorio de usuarios y el audit logger, todos recibidos explícitamente.
type Handler struct {
	Core  *scheduling.Core
	Users scheduling.UserStore
	Audit *middleware.AuditLogger
}

// New crea el conjunto de handlers
func New(core *scheduling.Core, users scheduling.UserStore, audit *middleware.AuditLogger) *Handler {
	return &Handler{Core: core, Users: users, Audit: audit}
}

// identityFromCtx reconstruye los claims dejados por el middleware JWT
func identityFromCtx(c *fiber.Ctx) scheduling.Identity {
	id := scheduling.Identity{}
	if v, ok := c.Locals("user_id").(int); ok {
		id.UserID = v
	}
	if v, ok := c.Locals("username").(string); ok {
		id.Username = v
	}
	if v, ok := c.Locals("full_name").(string); ok {
		id.FullName = v
	}
	if v, ok := c.Locals("user_role").(string); ok {
		id.Role = v
	}
	return id
}

// respondOK envía una respuesta exitosa con el envelope estándar
func respondOK(c *fiber.Ctx, status int, intCode string, data fiber.Map) error {
	return c.Status(status).JSON(StandardResponse{
		StatusCode: status,
		Body: BodyResponse{
			IntCode: intCode,
			Data:    []interface{}{data},
		},
	})
}

// respondErr envía un error con el envelope estándar
func respondErr(c *fiber.Ctx, status int, intCode, message string) error {
	return c.Status(status).JSON(StandardResponse{
		StatusCode: status,
		Body: BodyResponse{
			IntCode: intCode,
			Data:    []interface{}{fiber.Map{"error": message}},
		},
	})
}

// domainErr traduce un error de dominio al envelope estándar. Los errores
// del usuario viajan con su mensaje; cualquier otra cosa es un 500 opaco.
func domainErr(c *fiber.Ctx, intCode string, err error) error {
	var dom *scheduling.DomainError
	if errors.As(err, &dom) {
		return respondErr(c, statusForCode(dom.Code), intCode, dom.Message)
	}
	return respondErr(c, 500, intCode, "internal server error")
}

func statusForCode(code string) int {
	switch code {
	case scheduling.ErrValidation.Code:
		return fiber.StatusBadRequest
	case scheduling.ErrSlotTaken.Code, scheduling.ErrDuplicateUser.Code:
		return fiber.StatusConflict
	case scheduling.ErrNotFound.Code, scheduling.ErrUserNotFound.Code:
		return fiber.StatusNotFound
	case scheduling.ErrForbidden.Code:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
