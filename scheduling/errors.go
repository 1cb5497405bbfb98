package scheduling

import "fmt"

// DomainError es un error de dominio con código estable; los handlers lo
// traducen a un status HTTP y un mensaje para el usuario.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap permite usar errors.Is y errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is compara por código, de modo que las copias con contexto sigan
// coincidiendo con el sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithError agrega la causa subyacente
func (e *DomainError) WithError(err error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: err}
}

// WithMessage reemplaza el mensaje manteniendo el código
func (e *DomainError) WithMessage(msg string) *DomainError {
	return &DomainError{Code: e.Code, Message: msg, Err: e.Err}
}

// Errores predefinidos del dominio
var (
	ErrValidation = &DomainError{
		Code:    "VALIDATION",
		Message: "required field is missing",
	}

	ErrSlotTaken = &DomainError{
		Code:    "SLOT_TAKEN",
		Message: "the selected slot is already taken",
	}

	ErrNotFound = &DomainError{
		Code:    "NOT_FOUND",
		Message: "appointment not found",
	}

	ErrForbidden = &DomainError{
		Code:    "FORBIDDEN",
		Message: "you are not allowed to perform this action",
	}

	ErrDuplicateUser = &DomainError{
		Code:    "DUPLICATE_USER",
		Message: "username or email is already registered",
	}

	ErrUserNotFound = &DomainError{
		Code:    "USER_NOT_FOUND",
		Message: "user not found",
	}
)
