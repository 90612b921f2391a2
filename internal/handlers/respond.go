package handlers

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/payments"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/principal"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is rejected before the request reaches a service.
type requestError struct {
	status  int
	message string
	details []dto.FieldError
}

func (e *requestError) Error() string { return e.message }

var (
	errInvalidBody  = &requestError{status: fiber.StatusBadRequest, message: "Invalid request body"}
	errUnauthorized = &requestError{status: fiber.StatusUnauthorized, message: "Unauthorized"}
)

// bind parses the JSON body into req and runs its validate tags.
func bind(c *fiber.Ctx, req interface{}, invalidMessage string) error {
	if err := c.BodyParser(req); err != nil {
		return errInvalidBody
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &requestError{status: fiber.StatusBadRequest, message: invalidMessage}
		}
		details := make([]dto.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, dto.FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		return &requestError{status: fiber.StatusBadRequest, message: invalidMessage, details: details}
	}
	return nil
}

// paramID parses a path id. A malformed id cannot name an existing row, so
// it is answered like a missing one.
func paramID(c *fiber.Ctx, name, notFound string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, &requestError{status: fiber.StatusNotFound, message: notFound}
	}
	return id, nil
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := principal.GetUserID(c)
	if err != nil {
		return uuid.Nil, errUnauthorized
	}
	return id, nil
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: message})
}

type errorMapping struct {
	target  error
	status  int
	message string
}

// Messages left empty are taken from the (possibly wrapped) error itself.
var errorMappings = []errorMapping{
	{services.ErrValidation, fiber.StatusBadRequest, "Invalid request"},
	{services.ErrEmailTaken, fiber.StatusBadRequest, "Email already in use"},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, "Invalid credentials"},
	{services.ErrEmailNotVerified, fiber.StatusForbidden, "Please verify your email before logging in"},
	{services.ErrInvalidCode, fiber.StatusBadRequest, "Invalid or expired code"},
	{services.ErrSessionInvalid, fiber.StatusUnauthorized, "Unauthorized"},
	{services.ErrUserNotFound, fiber.StatusNotFound, "User not found"},
	{services.ErrProductInUse, fiber.StatusBadRequest, "Product is referenced by existing orders"},
	{services.ErrInsufficientStock, fiber.StatusBadRequest, ""},
	{services.ErrEmptyOrder, fiber.StatusBadRequest, "Order must contain items"},
	{services.ErrOrderNotFound, fiber.StatusNotFound, "Order not found"},
	{services.ErrPaymentNotFound, fiber.StatusNotFound, "Payment not found"},
	{services.ErrPaymentNotPending, fiber.StatusBadRequest, "Payment already finalized"},
	{services.ErrPaymentUnsuccessful, fiber.StatusBadRequest, "Payment was not successful"},
	{services.ErrProductNotFound, fiber.StatusNotFound, "Product not found"},
	{services.ErrListNotFound, fiber.StatusNotFound, "List not found"},
	{services.ErrListItemNotFound, fiber.StatusNotFound, "Item not found"},
	{payments.ErrWebhookSignature, fiber.StatusBadRequest, "Invalid webhook signature"},
}

// respondError writes the status and message err maps to. Unknown errors
// are logged and answered with fallback and a 500.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return c.Status(reqErr.status).JSON(dto.ErrorResponse{
			Error:   reqErr.message,
			Details: reqErr.details,
		})
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = capitalize(err.Error())
			}
			return fail(c, m.status, msg)
		}
	}

	slog.ErrorContext(c.UserContext(), fallback,
		"error", err,
		"action", c.Method()+" "+c.Route().Path,
	)
	return fail(c, fiber.StatusInternalServerError, fallback)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
