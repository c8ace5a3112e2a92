package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storehouse/internal/logging"
	"github.com/iliyamo/storehouse/internal/queue"
)

// requestTimeout bounds every store call made on behalf of a request.
const requestTimeout = 5 * time.Second

// EventSink receives lifecycle events after successful mutations.
type EventSink interface {
	Publish(ctx context.Context, ev queue.ResourceEvent) error
}

var (
	createValidator = newValidator("validate")
	updateValidator = newValidator("update")
)

func newValidator(tag string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName(tag)
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// maxBytes checks the encoded length of a string. bcrypt only accepts
// passwords up to 72 bytes, and max counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// validationMessage turns the first validator failure into a client message.
func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request body"
	}
	fe := ve[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// parseID accepts ids up to math.MaxInt64; database/sql rejects larger
// uint64 arguments.
func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 63)
	return id, err == nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// emit hands ev to sink. Delivery failures are logged only.
func emit(ctx context.Context, sink EventSink, ev queue.ResourceEvent) {
	if sink == nil {
		return
	}
	ev.At = time.Now().UTC()
	if err := sink.Publish(context.WithoutCancel(ctx), ev); err != nil {
		logging.Warn().Err(err).Str("kind", ev.Kind).Str("op", ev.Op).Uint64("id", ev.ID).Msg("publish event failed")
	}
}
