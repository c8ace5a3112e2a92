package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storehouse/internal/logging"
	"github.com/iliyamo/storehouse/internal/metrics"
	"github.com/iliyamo/storehouse/internal/model"
	"github.com/iliyamo/storehouse/internal/queue"
	"github.com/iliyamo/storehouse/internal/repository"
)

// Store is the persistence contract a Resource needs for one kind.
// Update returns repository.ErrNotFound for a missing id and Delete of a
// missing id succeeds.
type Store[T any] interface {
	Fetch(ctx context.Context, id uint64) (T, error)
	FetchAll(ctx context.Context) ([]T, error)
	Insert(ctx context.Context, fields repository.Fields) (uint64, error)
	Update(ctx context.Context, id uint64, fields repository.Fields) error
	Delete(ctx context.Context, id uint64) error
}

// Resource serves the item routes (get, put, patch, delete) and the
// collection routes (list, post) of one record kind. T is the stored record
// and F the request form.
//
// Status policy:
//
//	GET    item        200 record | 404
//	PUT    item        201 (update, or create when the id is missing)
//	PATCH  item        200 | 404
//	DELETE item        204, also for a missing id
//	GET    collection  200 array
//	POST   collection  201 | 400 | 409
type Resource[T any, F Form[F]] struct {
	Kind   string
	Store  Store[T]
	Events EventSink
}

func NewResource[T any, F Form[F]](kind string, store Store[T], events EventSink) *Resource[T, F] {
	return &Resource[T, F]{Kind: kind, Store: store, Events: events}
}

// Get handles GET /{kind}/:id.
func (h *Resource[T, F]) Get(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := h.Store.Fetch(ctx, id)
	if err != nil {
		return h.fail(c, "get", err)
	}
	metrics.RecordResourceOp(h.Kind, "get", "ok")
	return c.JSON(http.StatusOK, v)
}

// List handles GET /{kinds}.
func (h *Resource[T, F]) List(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	all, err := h.Store.FetchAll(ctx)
	if err != nil {
		return h.fail(c, "list", err)
	}
	if all == nil {
		all = []T{}
	}
	metrics.RecordResourceOp(h.Kind, "list", "ok")
	return c.JSON(http.StatusOK, all)
}

// Post handles POST /{kinds}.
func (h *Resource[T, F]) Post(c echo.Context, u *model.User) error {
	form, err := h.bind(c)
	if err != nil {
		return h.reject(c, "post", err)
	}
	if err := createValidator.Struct(form); err != nil {
		return h.reject(c, "post", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	id, err := h.Store.Insert(ctx, form.Fields())
	if err != nil {
		return h.fail(c, "post", err)
	}
	h.done(ctx, queue.OpCreate, id, u)
	return c.NoContent(http.StatusCreated)
}

// Put handles PUT /{kind}/:id. Supplied fields overwrite the record; when
// the id does not exist a new record is created from them and receives a
// store-assigned id.
func (h *Resource[T, F]) Put(c echo.Context, u *model.User) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	form, err := h.bind(c)
	if err != nil {
		return h.reject(c, "put", err)
	}
	if err := updateValidator.Struct(form); err != nil {
		return h.reject(c, "put", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	err = h.Store.Update(ctx, id, form.Fields())
	if err == nil {
		h.done(ctx, queue.OpReplace, id, u)
		return c.NoContent(http.StatusCreated)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return h.fail(c, "put", err)
	}

	if err := createValidator.Struct(form); err != nil {
		return h.reject(c, "put", err)
	}
	newID, err := h.Store.Insert(ctx, form.Fields())
	if err != nil {
		return h.fail(c, "put", err)
	}
	h.done(ctx, queue.OpPutCreate, newID, u)
	return c.NoContent(http.StatusCreated)
}

// Patch handles PATCH /{kind}/:id. A missing id is 404 and nothing is
// created.
func (h *Resource[T, F]) Patch(c echo.Context, u *model.User) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	form, err := h.bind(c)
	if err != nil {
		return h.reject(c, "patch", err)
	}
	if err := updateValidator.Struct(form); err != nil {
		return h.reject(c, "patch", err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Store.Update(ctx, id, form.Fields()); err != nil {
		return h.fail(c, "patch", err)
	}
	h.done(ctx, queue.OpPatch, id, u)
	return c.NoContent(http.StatusOK)
}

// Delete handles DELETE /{kind}/:id.
func (h *Resource[T, F]) Delete(c echo.Context, u *model.User) error {
	id, ok := parseID(c)
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Store.Delete(ctx, id); err != nil {
		return h.fail(c, "delete", err)
	}
	h.done(ctx, queue.OpDelete, id, u)
	return c.NoContent(http.StatusNoContent)
}

// bind decodes the body into a normalized form. An empty body is an empty
// form.
func (h *Resource[T, F]) bind(c echo.Context) (F, error) {
	var f F
	if err := (&echo.DefaultBinder{}).BindBody(c, &f); err != nil {
		return f, err
	}
	return f.Normalized(), nil
}

// reject answers 400 for an undecodable or invalid body.
func (h *Resource[T, F]) reject(c echo.Context, op string, err error) error {
	metrics.RecordResourceOp(h.Kind, op, "bad_request")
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return badRequest(c, "invalid request body")
	}
	return badRequest(c, validationMessage(err))
}

// fail maps a store error to a response. Unclassified errors are logged and
// returned for the server's error handler.
func (h *Resource[T, F]) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.RecordResourceOp(h.Kind, op, "not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "object not found"})
	case errors.Is(err, repository.ErrDuplicate):
		metrics.RecordResourceOp(h.Kind, op, "conflict")
		return c.JSON(http.StatusConflict, echo.Map{"error": h.Kind + " already exists"})
	case errors.Is(err, repository.ErrInvalidReference):
		metrics.RecordResourceOp(h.Kind, op, "bad_request")
		return badRequest(c, "referenced object does not exist")
	case errors.Is(err, repository.ErrPasswordTooLong):
		metrics.RecordResourceOp(h.Kind, op, "bad_request")
		return badRequest(c, repository.ErrPasswordTooLong.Error())
	case errors.Is(err, repository.ErrMissingField):
		metrics.RecordResourceOp(h.Kind, op, "bad_request")
		return badRequest(c, "required field missing")
	}
	metrics.RecordResourceOp(h.Kind, op, "error")
	logging.Error().Err(err).Str("kind", h.Kind).Str("op", op).Str("uri", c.Request().RequestURI).Msg("store operation failed")
	return err
}

func (h *Resource[T, F]) done(ctx context.Context, op string, id uint64, u *model.User) {
	outcome := "ok"
	if op == queue.OpCreate || op == queue.OpPutCreate {
		outcome = "created"
	}
	metrics.RecordResourceOp(h.Kind, op, outcome)

	ev := queue.ResourceEvent{Kind: h.Kind, Op: op, ID: id}
	if u != nil {
		ev.ActorID = u.ID
	}
	logging.Debug().Str("kind", h.Kind).Str("op", op).Uint64("id", id).Uint64("actor_id", ev.ActorID).Msg("resource changed")
	emit(ctx, h.Events, ev)
}
