package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storehouse/internal/handler"
	"github.com/iliyamo/storehouse/internal/middleware"
	"github.com/iliyamo/storehouse/internal/model"
	"github.com/iliyamo/storehouse/internal/repository"
)

// RegisterResources mounts the four record kinds. Reads are public; every
// mutation goes through auth.
func RegisterResources(e *echo.Echo, db *sql.DB, users *repository.UserRepo, events handler.EventSink, auth echo.MiddlewareFunc) {
	mount(e, "/user", "/users", auth,
		handler.NewResource[model.User, handler.UserForm]("user", users, events))
	mount(e, "/video", "/videos", auth,
		handler.NewResource[model.Video, handler.VideoForm]("video", repository.NewVideoRepo(db), events))
	mount(e, "/watchlist", "/watchlists", auth,
		handler.NewResource[model.Watchlist, handler.WatchlistForm]("watchlist", repository.NewWatchlistRepo(db), events))
	mount(e, "/franchise", "/franchises", auth,
		handler.NewResource[model.Franchise, handler.FranchiseForm]("franchise", repository.NewFranchiseRepo(db), events))
}

func mount[T any, F handler.Form[F]](e *echo.Echo, item, collection string, auth echo.MiddlewareFunc, r *handler.Resource[T, F]) {
	e.GET(collection, r.List)
	e.POST(collection, middleware.WithUser(r.Post), auth)

	e.GET(item+"/:id", r.Get)
	e.PUT(item+"/:id", middleware.WithUser(r.Put), auth)
	e.PATCH(item+"/:id", middleware.WithUser(r.Patch), auth)
	e.DELETE(item+"/:id", middleware.WithUser(r.Delete), auth)
}
