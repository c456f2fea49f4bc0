package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stefanpenner/flood-live/store"
)

type catalogStatuser interface {
	Status() store.CatalogStatus
}

// VersionRoute returns build information, plus the catalog cache state when
// the catalog can report it
func VersionRoute(catalog StationCatalog) func(c echo.Context) error {
	return func(c echo.Context) error {
		info := GetVersionInfo()

		if s, ok := catalog.(catalogStatuser); ok {
			status := s.Status()
			info.Catalog = &CatalogInfo{
				Stations: status.Labelled,
				Mapped:   status.Mapped,
			}
			if !status.FetchedAt.IsZero() {
				fetchedAt, expires := status.FetchedAt.UTC(), status.Expires.UTC()
				info.Catalog.FetchedAt = &fetchedAt
				info.Catalog.Expires = &expires
			}
			if status.LastError != nil {
				info.Catalog.LastError = status.LastError.Error()
			}
		}

		return c.JSON(http.StatusOK, info)
	}
}
