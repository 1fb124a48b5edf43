package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shiva/wayplan/internal/apperr"
	"github.com/shiva/wayplan/internal/catalog"
	"github.com/shiva/wayplan/internal/model"
)

// CatalogHandler exposes read-only POI lookups.
type CatalogHandler struct {
	catalog catalog.Catalog
	log     zerolog.Logger
}

func NewCatalogHandler(cat catalog.Catalog, log zerolog.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: cat, log: log.With().Str("handler", "catalog").Logger()}
}

// GetPOI handles GET /api/v1/pois/{poi_id}
func (h *CatalogHandler) GetPOI(w http.ResponseWriter, r *http.Request) {
	poiID, err := pathUUID(r, "poi_id")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	poi, err := h.catalog.GetPOI(r.Context(), poiID)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.CodeNotFound, err, "poi %s", poiID))
		return
	}
	writeJSON(w, http.StatusOK, poi)
}

// Search handles GET /api/v1/pois?destination=...&tags=a,b&lat=..&lng=..&within_km=..&limit=..
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := catalog.Query{Destination: r.URL.Query().Get("destination")}
	if raw := r.URL.Query().Get("tags"); raw != "" {
		q.Tags = strings.Split(raw, ",")
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			q.Limit = n
		}
	}
	latRaw, lngRaw := r.URL.Query().Get("lat"), r.URL.Query().Get("lng")
	if latRaw != "" && lngRaw != "" {
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		lng, errLng := strconv.ParseFloat(lngRaw, 64)
		if errLat != nil || errLng != nil {
			writeError(w, h.log, apperr.New(apperr.CodeValidation, "invalid lat/lng"))
			return
		}
		q.NearBy = &model.Location{Lat: lat, Lng: lng}
		if raw := r.URL.Query().Get("within_km"); raw != "" {
			if km, err := strconv.ParseFloat(raw, 64); err == nil && km > 0 {
				q.WithinKm = km
			}
		}
	}

	pois, err := h.catalog.Search(r.Context(), q)
	if err != nil {
		writeError(w, h.log, apperr.Wrap(apperr.CodeStorageUnavailable, err, "poi search"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pois": pois})
}
