package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"go.ngs.io/fjord-atlas/internal/domain"
	"go.ngs.io/fjord-atlas/internal/render"
	"go.ngs.io/fjord-atlas/internal/usecase"
)

// DefaultPlotDPI keeps served maps small; the CLI renders at full resolution.
const DefaultPlotDPI = 100

// Handler handles HTTP requests for the fjord datasets.
type Handler struct {
	atlasUC *usecase.AtlasUseCase
}

// NewHandler creates a new HTTP handler.
func NewHandler(atlasUC *usecase.AtlasUseCase) *Handler {
	return &Handler{
		atlasUC: atlasUC,
	}
}

// serverError logs the failure and responds with 500.
func serverError(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// GetFjords handles GET /v1/fjords. An optional group query keeps only the
// fjords of that group.
func (h *Handler) GetFjords(c *gin.Context) {
	table, err := h.atlasUC.FjordsInGroup(c.Query("group"))
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, table.FeatureCollection())
}

// GetFjord handles GET /v1/fjords/:id.
func (h *Handler) GetFjord(c *gin.Context) {
	f, err := h.atlasUC.Fjord(c.Param("id"))
	if errors.Is(err, usecase.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, f.GeoJSON())
}

// GetFjordGroups handles GET /v1/fjord-groups.
func (h *Handler) GetFjordGroups(c *gin.Context) {
	groups, err := h.atlasUC.FjordGroups()
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"count":  len(groups),
	})
}

// GetRegions handles GET /v1/regions.
func (h *Handler) GetRegions(c *gin.Context) {
	table, err := h.atlasUC.Regions()
	if err != nil {
		serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, table.FeatureCollection())
}

// FjordGateResponse is one (fjord, gate) pair.
type FjordGateResponse struct {
	FjordID string `json:"fjord_id"`
	GateID  string `json:"gate_id"`
}

// GetTopGates handles GET /v1/fjord-gates/top.
func (h *Handler) GetTopGates(c *gin.Context) {
	gates, err := h.atlasUC.TopGates()
	if err != nil {
		serverError(c, err)
		return
	}

	response := make([]FjordGateResponse, len(gates))
	for i, g := range gates {
		response[i] = FjordGateResponse{FjordID: g.FjordID, GateID: g.GateID}
	}

	c.JSON(http.StatusOK, gin.H{
		"gates": response,
		"count": len(response),
	})
}

// GetRegionNames handles GET /v1/regions/names.
// source=file reads the configured name table; the default is the built-in map.
func (h *Handler) GetRegionNames(c *gin.Context) {
	var (
		names map[int]string
		err   error
	)
	switch c.DefaultQuery("source", "builtin") {
	case "builtin":
		names = domain.RegionNamesMap()
	case "file":
		names, err = h.atlasUC.RegionNames()
		if err != nil {
			serverError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "source must be builtin or file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"names": names,
	})
}

// PanelPositionResponse is a panel slot of the multi-panel figure.
type PanelPositionResponse struct {
	Index  int    `json:"index"`
	Letter string `json:"letter"`
}

// GetRegionPositions handles GET /v1/regions/positions.
func (h *Handler) GetRegionPositions(c *gin.Context) {
	positions := domain.RegionPosition()
	response := make(map[int]PanelPositionResponse, len(positions))
	for k, p := range positions {
		response[k] = PanelPositionResponse{Index: p.Index, Letter: p.Letter}
	}

	c.JSON(http.StatusOK, gin.H{
		"positions": response,
	})
}

// GetGroups handles GET /v1/groups.
func (h *Handler) GetGroups(c *gin.Context) {
	groups, err := h.atlasUC.Groups()
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"groups": groups,
		"count":  len(groups),
	})
}

// GetGroupBounds handles GET /v1/groups/bounds. With lat and lon given,
// only the groups whose grid covers that point are returned.
func (h *Handler) GetGroupBounds(c *gin.Context) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	var (
		bounds domain.GroupBounds
		err    error
	)
	switch {
	case latStr == "" && lonStr == "":
		bounds, err = h.atlasUC.GroupBounds()
	case latStr == "" || lonStr == "":
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must be given together"})
		return
	default:
		lat, perr := strconv.ParseFloat(latStr, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid lat: %v", perr)})
			return
		}
		lon, perr := strconv.ParseFloat(lonStr, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid lon: %v", perr)})
			return
		}
		bounds, err = h.atlasUC.GroupBoundsAt(lat, lon)
	}
	if err != nil {
		serverError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bounds": bounds,
		"groups": bounds.Names(),
	})
}

// GetExtents handles GET /v1/extents.
func (h *Handler) GetExtents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"epsg":   4326,
		"extent": domain.GLExtents4326(),
	})
}

// GetPlot handles GET /v1/plot/:file, where file is <layer>.png or <layer>.webp.
func (h *Handler) GetPlot(c *gin.Context) {
	file := c.Param("file")
	ext := path.Ext(file)
	format := render.Format(file)
	if ext != ".png" && ext != ".webp" {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported image type %q (expected .png or .webp)", ext)})
		return
	}

	req := usecase.PlotRequest{
		Layer:       strings.TrimSuffix(file, ext),
		LabelColumn: c.Query("label"),
		DPI:         DefaultPlotDPI,
	}

	if dpiStr := c.Query("dpi"); dpiStr != "" {
		dpi, err := strconv.Atoi(dpiStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid dpi: %v", err)})
			return
		}
		req.DPI = dpi
	}
	for name, dst := range map[string]*bool{"legend": &req.Legend, "coastline": &req.Coastline} {
		if s := c.Query(name); s != "" {
			v, err := strconv.ParseBool(s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid %s: %v", name, err)})
				return
			}
			*dst = v
		}
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	img, err := h.atlasUC.Plot(req)
	if errors.Is(err, render.ErrUnknownColumn) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		serverError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := render.Encode(&buf, img, format); err != nil {
		serverError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/"+format, buf.Bytes())
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
