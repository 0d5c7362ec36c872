package rest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/galtspace/geo-explorer/internal/api/shared/constants"
	"github.com/galtspace/geo-explorer/internal/api/shared/dto"
	"github.com/galtspace/geo-explorer/internal/api/shared/executor"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// ContoursByInnerGeohash returns the contours containing a cell
	// POST /api/v1/contours/by/inner-geohash {"geohash": "...", "contractAddress": "..."}
	ContoursByInnerGeohash(c *gin.Context)

	// ContoursByParentGeohash returns the contours with a cell under any of the prefixes
	// POST /api/v1/contours/by/parent-geohash {"geohashes": ["..."], "contractAddress": "..."}
	ContoursByParentGeohash(c *gin.Context)

	// SearchTokens returns one page of tokens
	// POST /api/v1/tokens/search
	SearchTokens(c *gin.Context)

	// GetToken returns a single token
	// GET /api/v1/tokens/:contract/:id
	GetToken(c *gin.Context)

	// SearchOrders returns one page of sale orders
	// POST /api/v1/orders/search
	SearchOrders(c *gin.Context)

	// GetOrder returns a single sale order
	// GET /api/v1/orders/:contract/:id
	GetOrder(c *gin.Context)

	// SearchOffers returns one page of sale offers
	// POST /api/v1/offers/search
	SearchOffers(c *gin.Context)

	// SearchApplications returns one page of applications
	// POST /api/v1/applications/search
	SearchApplications(c *gin.Context)

	// GetApplication returns a single application
	// GET /api/v1/applications/:contract/:id
	GetApplication(c *gin.Context)

	// SearchCommunities returns one page of communities
	// POST /api/v1/communities/search
	SearchCommunities(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{executor: exec}
}

// validator is a request body that checks itself
type validator[T any] interface {
	*T
	Validate() error
}

// runQuery binds and validates the body, then responds with the envelope produced by run
func runQuery[T any, PT validator[T]](c *gin.Context, run func(context.Context, PT) (*dto.Envelope, error)) {
	req := PT(new(T))
	// an empty body is an empty filter
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		respondValidationError(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		respondExecutorError(c, err)
		return
	}

	envelope, err := run(c.Request.Context(), req)
	if err != nil {
		respondExecutorError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// runLookup reads the :contract and :id path parameters and responds with the entity produced by run
func runLookup(c *gin.Context, entity string, run func(ctx context.Context, contractAddress, id string) (*dto.Envelope, error)) {
	contractAddress := c.Param("contract")
	id := c.Param("id")
	if len(contractAddress) > constants.MAX_FIELD_LENGTH || len(id) > constants.MAX_FIELD_LENGTH {
		respondValidationError(c, "path parameter too long")
		return
	}

	envelope, err := run(c.Request.Context(), contractAddress, id)
	if err != nil {
		respondExecutorError(c, err, zap.String("contract", contractAddress), zap.String("id", id))
		return
	}
	if envelope == nil {
		respondNotFound(c, entity+" not found")
		return
	}
	c.JSON(http.StatusOK, envelope)
}

func (h *handler) ContoursByInnerGeohash(c *gin.Context) {
	runQuery(c, h.executor.GetContoursByInnerGeohash)
}

func (h *handler) ContoursByParentGeohash(c *gin.Context) {
	runQuery(c, h.executor.GetContoursByParentGeohashes)
}

func (h *handler) SearchTokens(c *gin.Context) {
	runQuery(c, h.executor.SearchTokens)
}

func (h *handler) GetToken(c *gin.Context) {
	runLookup(c, "Token", h.executor.GetToken)
}

func (h *handler) SearchOrders(c *gin.Context) {
	runQuery(c, h.executor.SearchOrders)
}

func (h *handler) GetOrder(c *gin.Context) {
	runLookup(c, "Order", h.executor.GetOrder)
}

func (h *handler) SearchOffers(c *gin.Context) {
	runQuery(c, h.executor.SearchOffers)
}

func (h *handler) SearchApplications(c *gin.Context) {
	runQuery(c, h.executor.SearchApplications)
}

func (h *handler) GetApplication(c *gin.Context) {
	runLookup(c, "Application", h.executor.GetApplication)
}

func (h *handler) SearchCommunities(c *gin.Context) {
	runQuery(c, h.executor.SearchCommunities)
}

// HealthCheck returns the health status
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
