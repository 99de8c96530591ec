package handlers

import (
	"cmp"
	"net/http"
	"slices"
	"strings"

	"coachapp/internal/observability"

	"github.com/gin-gonic/gin"
)

// RouteInfo describes one registered route
type RouteInfo struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Group       string `json:"group"`
	HandlerName string `json:"handler_name"`
}

// RouteListingHandler serves /v1/routes for a service
type RouteListingHandler struct {
	serviceName string
	routes      []RouteInfo
}

// NewRouteListingHandler creates a new route listing handler
func NewRouteListingHandler(serviceName string) *RouteListingHandler {
	return &RouteListingHandler{serviceName: serviceName}
}

// routeGroup is the first path segment, or "root" for top-level routes
func routeGroup(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	group, _, nested := strings.Cut(trimmed, "/")
	if !nested || group == "" {
		return "root"
	}
	return group
}

// CollectRoutes snapshots engine's routes ordered by path then method.
// Call it once every route is registered.
func (h *RouteListingHandler) CollectRoutes(engine *gin.Engine) {
	routes := engine.Routes()
	h.routes = make([]RouteInfo, 0, len(routes))
	for _, route := range routes {
		h.routes = append(h.routes, RouteInfo{
			Method:      route.Method,
			Path:        route.Path,
			Group:       routeGroup(route.Path),
			HandlerName: route.Handler,
		})
	}
	slices.SortFunc(h.routes, func(a, b RouteInfo) int {
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(a.Method, b.Method))
	})
}

// GetRouteListingJSON returns the routes, optionally only those under ?prefix=
func (h *RouteListingHandler) GetRouteListingJSON(c *gin.Context) {
	_, span := observability.TraceHandlerFunction(c.Request.Context(), "get_route_listing_json")
	defer observability.FinishSpan(span, nil)

	routes := h.routes
	if prefix := c.Query("prefix"); prefix != "" {
		routes = make([]RouteInfo, 0, len(h.routes))
		for _, r := range h.routes {
			if strings.HasPrefix(r.Path, prefix) {
				routes = append(routes, r)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"service": h.serviceName,
		"count":   len(routes),
		"routes":  routes,
	})
}
