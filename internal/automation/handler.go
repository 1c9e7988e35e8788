package automation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"teamflow/internal/logger"
	"teamflow/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		rules := v1.Group("/workspaces/:workspaceId/automation/rules")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.POST("/graph", h.CreateRuleFromGraph)
			rules.GET("/:ruleId", h.GetRule)
			rules.PATCH("/:ruleId", h.UpdateRule)
			rules.DELETE("/:ruleId", h.DeleteRule)
			rules.GET("/:ruleId/graph", h.GetRuleGraph)
			rules.GET("/:ruleId/executions", h.ListExecutions)
		}
	}
}

// ListRules godoc
// @Summary      List automation rules
// @Description  Get the workspace's automation rules with their actions and execution counts
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        workspaceId  path     string  true   "Workspace ID"
// @Param        triggerType  query    string  false  "Filter by trigger kind"
// @Param        isActive     query    bool    false  "Filter by active flag"
// @Param        page         query    int     false  "Page number"
// @Param        pageSize     query    int     false  "Page size"
// @Success      200  {object}  RuleList
// @Failure      400  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /workspaces/{workspaceId}/automation/rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	filter := ListRulesFilter{
		TriggerType: TriggerKind(c.Query("triggerType")),
		Page:        queryInt(c, "page", 1),
		PageSize:    queryInt(c, "pageSize", 0),
	}
	if v := c.Query("isActive"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.WithDetail("message", "isActive must be a boolean")))
			return
		}
		filter.IsActive = &active
	}

	list, err := h.Service.ListRules(c.Request.Context(), c.Param("workspaceId"), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateRule godoc
// @Summary      Create an automation rule
// @Description  Create a rule from its canonical trigger/actions shape; validation errors are returned as one aggregate list
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        workspaceId  path  string             true  "Workspace ID"
// @Param        rule         body  CreateRuleRequest  true  "Rule definition"
// @Success      201  {object}  Rule
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /workspaces/{workspaceId}/automation/rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateRule(c.Request.Context(), c.Param("workspaceId"), actorID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// CreateRuleFromGraph godoc
// @Summary      Create an automation rule from a visual graph
// @Description  Convert a builder graph (one trigger node, linear action chain) into a rule and store it
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        workspaceId  path  string                      true  "Workspace ID"
// @Param        graph        body  CreateRuleFromGraphRequest  true  "Rule graph"
// @Success      201  {object}  Rule
// @Failure      400  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /workspaces/{workspaceId}/automation/rules/graph [post]
func (h *Handler) CreateRuleFromGraph(c *gin.Context) {
	var req CreateRuleFromGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateRuleFromGraph(c.Request.Context(), c.Param("workspaceId"), actorID(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get an automation rule
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        workspaceId  path  string  true  "Workspace ID"
// @Param        ruleId       path  string  true  "Rule ID"
// @Success      200  {object}  Rule
// @Failure      404  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /workspaces/{workspaceId}/automation/rules/{ruleId} [get]
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.Service.GetRule(c.Request.Context(), c.Param("workspaceId"), c.Param("ruleId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule godoc
// @Summary      Update an automation rule
// @Description  Partial update; a provided action list fully replaces the prior set
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        workspaceId  path  string             true  "Workspace ID"
// @Param        ruleId       path  string             true  "Rule ID"
// @Param        rule         body  UpdateRuleRequest  true  "Fields to update"
// @Success      200  {object}  Rule
// @Failure      400  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /workspaces/{workspaceId}/automation/rules/{ruleId} [patch]
func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.UpdateRule(c.Request.Context(), c.Param("workspaceId"), c.Param("ruleId"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete an automation rule
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        workspaceId  path  string  true  "Workspace ID"
// @Param        ruleId       path  string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /workspaces/{workspaceId}/automation/rules/{ruleId} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.Service.DeleteRule(c.Request.Context(), c.Param("workspaceId"), c.Param("ruleId")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRuleGraph godoc
// @Summary      Get a rule as a builder graph
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        workspaceId  path  string  true  "Workspace ID"
// @Param        ruleId       path  string  true  "Rule ID"
// @Success      200  {object}  Graph
// @Failure      404  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /workspaces/{workspaceId}/automation/rules/{ruleId}/graph [get]
func (h *Handler) GetRuleGraph(c *gin.Context) {
	graph, err := h.Service.GetRuleGraph(c.Request.Context(), c.Param("workspaceId"), c.Param("ruleId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

// ListExecutions godoc
// @Summary      List a rule's execution history
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        workspaceId  path   string  true   "Workspace ID"
// @Param        ruleId       path   string  true   "Rule ID"
// @Param        limit        query  int     false  "Maximum records to return"
// @Param        offset       query  int     false  "Records to skip"
// @Success      200  {object}  ExecutionList
// @Failure      404  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /workspaces/{workspaceId}/automation/rules/{ruleId}/executions [get]
func (h *Handler) ListExecutions(c *gin.Context) {
	list, err := h.Service.ListExecutions(c.Request.Context(),
		c.Param("workspaceId"), c.Param("ruleId"),
		queryInt(c, "limit", 0), queryInt(c, "offset", 0),
	)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func actorID(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
