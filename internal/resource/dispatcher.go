package resource

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"billing/internal/domain"
)

// Method selects which verbs Mount registers for a resource.
type Method int

const (
	MethodList Method = iota
	MethodFetch
	MethodCreate
	MethodUpdate
	MethodPatch
	MethodDelete
)

// AllMethods is the default verb set.
var AllMethods = []Method{MethodList, MethodFetch, MethodCreate, MethodUpdate, MethodPatch, MethodDelete}

// CallerFrom extracts the authenticated caller the auth middleware
// stored on the request, zero-valued for anonymous requests.
func CallerFrom(c *gin.Context) domain.Caller {
	if v, ok := c.Get(domain.CallerContextKey); ok {
		if caller, ok := v.(domain.Caller); ok {
			return caller
		}
	}
	return domain.Caller{}
}

// Mount registers the HTTP verbs for a resource on a gin group:
// GET "" (list), GET /:id, POST "", PUT "" (bulk update),
// PATCH /:id, DELETE /:id.
func Mount(rg *gin.RouterGroup, res *Resource, methods ...Method) {
	if len(methods) == 0 {
		methods = AllMethods
	}
	for _, m := range methods {
		switch m {
		case MethodList:
			rg.GET("", listHandler(res))
		case MethodFetch:
			rg.GET("/:id", fetchHandler(res))
		case MethodCreate:
			rg.POST("", createHandler(res))
		case MethodUpdate:
			rg.PUT("", updateHandler(res))
		case MethodPatch:
			rg.PATCH("/:id", patchHandler(res))
		case MethodDelete:
			rg.DELETE("/:id", deleteHandler(res))
		}
	}
}

// MountAssociation registers list/fetch plus the tagged-batch POST.
func MountAssociation(rg *gin.RouterGroup, res *AssociationResource) {
	rg.GET("", listHandler(&res.Resource))
	rg.GET("/:id", fetchHandler(&res.Resource))
	rg.POST("", associationBatchHandler(res))
}

// authorize enforces the descriptor's access declarations before the
// operation runs: auth presence, every required role, at least one
// accepted role.
func authorize(c *gin.Context, d Descriptor) (domain.Caller, bool) {
	caller := CallerFrom(c)
	if d.AuthRequired && caller.Anonymous() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": true, "message": "authentication required"})
		return caller, false
	}
	for _, role := range d.RolesRequired {
		if !caller.HasRole(role) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   true,
				"message": domain.ForbiddenError{Operation: "Access"}.Error(),
			})
			return caller, false
		}
	}
	if len(d.RolesAccepted) > 0 && !caller.HasAnyRole(d.RolesAccepted...) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   true,
			"message": domain.ForbiddenError{Operation: "Access"}.Error(),
		})
		return caller, false
	}
	return caller, true
}

func listHandler(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := authorize(c, res.Desc)
		if !ok {
			return
		}
		p := ParseParams(res.Desc, c.Request.URL.Query())
		recs, total, err := res.List(c.Request.Context(), caller, p)
		if err != nil {
			respondResourceError(c, err)
			return
		}

		proj := NewProjection(res.Desc, p)
		if p.Export && res.Desc.Export {
			writeCSV(c, res.Desc.Table, proj, recs)
			return
		}
		if len(recs) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "No Resource Found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    proj.ApplyAll(recs),
			"total":   total,
		})
	}
}

func fetchHandler(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := authorize(c, res.Desc)
		if !ok {
			return
		}
		id, ok := idParam(c)
		if !ok {
			return
		}
		rec, err := res.Fetch(c.Request.Context(), caller, id)
		if err != nil {
			respondResourceError(c, err)
			return
		}
		p := ParseParams(res.Desc, c.Request.URL.Query())
		c.JSON(http.StatusOK, NewProjection(res.Desc, p).Apply(rec))
	}
}

func createHandler(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := authorize(c, res.Desc)
		if !ok {
			return
		}
		payload, ok := bindRecords(c)
		if !ok {
			return
		}
		recs, err := res.Create(c.Request.Context(), caller, payload)
		if err != nil {
			respondResourceError(c, err)
			return
		}
		p := ParseParams(res.Desc, c.Request.URL.Query())
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Resource added successfully",
			"data":    NewProjection(res.Desc, p).ApplyAll(recs),
		})
	}
}

func updateHandler(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := authorize(c, res.Desc)
		if !ok {
			return
		}
		payload, ok := bindRecords(c)
		if !ok {
			return
		}
		recs, err := res.Update(c.Request.Context(), caller, payload)
		if err != nil {
			respondResourceError(c, err)
			return
		}
		p := ParseParams(res.Desc, c.Request.URL.Query())
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Resource Updated successfully",
			"data":    NewProjection(res.Desc, p).ApplyAll(recs),
		})
	}
}

func patchHandler(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := authorize(c, res.Desc)
		if !ok {
			return
		}
		id, ok := idParam(c)
		if !ok {
			return
		}
		var patch Record
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "invalid payload"})
			return
		}
		rec, err := res.Patch(c.Request.Context(), caller, id, patch)
		if err != nil {
			respondResourceError(c, err)
			return
		}
		p := ParseParams(res.Desc, c.Request.URL.Query())
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "obj updated successfully",
			"data":    NewProjection(res.Desc, p).Apply(rec),
		})
	}
}

func deleteHandler(res *Resource) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := authorize(c, res.Desc)
		if !ok {
			return
		}
		id, ok := idParam(c)
		if !ok {
			return
		}
		if err := res.Delete(c.Request.Context(), caller, id); err != nil {
			respondResourceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func associationBatchHandler(res *AssociationResource) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := authorize(c, res.Desc)
		if !ok {
			return
		}
		items, ok := bindRecords(c)
		if !ok {
			return
		}
		if err := res.ApplyBatch(c.Request.Context(), caller, items); err != nil {
			respondResourceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Updated Successfully",
			"data":    items,
		})
	}
}

// bindRecords accepts a single JSON object or an array of objects.
func bindRecords(c *gin.Context) ([]Record, bool) {
	var raw any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "invalid payload"})
		return nil, false
	}
	switch v := raw.(type) {
	case map[string]any:
		return []Record{Record(v)}, true
	case []any:
		out := make([]Record, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "invalid payload"})
				return nil, false
			}
			out = append(out, Record(m))
		}
		return out, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "invalid payload"})
		return nil, false
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Resource not found"})
		return 0, false
	}
	return id, true
}

// respondResourceError maps the error taxonomy onto the JSON envelope.
func respondResourceError(c *gin.Context, err error) {
	if store, ok := domain.AsStoreError(err); ok {
		status := store.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": true, "message": err.Error()})
		return
	}
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": err.Error()})
	case domain.IsForbidden(err):
		c.JSON(http.StatusForbidden, gin.H{"error": true, "message": err.Error()})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Resource not found"})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": true, "message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "internal error"})
	}
}

func writeCSV(c *gin.Context, name string, proj Projection, recs []Record) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="`+name+`.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	defer w.Flush()
	if len(recs) == 0 {
		return
	}
	cols := proj.Columns(recs[0])
	w.Write(cols)
	for _, rec := range recs {
		row := make([]string, len(cols))
		for i, col := range cols {
			if v := rec[col]; v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		w.Write(row)
	}
}
