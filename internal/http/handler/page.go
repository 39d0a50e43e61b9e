package handler

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"pdfedit/internal/service"
)

const defaultRotation = 90

func pageIndex(c *fiber.Ctx) (int, bool) {
	n, err := strconv.Atoi(c.Params("index"))
	return n, err == nil
}

// pageTarget reads the :id and :index parameters. On failure the 400 response is already written.
func pageTarget(c *fiber.Ctx) (string, int, bool) {
	id, ok := documentID(c)
	if !ok {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		return "", 0, false
	}
	page, ok := pageIndex(c)
	if !ok {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_INDEX", "page index must be an integer")
		return "", 0, false
	}
	return id, page, true
}

// RenderPage godoc
// @Summary  Page raster
// @Tags     pages
// @Produce  png
// @Param    id     path   string  true   "document id"
// @Param    index  path   int     true   "page index"
// @Param    scale  query  number  false  "zoom factor"
// @Success  200
// @Failure  400  {object}  errorPayload
// @Router   /documents/{id}/pages/{index}/render [get]
func RenderPage(svc service.RenderService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, page, ok := pageTarget(c)
		if !ok {
			return nil
		}
		scale := svc.DefaultScale()
		if raw := c.Query("scale"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_SCALE", "scale must be a number")
			}
			scale = v
		}

		b, hit, err := svc.Render(c.UserContext(), id, page, scale)
		if err != nil {
			return respondError(c, err)
		}
		cache := "MISS"
		if hit {
			cache = "HIT"
		}
		c.Set("X-Render-Cache", cache)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderContentType, "image/png")
		return c.Send(b)
	}
}

type rotateRequest struct {
	Angle *int `json:"angle"`
}

// RotatePage godoc
// @Summary  Set page rotation
// @Tags     pages
// @Accept   json
// @Produce  json
// @Param    id     path   string         true   "document id"
// @Param    index  path   int            true   "page index"
// @Param    angle  query  int            false  "degrees, multiple of 90"  default(90)
// @Param    body   body   rotateRequest  false  "alternative to the query parameter"
// @Success  200  {object}  model.Document
// @Failure  400  {object}  errorPayload
// @Router   /documents/{id}/pages/{index}/rotate [post]
func RotatePage(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, page, ok := pageTarget(c)
		if !ok {
			return nil
		}
		angle := defaultRotation
		if raw := c.Query("angle"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_ANGLE", "angle must be an integer")
			}
			angle = v
		} else if len(bytes.TrimSpace(c.Body())) > 0 {
			var req rotateRequest
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be {\"angle\": n}")
			}
			if req.Angle != nil {
				angle = *req.Angle
			}
		}

		doc, err := svc.Rotate(c.UserContext(), id, page, angle)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

// DuplicatePage godoc
// @Summary  Insert a copy of a page after it
// @Tags     pages
// @Produce  json
// @Param    id     path  string  true  "document id"
// @Param    index  path  int     true  "page index"
// @Success  200  {object}  model.Document
// @Failure  400  {object}  errorPayload
// @Router   /documents/{id}/pages/{index}/duplicate [post]
func DuplicatePage(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, page, ok := pageTarget(c)
		if !ok {
			return nil
		}
		doc, err := svc.Duplicate(c.UserContext(), id, page)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeletePage godoc
// @Summary  Delete a page
// @Tags     pages
// @Produce  json
// @Param    id     path  string  true  "document id"
// @Param    index  path  int     true  "page index"
// @Success  200  {object}  model.Document
// @Failure  400  {object}  errorPayload
// @Router   /documents/{id}/pages/{index} [delete]
func DeletePage(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, page, ok := pageTarget(c)
		if !ok {
			return nil
		}
		doc, err := svc.DeletePage(c.UserContext(), id, page)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

type reorderRequest struct {
	Order []int `json:"order"`
}

// ReorderPages godoc
// @Summary      Reorder pages
// @Description  Body is either a bare array or {"order": [...]}; new page i is old page order[i].
// @Tags         pages
// @Accept       json
// @Produce      json
// @Param        id    path  string          true  "document id"
// @Param        body  body  reorderRequest  true  "permutation"
// @Success      200  {object}  model.Document
// @Failure      400  {object}  errorPayload
// @Router       /documents/{id}/pages/reorder [post]
func ReorderPages(svc service.PageService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var raw json.RawMessage
		if err := c.BodyParser(&raw); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be an array of page indices or {\"order\": [...]}")
		}
		order, err := parseOrder(raw)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be an array of page indices or {\"order\": [...]}")
		}
		doc, err := svc.Reorder(c.UserContext(), id, order)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

func parseOrder(body []byte) ([]int, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var order []int
		err := json.Unmarshal(body, &order)
		return order, err
	}
	var req reorderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return req.Order, nil
}
