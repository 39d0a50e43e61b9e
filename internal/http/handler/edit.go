package handler

import (
	"github.com/gofiber/fiber/v2"

	"pdfedit/internal/model"
	"pdfedit/internal/service"
)

// GetEdits godoc
// @Summary      Load the edit model
// @Description  A document without a saved model, known or not, returns an empty version 1 model.
// @Tags         edits
// @Produce      json
// @Param        id  path  string  true  "document id"
// @Success      200  {object}  model.EditModel
// @Failure      400  {object}  errorPayload
// @Router       /documents/{id}/edits [get]
func GetEdits(svc service.EditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		m, err := svc.Load(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(m)
	}
}

// SaveEdits godoc
// @Summary      Save the edit model
// @Description  Replaces the stored model. Annotation records are kept verbatim.
// @Tags         edits
// @Accept       json
// @Produce      json
// @Param        id    path  string           true  "document id"
// @Param        body  body  model.EditModel  true  "edit model"
// @Success      200  {object}  model.EditModel
// @Failure      400  {object}  errorPayload
// @Failure      404  {object}  errorPayload
// @Router       /documents/{id}/edits [put]
func SaveEdits(svc service.EditService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var m model.EditModel
		if err := c.BodyParser(&m); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be an edit model object")
		}
		saved, err := svc.Save(c.UserContext(), id, &m)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(saved)
	}
}
