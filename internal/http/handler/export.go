package handler

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"pdfedit/internal/service"
)

// ExportDocument godoc
// @Summary      Export the composed PDF
// @Description  Paints the saved edit model onto a copy of the document. Records that cannot be painted are skipped and counted.
// @Tags         export
// @Produce      application/pdf
// @Param        id  path  string  true  "document id"
// @Success      200
// @Failure      404  {object}  errorPayload
// @Router       /documents/{id}/export [get]
func ExportDocument(svc service.ExportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := documentID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		res, err := svc.Export(c.UserContext(), id)
		if err != nil {
			return respondError(c, err)
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
		c.Set("X-Annotations-Painted", strconv.Itoa(res.Painted))
		c.Set("X-Annotations-Skipped", strconv.Itoa(res.Skipped))
		return c.Send(res.Data)
	}
}
