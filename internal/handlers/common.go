package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lexkeep/dyndocs/internal/services"
	"github.com/lexkeep/dyndocs/internal/utils"
)

// parseID extracts a numeric path parameter.
func parseID(c *fiber.Ctx, name string) (uint64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// parseIDQuery extracts a numeric query parameter list, supporting both
// repeated keys and comma-separated values.
func parseIDQuery(c *fiber.Ctx, name string) []uint64 {
	seen := make(map[uint64]struct{})
	var ids []uint64

	args := c.Context().QueryArgs()
	for key, value := range args.All() {
		if string(key) != name {
			continue
		}
		for _, v := range strings.Split(string(value), ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil || id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	return ids
}

// parseStringQuery extracts a string query parameter list the same way.
func parseStringQuery(c *fiber.Ctx, name string) []string {
	seen := make(map[string]struct{})
	var values []string

	args := c.Context().QueryArgs()
	for key, value := range args.All() {
		if string(key) != name {
			continue
		}
		for _, v := range strings.Split(string(value), ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			values = append(values, v)
		}
	}

	return values
}

// serviceErrorResponse maps service layer errors onto the JSON error contract.
func serviceErrorResponse(c *fiber.Ctx, err error, errorType string) error {
	var precondition *services.PreconditionError
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.NotFoundResponse(c, "Not found")
	case errors.Is(err, services.ErrVersion):
		return utils.VersionErrorResponse(c)
	case errors.Is(err, services.ErrForbidden):
		return utils.ForbiddenResponse(c, "Operation not permitted")
	case errors.Is(err, services.ErrUsabilityWithoutVisibility):
		return utils.ValidationErrorResponse(c, err.Error(),
			map[string]string{"usability": "usability requires visibility"})
	case errors.Is(err, services.ErrSignatureSettled):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict, "signatures.settled")
	case errors.As(err, &precondition):
		return utils.ValidationErrorResponse(c, precondition.Reason,
			map[string]string{precondition.Field: precondition.Reason})
	default:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, errorType)
	}
}
