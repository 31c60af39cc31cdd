package controllers

import (
	"boostpanel-backend/database"
	"boostpanel-backend/middlewares"
	"boostpanel-backend/services"
	"boostpanel-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type KeyCreateDTO struct {
	Value       string `json:"value" validate:"omitempty,min=4,max=64"`
	Type        string `json:"type" validate:"omitempty,oneof=single multi"`
	MaxQuantity int    `json:"maxQuantity" validate:"min=0"`
	Note        string `json:"note" validate:"max=255"`
}

type KeyGenerateDTO struct {
	Count       int    `json:"count" validate:"required,min=1,max=1000"`
	Prefix      string `json:"prefix" validate:"omitempty,alphanum,max=16"`
	Type        string `json:"type" validate:"omitempty,oneof=single multi"`
	MaxQuantity int    `json:"maxQuantity" validate:"min=0"`
	Note        string `json:"note" validate:"max=255"`
}

// GET /api/keys?status=used|unused&search=&limit=&offset=
func (h *Handler) ListKeys(c *fiber.Ctx) error {
	keys, total, err := h.Keys.List(c.UserContext(), services.KeyFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
		Limit:  utils.ParseIntDefault(c.Query("limit"), 50),
		Offset: utils.ParseIntDefault(c.Query("offset"), 0),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"keys": keys, "total": total})
}

// GET /api/keys/stats
func (h *Handler) KeyStats(c *fiber.Ctx) error {
	st, err := h.Keys.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(st)
}

// POST /api/keys
func (h *Handler) CreateKey(c *fiber.Ctx) error {
	var in KeyCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	key, err := h.Keys.WithTx(database.Conn(c, nil)).Create(c.UserContext(), services.NewKey{
		Value:       in.Value,
		Type:        in.Type,
		MaxQuantity: in.MaxQuantity,
		Note:        in.Note,
		CreatedBy:   middlewares.ActorID(c),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(key)
}

// POST /api/keys/generate
func (h *Handler) GenerateKeys(c *fiber.Ctx) error {
	var in KeyGenerateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	keys, err := h.Keys.WithTx(database.Conn(c, nil)).Generate(c.UserContext(), services.GenerateKeys{
		Count:       in.Count,
		Prefix:      in.Prefix,
		Type:        in.Type,
		MaxQuantity: in.MaxQuantity,
		Note:        in.Note,
		CreatedBy:   middlewares.ActorID(c),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"keys": keys, "count": len(keys)})
}

// DELETE /api/keys/:id
func (h *Handler) DeleteKey(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid key id")
	}
	if err := h.Keys.WithTx(database.Conn(c, nil)).Delete(c.UserContext(), uint(id), middlewares.ActorID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "success"})
}
