package controllers

import (
	"fmt"
	"time"

	"boostpanel-backend/middlewares"
	"boostpanel-backend/models"
	"boostpanel-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

type ServiceCreateDTO struct {
	Name            string            `json:"name" validate:"required,max=255"`
	Platform        string            `json:"platform" validate:"required,max=64"`
	Type            string            `json:"type" validate:"required,max=64"`
	Description     string            `json:"description" validate:"max=2000"`
	IsActive        *bool             `json:"isActive"`
	APIEndpoint     string            `json:"apiEndpoint" validate:"required,url"`
	APIMethod       string            `json:"apiMethod" validate:"omitempty,oneof=GET POST PUT PATCH get post put patch"`
	APIHeaders      map[string]string `json:"apiHeaders"`
	RequestTemplate datatypes.JSON    `json:"requestTemplate"`
	StatusEndpoint  string            `json:"statusEndpoint" validate:"omitempty,url"`
	MinQuantity     int               `json:"minQuantity" validate:"min=0"`
	MaxQuantity     int               `json:"maxQuantity" validate:"min=0"`
}

// ServiceUpdateDTO only touches the fields that were sent.
type ServiceUpdateDTO struct {
	Name            *string            `json:"name" validate:"omitempty,min=1,max=255"`
	Platform        *string            `json:"platform" validate:"omitempty,min=1,max=64"`
	Type            *string            `json:"type" validate:"omitempty,min=1,max=64"`
	Description     *string            `json:"description" validate:"omitempty,max=2000"`
	IsActive        *bool              `json:"isActive"`
	APIEndpoint     *string            `json:"apiEndpoint" validate:"omitempty,url"`
	APIMethod       *string            `json:"apiMethod" validate:"omitempty,oneof=GET POST PUT PATCH get post put patch"`
	APIHeaders      *datatypes.JSONMap `json:"apiHeaders"`
	RequestTemplate *datatypes.JSON    `json:"requestTemplate"`
	StatusEndpoint  *string            `json:"statusEndpoint" validate:"omitempty,url"`
	MinQuantity     *int               `json:"minQuantity" validate:"omitempty,min=0"`
	MaxQuantity     *int               `json:"maxQuantity" validate:"omitempty,min=0"`
}

// publicService hides provider credentials from the unauthenticated catalog.
type publicService struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Platform    string `json:"platform"`
	Type        string `json:"type"`
	Description string `json:"description"`
	MinQuantity int    `json:"minQuantity"`
	MaxQuantity int    `json:"maxQuantity"`
}

func (in ServiceCreateDTO) toModel() models.Service {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	headers := datatypes.JSONMap{}
	for k, v := range in.APIHeaders {
		headers[k] = v
	}
	return models.Service{
		Name:            in.Name,
		Platform:        in.Platform,
		Type:            in.Type,
		Description:     in.Description,
		IsActive:        active,
		APIEndpoint:     in.APIEndpoint,
		APIMethod:       in.APIMethod,
		APIHeaders:      headers,
		RequestTemplate: in.RequestTemplate,
		StatusEndpoint:  in.StatusEndpoint,
		MinQuantity:     in.MinQuantity,
		MaxQuantity:     in.MaxQuantity,
	}
}

// GET /api/services (public)
func (h *Handler) ListActiveServices(c *fiber.Ctx) error {
	list, err := h.Catalog.ListActive(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]publicService, 0, len(list))
	for _, s := range list {
		out = append(out, publicService{
			ID:          s.ID,
			Name:        s.Name,
			Platform:    s.Platform,
			Type:        s.Type,
			Description: s.Description,
			MinQuantity: s.MinQuantity,
			MaxQuantity: s.MaxQuantity,
		})
	}
	return c.JSON(fiber.Map{"services": out})
}

// GET /api/services/all
func (h *Handler) ListServices(c *fiber.Ctx) error {
	list, err := h.Catalog.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"services": list})
}

// GET /api/services/:id
func (h *Handler) GetService(c *fiber.Ctx) error {
	id, err := serviceID(c)
	if err != nil {
		return err
	}
	svc, err := h.Catalog.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(svc)
}

// POST /api/services
func (h *Handler) CreateService(c *fiber.Ctx) error {
	var in ServiceCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	svc := in.toModel()
	if err := h.Catalog.Create(c.UserContext(), &svc, middlewares.ActorID(c)); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(svc)
}

// POST /api/services/bulk
func (h *Handler) BulkCreateServices(c *fiber.Ctx) error {
	var inputs []ServiceCreateDTO
	if err := c.BodyParser(&inputs); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(inputs) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no services to import")
	}

	list := make([]models.Service, 0, len(inputs))
	for i := range inputs {
		if err := middlewares.ValidateStruct(&inputs[i]); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid service at index %d: %v", i, err))
		}
		utils.NormalizeDTO(&inputs[i])
		list = append(list, inputs[i].toModel())
	}

	start := time.Now()
	res, err := h.Catalog.BulkCreate(c.UserContext(), list, middlewares.ActorID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"created":       res.Created,
		"failed":        res.Failed,
		"failedBatches": res.FailedBatches,
		"durationMs":    time.Since(start).Milliseconds(),
	})
}

// PUT /api/services/:id
func (h *Handler) UpdateService(c *fiber.Ctx) error {
	id, err := serviceID(c)
	if err != nil {
		return err
	}
	var in ServiceUpdateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	svc, err := h.Catalog.Update(c.UserContext(), id, utils.UpdatesFromPtrDTO(&in), middlewares.ActorID(c))
	if err != nil {
		return err
	}
	return c.JSON(svc)
}

// DELETE /api/services/:id
func (h *Handler) DeleteService(c *fiber.Ctx) error {
	id, err := serviceID(c)
	if err != nil {
		return err
	}
	if err := h.Catalog.Delete(c.UserContext(), id, middlewares.ActorID(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "success"})
}

func serviceID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid service id")
	}
	return uint(id), nil
}
