package controllers

import (
	"errors"
	"time"

	"boostpanel-backend/logger"
	"boostpanel-backend/middlewares"
	"boostpanel-backend/models"
	"boostpanel-backend/services"
	"boostpanel-backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ValidateKeyDTO struct {
	KeyValue string `json:"keyValue" validate:"required,max=64"`
}

type OrderCreateDTO struct {
	KeyValue  string `json:"keyValue" validate:"required,max=64"`
	ServiceID uint   `json:"serviceId" validate:"required"`
	TargetURL string `json:"targetUrl" validate:"required,url,max=2048"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// orderView is what the public endpoints expose: the key is masked and the
// provider configuration of the service is left out.
type orderView struct {
	OrderID         string     `json:"orderId"`
	Status          string     `json:"status"`
	TargetURL       string     `json:"targetUrl"`
	Quantity        int        `json:"quantity"`
	ProviderOrderID string     `json:"providerOrderId,omitempty"`
	Response        string     `json:"response,omitempty"`
	ErrorMessage    string     `json:"errorMessage,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	CompletedAt     *time.Time `json:"completedAt"`
	Service         *struct {
		ID       uint   `json:"id"`
		Name     string `json:"name"`
		Platform string `json:"platform"`
		Type     string `json:"type"`
	} `json:"service,omitempty"`
	Key string `json:"key,omitempty"`
}

func newOrderView(o *models.Order) orderView {
	v := orderView{
		OrderID:         o.OrderID,
		Status:          o.Status,
		TargetURL:       o.TargetURL,
		Quantity:        o.Quantity,
		ProviderOrderID: o.ProviderOrderID,
		Response:        o.Response,
		ErrorMessage:    o.ErrorMessage,
		CreatedAt:       o.CreatedAt,
		CompletedAt:     o.CompletedAt,
	}
	if o.Service != nil {
		v.Service = &struct {
			ID       uint   `json:"id"`
			Name     string `json:"name"`
			Platform string `json:"platform"`
			Type     string `json:"type"`
		}{o.Service.ID, o.Service.Name, o.Service.Platform, o.Service.Type}
	}
	if o.Key != nil {
		v.Key = logger.Redact(o.Key.Value)
	}
	return v
}

// POST /api/validate-key
func (h *Handler) ValidateKey(c *fiber.Ctx) error {
	var in ValidateKeyDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	key, err := h.Redemption.ValidateKey(c.UserContext(), in.KeyValue)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"valid":       true,
		"type":        key.Type,
		"maxQuantity": key.MaxQuantity,
		"remaining":   key.Remaining(),
	})
}

// POST /api/orders
func (h *Handler) CreateOrder(c *fiber.Ctx) error {
	var in OrderCreateDTO
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	order, err := h.Redemption.Submit(c.UserContext(), services.OrderRequest{
		KeyValue:  in.KeyValue,
		ServiceID: in.ServiceID,
		TargetURL: in.TargetURL,
		Quantity:  in.Quantity,
	})
	if err != nil {
		// The order exists when the provider call failed; hand it back so the
		// customer can quote the order id.
		var se *services.Error
		if order != nil && errors.As(err, &se) && se.Kind == services.KindUpstream {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": err.Error(),
				"code":    se.Code,
				"order":   newOrderView(order),
			})
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "success",
		"order":   newOrderView(order),
	})
}

// GET /api/orders/search/:orderId
func (h *Handler) SearchOrder(c *fiber.Ctx) error {
	refresh := c.QueryBool("refresh", false)
	res, err := h.Orders.Search(c.UserContext(), c.Params("orderId"), refresh)
	if err != nil {
		return err
	}
	out := fiber.Map{"order": newOrderView(res.Order)}
	if refresh {
		out["refreshed"] = res.Refreshed
		if res.RefreshError != "" {
			out["refreshError"] = res.RefreshError
		}
	}
	return c.JSON(out)
}
