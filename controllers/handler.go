package controllers

import (
	"boostpanel-backend/middlewares"
	"boostpanel-backend/services"

	"gorm.io/gorm"
)

// Handler bundles the collaborators the HTTP handlers call into.
type Handler struct {
	DB         *gorm.DB
	Keys       *services.KeyStore
	Catalog    *services.Catalog
	Redemption *services.Redemption
	Orders     *services.OrderLookup
	Logs       *services.LogSink
	Dashboard  *services.Dashboard
	Auth       *services.AdminAuth
	Guard      *middlewares.AdminGuard
}
