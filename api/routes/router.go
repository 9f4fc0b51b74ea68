package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcampos/minimart-backend/api/controllers"
	"github.com/jmcampos/minimart-backend/api/middleware"
	authsvc "github.com/jmcampos/minimart-backend/internal/auth"
	cartsvc "github.com/jmcampos/minimart-backend/internal/cart"
	checkoutsvc "github.com/jmcampos/minimart-backend/internal/checkout"
	ordersvc "github.com/jmcampos/minimart-backend/internal/orders"
	productsvc "github.com/jmcampos/minimart-backend/internal/products"
	usersvc "github.com/jmcampos/minimart-backend/internal/users"
	"github.com/jmcampos/minimart-backend/pkg/config"
	"github.com/jmcampos/minimart-backend/pkg/enums"
	"github.com/jmcampos/minimart-backend/pkg/logger"
	"github.com/jmcampos/minimart-backend/pkg/metrics"
	redisclient "github.com/jmcampos/minimart-backend/pkg/redis"
	"github.com/jmcampos/minimart-backend/pkg/session"
)

// RouterParams collects everything the HTTP surface needs.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redisclient.Client
	Sessions    session.Reader
	HTTPMetrics *metrics.HTTPMetrics

	Auth     authsvc.Service
	Products productsvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service
	Users    usersvc.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(p.HTTPMetrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).
			Post("/register", controllers.Register(p.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).
			Post("/login", controllers.Login(p.Auth, logg))

		r.With(middleware.AuthAllowPending(cfg.JWT, p.Sessions, logg)).
			Post("/verify-2fa", controllers.Verify2FA(p.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Post("/logout", controllers.Logout(p.Auth, logg))
			r.Post("/2fa/setup", controllers.BeginTwoFASetup(p.Auth, logg))
			r.Post("/2fa/confirm", controllers.ConfirmTwoFASetup(p.Auth, logg))
			r.Post("/2fa/disable", controllers.DisableTwoFA(p.Auth, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(p.Products, logg))
		r.Get("/{productID}", controllers.GetProduct(p.Products, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.ViewCart(p.Cart, logg))
			r.Post("/", controllers.AddToCart(p.Cart, logg))
			r.Patch("/{productID}", controllers.UpdateCartQuantity(p.Cart, logg))
			r.Delete("/{productID}", controllers.RemoveFromCart(p.Cart, logg))
			r.Delete("/", controllers.ClearCart(p.Cart, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/preview", controllers.CheckoutPreview(p.Checkout, logg))
			r.Post("/", controllers.Checkout(p.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(p.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(p.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
		r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(p.Products, logg))
			r.Post("/", controllers.AdminCreateProduct(p.Products, logg))
			r.Patch("/{productID}", controllers.AdminUpdateProduct(p.Products, logg))
			r.Delete("/{productID}", controllers.AdminDeleteProduct(p.Products, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(p.Orders, logg))
			r.Get("/{orderID}", controllers.AdminGetOrder(p.Orders, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(p.Users, logg))
			r.Post("/", controllers.AdminAddUser(p.Users, logg))
			r.Patch("/{userID}", controllers.AdminUpdateUser(p.Users, logg))
			r.Delete("/{userID}", controllers.AdminDeleteUser(p.Users, logg))
		})
	})

	return r
}
