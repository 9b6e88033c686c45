package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Renal37/auto-speed-shop/internal/logger"
	"github.com/Renal37/auto-speed-shop/internal/middlewares"
	"github.com/Renal37/auto-speed-shop/internal/models"
	"github.com/go-chi/chi/v5"
)

type Config struct {
	// Endpoint адрес и порт, на которых сервер будет слушать входящие запросы.
	Endpoint string
}

// StatusStream подписка на изменения статуса заказа по websocket.
type StatusStream interface {
	Serve(w http.ResponseWriter, r *http.Request, current models.OrderStatusEvent) error
}

type Router struct {
	config         Config
	authService    models.AuthService
	jwtService     models.JWTService
	orderService   models.OrderService
	paymentService models.PaymentService
	statusStream   StatusStream
	server         *http.Server
}

// New создает новый экземпляр Router с заданными зависимостями.
// statusStream может быть nil, тогда подписка на статусы отключена.
func New(
	config Config,
	authService models.AuthService,
	jwtService models.JWTService,
	orderService models.OrderService,
	paymentService models.PaymentService,
	statusStream StatusStream,
) *Router {
	router := &Router{
		config:         config,
		authService:    authService,
		jwtService:     jwtService,
		orderService:   orderService,
		paymentService: paymentService,
		statusStream:   statusStream,
	}

	router.server = &http.Server{
		Addr:              config.Endpoint,
		Handler:           router.get(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return router
}

// get возвращает настроенный роутер.
func (router *Router) get() chi.Router {
	r := chi.NewRouter()

	r.Use(
		// Инжектор сервисов для предоставления сервисов в обработчиках.
		middlewares.ServiceInjectorMiddleware(
			router.authService,
			router.jwtService,
			router.orderService,
			router.paymentService,
		),
		logger.RequestLogger,
		middlewares.AuthMiddleware().
			WithExcludedPaths(
				"/api/user/register",
				"/api/user/login",
			).
			WithOptionalPaths(
				"/api/paypal/",
				"/api/orders/status",
				"/api/orders/ws",
			).
			WithQueryTokenPaths(
				"/api/orders/ws",
			).
			Middleware,
	)

	r.Route("/api/user", func(r chi.Router) {
		r.With(middlewares.JSONMiddleware[models.UnknownUser]).Post("/register", Register)
		r.With(middlewares.JSONMiddleware[models.UnknownUser]).Post("/login", Login)
	})

	r.Route("/api/paypal", func(r chi.Router) {
		r.With(middlewares.JSONMiddleware[models.CheckoutRequest]).Post("/create-order", CreatePayPalOrder)
		r.With(middlewares.JSONMiddleware[models.CaptureRequest]).Post("/capture-order", CapturePayPalOrder)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", GetOrders)
		r.Get("/status", GetOrderStatus)
		r.Get("/ws", router.SubscribeOrderStatus)

		// Маршруты администратора.
		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequireAdmin)
			r.With(middlewares.JSONMiddleware[models.StatusUpdate]).Patch("/update-status", UpdateOrderStatus)
			r.Get("/transitions", GetAllowedTransitions)
		})
	})

	return r
}

// Run запускает HTTP сервер и блокируется до его остановки.
func (router *Router) Run() error {
	logger.Log.Info("server is starting on " + router.config.Endpoint)

	if err := router.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Shutdown останавливает сервер, дожидаясь завершения текущих запросов.
func (router *Router) Shutdown(ctx context.Context) error {
	return router.server.Shutdown(ctx)
}
