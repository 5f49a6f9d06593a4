package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"bakery-service/internal/auth"
	"bakery-service/internal/cart"
	"bakery-service/internal/invoice"
	"bakery-service/internal/orders"
	"bakery-service/internal/payments"
	"bakery-service/internal/products"
	"bakery-service/internal/recipes"
	"bakery-service/internal/users"
	"bakery-service/middleware"
	"bakery-service/pkg/apperr"
	"bakery-service/pkg/ctxmanage"
	"bakery-service/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Deps are the workflows served over HTTP.
type Deps struct {
	Users         *users.Conf
	Products      *products.Conf
	Cart          *cart.Conf
	Orders        *orders.Conf
	Invoices      *invoice.Conf
	Recipes       *recipes.Conf
	StripeWebhook payments.Webhook
	// Verbose exposes upstream causes in error messages; off in production.
	Verbose bool
}

type Handler struct {
	Deps
	validate *validator.Validate
}

func NewHandler(d Deps) (*Handler, error) {
	if d.Users == nil || d.Products == nil || d.Cart == nil || d.Orders == nil || d.Invoices == nil || d.Recipes == nil {
		return nil, errors.New("handlers: every workflow must be provided")
	}
	return &Handler{Deps: d, validate: validator.New()}, nil
}

func API(endpointPrefix, mode string, a *auth.Keys, d Deps) (*gin.Engine, error) {
	if mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if mode == gin.TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	h, err := NewHandler(d)
	if err != nil {
		return nil, err
	}
	m, err := middleware.NewMid(a, d.Users)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	//apply middleware to all the endpoints using r.Use
	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	api := r.Group(endpointPrefix)

	u := api.Group("/users")
	{
		u.POST("/register", h.Register)
		u.POST("/login", h.Login)
		u.POST("/admin", h.AdminLogin)
		u.POST("/find-by-email", h.FindByEmail)
		u.GET("/me", m.Authentication(), m.Authorize(h.Me, auth.CapabilityUser))
	}

	p := api.Group("/products")
	{
		p.GET("/list", h.ListProducts)
		p.GET("/single/:id", h.SingleProduct)
		p.POST("/add", m.Authentication(), m.Authorize(h.AddProduct, auth.CapabilityAdmin))
		p.DELETE("/remove/:id", m.Authentication(), m.Authorize(h.RemoveProduct, auth.CapabilityAdmin))
	}

	c := api.Group("/cart", m.Authentication())
	{
		c.POST("/get", m.Authorize(h.GetCart, auth.CapabilityUser))
		c.POST("/add", m.Authorize(h.AddToCart, auth.CapabilityUser))
		c.POST("/update", m.Authorize(h.UpdateCart, auth.CapabilityUser))
		c.POST("/remove", m.Authorize(h.RemoveFromCart, auth.CapabilityUser))
		c.POST("/clear", m.Authorize(h.ClearCart, auth.CapabilityUser))
		c.POST("/count", m.Authorize(h.CartCount, auth.CapabilityUser))
	}

	o := api.Group("/orders")
	{
		// Stripe calls this one without a bearer token
		o.POST("/webhook", h.Webhook)

		o.Use(m.Authentication())
		o.POST("/place", m.Authorize(h.PlaceOrder, auth.CapabilityUser))
		o.GET("/user-orders", m.Authorize(h.UserOrders, auth.CapabilityUser))
		o.GET("/all", m.Authorize(h.AllOrders, auth.CapabilityAdmin))
		o.PUT("/update-status", m.Authorize(h.UpdateStatus, auth.CapabilityAdmin))
		o.GET("/invoice/:orderId", m.Authorize(h.DownloadInvoice, auth.CapabilityUser, auth.CapabilityAdmin))
		o.POST("/send-invoice/:orderId", m.Authorize(h.SendInvoice, auth.CapabilityAdmin))
	}

	rc := api.Group("/recipes", m.Authentication())
	{
		rc.POST("/generate", m.Authorize(h.GenerateRecipe, auth.CapabilityUser, auth.CapabilityAdmin))
	}

	return r, nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// fail answers err with the error envelope. The message of an upstream
// failure only carries its cause outside production.
func (h *Handler) fail(c *gin.Context, err error) {
	body := gin.H{"success": false, "message": apperr.Message(err, h.Verbose)}
	if details := apperr.DetailsOf(err); details != nil {
		body["details"] = details
	}
	c.AbortWithStatusJSON(apperr.Status(err), body)
}

// principal returns the identity attached by the Authentication middleware.
func (h *Handler) principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.PrincipalFrom(c.Request.Context())
	if !ok {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		slog.Error("principal not found", slog.String(logkey.TraceID, traceId))
		h.fail(c, apperr.Unauthorized("User not authenticated"))
	}
	return p, ok
}

// bindJSON decodes the body into v and runs its validate tags.
func (h *Handler) bindJSON(c *gin.Context, v any) bool {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	if err := c.ShouldBindJSON(v); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, apperr.Invalid("Invalid request body", nil))
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		h.fail(c, validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return apperr.Invalid(http.StatusText(http.StatusBadRequest), nil)
	}

	var msgs []string
	for _, vErr := range vErrs {
		switch vErr.Tag() {
		case "required":
			msgs = append(msgs, vErr.Field()+" is required")
		case "email":
			msgs = append(msgs, "Please enter a valid email")
		case "min":
			if vErr.Field() == "Password" {
				msgs = append(msgs, "Please enter a strong password")
				continue
			}
			msgs = append(msgs, vErr.Field()+" value is less than "+vErr.Param())
		case "oneof":
			msgs = append(msgs, vErr.Field()+" must be one of "+vErr.Param())
		default:
			msgs = append(msgs, vErr.Field()+" is invalid")
		}
	}
	if len(msgs) == 1 {
		return apperr.Invalid(msgs[0], nil)
	}
	return apperr.Invalid("Validation failed", msgs)
}
