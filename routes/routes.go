package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/xtocast/contest-voting-go/config"
	controllers "github.com/xtocast/contest-voting-go/controllers"
	middleware "github.com/xtocast/contest-voting-go/middleware"
	services "github.com/xtocast/contest-voting-go/services"
	store "github.com/xtocast/contest-voting-go/store"
	utils "github.com/xtocast/contest-voting-go/utils"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, s store.Store) {
	gateway := utils.NewPaystackClient(cfg.PaystackSecretKey, cfg.PaystackBaseURL)
	notifier := utils.NewSMSClient(cfg.KairosAPIKey, cfg.KairosAPISecret, cfg.SMSSender, cfg.SMSBaseURL)
	recorder := services.NewVoteRecorder(s, notifier)

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method not allowed"})
	})

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// public reads
	r.GET("/contests", controllers.ListContests(s))
	r.GET("/contests/:slug", controllers.GetContest(s))
	r.GET("/categories/:categorySlug", controllers.GetCategory(s))
	r.GET("/nominees/:slug/:categorySlug/:nomineeSlug", controllers.GetNominee(s))

	// payments
	payments := r.Group("/payments")
	{
		payments.POST("/initialize", controllers.InitializePayment(cfg, s, gateway))
		payments.GET("/verify", controllers.VerifyPayment(recorder, gateway))
		payments.POST("/webhook", controllers.PaymentWebhook(recorder, gateway))
	}

	// admin (reconciliation)
	auth := middleware.AuthMiddleware(cfg)

	txns := r.Group("/transactions")
	txns.Use(auth)
	{
		txns.GET("", controllers.ListTransactions(s))
		txns.GET("/unreconciled", controllers.ListUnreconciledTransactions(s))
	}
}
