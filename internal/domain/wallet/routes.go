package wallet

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the caller's own wallet endpoints. The group must
// already carry authentication.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	wallets := rg.Group("/wallets/me")
	{
		wallets.GET("", h.GetMyWallet)
		wallets.GET("/transactions", h.ListMyTransactions)
	}
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/wallets/:user_id/credit", h.CreditUser)
}
