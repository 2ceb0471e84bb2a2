package v1

import (
	"github.com/gin-gonic/gin"

	"tender-server/internal/interfaces/httpserver/handlers/attachmenthandler"
	"tender-server/internal/interfaces/httpserver/handlers/chathandler"
	"tender-server/internal/interfaces/httpserver/handlers/companyhandler"
	"tender-server/internal/interfaces/httpserver/handlers/ratinghandler"
	"tender-server/internal/interfaces/httpserver/handlers/tenderhandler"
)

// V1Route registers the /v1 API.
type V1Route struct {
	company    *companyhandler.CompanyHandler
	tender     *tenderhandler.TenderHandler
	rating     *ratinghandler.RatingHandler
	chat       *chathandler.ChatHandler
	attachment *attachmenthandler.AttachmentHandler

	auth           gin.HandlerFunc
	requireCompany gin.HandlerFunc
}

// NewV1Route wires the handlers behind the given auth and company middlewares.
func NewV1Route(
	company *companyhandler.CompanyHandler,
	tender *tenderhandler.TenderHandler,
	rating *ratinghandler.RatingHandler,
	chat *chathandler.ChatHandler,
	attachment *attachmenthandler.AttachmentHandler,
	auth gin.HandlerFunc,
	requireCompany gin.HandlerFunc,
) *V1Route {
	return &V1Route{
		company:        company,
		tender:         tender,
		rating:         rating,
		chat:           chat,
		attachment:     attachment,
		auth:           auth,
		requireCompany: requireCompany,
	}
}

func (route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1", route.auth)

	// Company onboarding only needs an authenticated user.
	companies := v1Router.Group("/companies")
	companies.POST("", route.company.Create)
	companies.GET("", route.company.List)
	companies.GET("/me", route.company.GetMine)
	companies.GET("/:id", route.company.Get)
	companies.PATCH("/:id", route.company.Update)
	companies.GET("/:id/ratings", route.rating.ListForCompany)

	member := v1Router.Group("", route.requireCompany)

	tenders := member.Group("/tenders")
	tenders.POST("", route.tender.Create)
	tenders.GET("", route.tender.List)
	tenders.GET("/:id", route.tender.Get)
	tenders.PATCH("/:id", route.tender.Update)
	tenders.POST("/:id/cancel", route.tender.Cancel)
	tenders.POST("/:id/requests", route.tender.SubmitRequest)
	tenders.GET("/:id/requests", route.tender.ListRequests)

	tenderRequests := member.Group("/tender-requests")
	tenderRequests.GET("/mine", route.tender.ListMine)
	tenderRequests.POST("/:id/accept", route.tender.Accept)
	tenderRequests.POST("/:id/withdraw", route.tender.Withdraw)

	member.POST("/ratings", route.rating.Submit)

	chat := member.Group("/chat")
	chat.POST("/rooms", route.chat.CreateRoom)
	chat.GET("/rooms", route.chat.ListRooms)
	chat.GET("/rooms/:id", route.chat.GetRoom)
	chat.GET("/rooms/:id/messages", route.chat.ListMessages)
	chat.POST("/rooms/:id/messages", route.chat.SendMessage)
	chat.POST("/rooms/:id/read", route.chat.MarkRead)
	chat.GET("/ws", route.chat.Stream)

	attachments := member.Group("/attachments")
	attachments.POST("", route.attachment.Upload)
	attachments.GET("/url", route.attachment.URL)
}
