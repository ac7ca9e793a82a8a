package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainagg "github.com/yungbote/coursecommerce-backend/internal/domain/aggregates"
	"github.com/yungbote/coursecommerce-backend/internal/domain/commerce"
	"github.com/yungbote/coursecommerce-backend/internal/http/response"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

// WebhookHandler receives payment processor callbacks. Re-deliveries are
// answered with 200 so the processor stops retrying.
type WebhookHandler struct {
	log           *logger.Logger
	payments      domainagg.PaymentAggregate
	subscriptions domainagg.SubscriptionAggregate
}

func NewWebhookHandler(log *logger.Logger, payments domainagg.PaymentAggregate, subscriptions domainagg.SubscriptionAggregate) *WebhookHandler {
	return &WebhookHandler{
		log:           log.With("handler", "WebhookHandler"),
		payments:      payments,
		subscriptions: subscriptions,
	}
}

type paymentEventRequest struct {
	TransactionID           string    `json:"transaction_id"`
	UserID                  string    `json:"user_id"`
	CourseID                string    `json:"course_id"`
	PlanID                  string    `json:"plan_id"`
	ProcessorSubscriptionID string    `json:"processor_subscription_id"`
	AmountMinor             int64     `json:"amount_minor"`
	Currency                string    `json:"currency"`
	Method                  string    `json:"method"`
	Status                  string    `json:"status"`
	OccurredAt              time.Time `json:"occurred_at"`
}

type earnedAchievementResponse struct {
	AchievementID uuid.UUID `json:"achievement_id"`
	Code          string    `json:"code"`
	EarnedAt      time.Time `json:"earned_at"`
}

func earnedResponse(in []domainagg.EarnedAchievement) []earnedAchievementResponse {
	out := make([]earnedAchievementResponse, 0, len(in))
	for _, e := range in {
		out = append(out, earnedAchievementResponse{AchievementID: e.AchievementID, Code: e.Code, EarnedAt: e.EarnedAt})
	}
	return out
}

// POST /api/webhooks/payments
func (h *WebhookHandler) PaymentEvent(c *gin.Context) {
	var req paymentEventRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		badField(c, "user_id", err)
		return
	}
	courseID, err := optionalUUID(req.CourseID)
	if err != nil {
		badField(c, "course_id", err)
		return
	}
	planID, err := optionalUUID(req.PlanID)
	if err != nil {
		badField(c, "plan_id", err)
		return
	}
	status, ok := commerce.ParsePaymentStatus(req.Status)
	if !ok {
		badField(c, "status", errors.New("want pending, completed or failed"))
		return
	}

	res, err := h.payments.RecordPaymentEvent(c.Request.Context(), domainagg.RecordPaymentEventInput{
		TransactionID:           req.TransactionID,
		UserID:                  userID,
		CourseID:                courseID,
		PlanID:                  planID,
		ProcessorSubscriptionID: req.ProcessorSubscriptionID,
		AmountMinor:             req.AmountMinor,
		Currency:                req.Currency,
		Method:                  req.Method,
		Status:                  status,
		OccurredAt:              req.OccurredAt,
	})
	if err != nil {
		h.log.Warn("payment event rejected", "transaction_id", req.TransactionID, "error", err)
		response.RespondAPIError(c, err)
		return
	}
	body := gin.H{
		"payment_id":         res.PaymentID,
		"transaction_id":     res.TransactionID,
		"status":             res.Status,
		"previous_status":    res.PreviousStatus,
		"duplicate":          res.Duplicate,
		"transitioned":       res.Transitioned,
		"enrollment_created": res.EnrollmentCreated,
		"earned":             earnedResponse(res.EarnedAchievements),
	}
	if res.SubscriptionID != uuid.Nil {
		body["subscription_id"] = res.SubscriptionID
		body["subscription_end"] = res.SubscriptionEnd
	}
	response.RespondOK(c, body)
}

const (
	subscriptionEventOpened   = "opened"
	subscriptionEventRenewed  = "renewed"
	subscriptionEventCanceled = "canceled"
)

type subscriptionEventRequest struct {
	Event                   string    `json:"event"`
	ProcessorSubscriptionID string    `json:"processor_subscription_id"`
	UserID                  string    `json:"user_id"`
	PlanID                  string    `json:"plan_id"`
	ProcessorPlanID         string    `json:"processor_plan_id"`
	StartTime               time.Time `json:"start_time"`
	EndTime                 time.Time `json:"end_time"`
	EffectiveTime           time.Time `json:"effective_time"`
}

// POST /api/webhooks/subscriptions
func (h *WebhookHandler) SubscriptionEvent(c *gin.Context) {
	var req subscriptionEventRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	var (
		res domainagg.SubscriptionResult
		err error
	)
	switch strings.ToLower(strings.TrimSpace(req.Event)) {
	case subscriptionEventOpened:
		userID, perr := uuid.Parse(strings.TrimSpace(req.UserID))
		if perr != nil {
			badField(c, "user_id", perr)
			return
		}
		planID, perr := optionalUUID(req.PlanID)
		if perr != nil {
			badField(c, "plan_id", perr)
			return
		}
		res, err = h.subscriptions.Open(ctx, domainagg.OpenSubscriptionInput{
			UserID:                  userID,
			PlanID:                  planID,
			ProcessorPlanID:         req.ProcessorPlanID,
			ProcessorSubscriptionID: req.ProcessorSubscriptionID,
			StartTime:               req.StartTime,
			EndTime:                 req.EndTime,
		})
	case subscriptionEventRenewed:
		res, err = h.subscriptions.Renew(ctx, domainagg.RenewSubscriptionInput{
			ProcessorSubscriptionID: req.ProcessorSubscriptionID,
			NewEndTime:              req.EndTime,
		})
	case subscriptionEventCanceled:
		res, err = h.subscriptions.Cancel(ctx, domainagg.CancelSubscriptionInput{
			ProcessorSubscriptionID: req.ProcessorSubscriptionID,
			EffectiveTime:           req.EffectiveTime,
		})
	default:
		badField(c, "event", errors.New("want opened, renewed or canceled"))
		return
	}
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeAlreadyTerminal) {
			response.RespondOK(c, gin.H{
				"processor_subscription_id": req.ProcessorSubscriptionID,
				"ignored":                   true,
				"reason":                    string(domainagg.CodeAlreadyTerminal),
			})
			return
		}
		h.log.Warn("subscription event rejected", "event", req.Event, "processor_subscription_id", req.ProcessorSubscriptionID, "error", err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"subscription_id":              res.SubscriptionID,
		"user_id":                      res.UserID,
		"processor_subscription_id":    res.ProcessorSubscriptionID,
		"status":                       res.Status,
		"start_time":                   res.StartTime,
		"end_time":                     res.EndTime,
		"changed":                      res.Changed,
		"user_subscription_expires_at": res.UserSubscriptionExpiresAt,
	})
}
