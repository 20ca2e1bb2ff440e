package api

import (
	"database/sql"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/model"
)

// SubscribeRequest represents a subscription creation request.
type SubscribeRequest struct {
	UserID  int64 `json:"userID"`
	TopicID int64 `json:"topicID"`
}

// Validate implements validation.Validatable.
func (r SubscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.TopicID, validation.Required, validation.Min(int64(1))),
	)
}

// SubscriptionResponse is the wire form of a subscription. Detached
// references are null.
type SubscriptionResponse struct {
	ID           int64     `json:"id"`
	UserID       *int64    `json:"userID"`
	TopicID      *int64    `json:"topicID"`
	SubscribedAt time.Time `json:"subscribedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func toSubscriptionResponse(sub model.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:           sub.ID,
		UserID:       nullableID(sub.UserID),
		TopicID:      nullableID(sub.TopicID),
		SubscribedAt: sub.SubscribedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
}

func toSubscriptionResponses(subs []model.Subscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionResponse(sub))
	}
	return out
}

// HandleSubscribe handles POST /api/v1/subscriptions
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !h.decode(w, r, &req) {
		return
	}

	sub, err := h.directory.Subscribe(r.Context(), req.UserID, req.TopicID)
	if err != nil {
		h.respondFailure(w, err, "create subscription")
		return
	}
	h.respondSuccess(w, http.StatusCreated, toSubscriptionResponse(sub), "Subscription created successfully")
}

// HandleListSubscriptions handles GET /api/v1/subscriptions?userID=
func (h *Handler) HandleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, err := queryInt(r, "userID")
	if err != nil || userID == 0 {
		h.respondError(w, http.StatusBadRequest, "userID query parameter is required", relay.ErrCodeValidation)
		return
	}

	subs, err := h.directory.SubscriptionsByUser(r.Context(), userID)
	if err != nil {
		h.respondFailure(w, err, "list subscriptions")
		return
	}
	h.respondSuccess(w, http.StatusOK, toSubscriptionResponses(subs), "")
}

// HandleGetSubscription handles GET /api/v1/subscriptions/{id}
func (h *Handler) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	sub, err := h.directory.GetSubscription(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err, "load subscription")
		return
	}
	h.respondSuccess(w, http.StatusOK, toSubscriptionResponse(sub), "")
}

// HandleUnsubscribe handles DELETE /api/v1/subscriptions/{id}
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.directory.Unsubscribe(r.Context(), id); err != nil {
		h.respondFailure(w, err, "unsubscribe")
		return
	}
	h.respondSuccess(w, http.StatusOK, nil, "Unsubscribed successfully")
}
