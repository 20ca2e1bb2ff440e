package api

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	relay "github.com/coregx/brokerrelay"
)

// CreateTopicRequest is the body of POST /api/v1/topics.
type CreateTopicRequest struct {
	Name    string `json:"name"`
	IsGroup bool   `json:"isGroup"`
}

// Validate implements validation.Validatable.
func (r CreateTopicRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

// UpdateTopicRequest is the body of PUT /api/v1/topics/{id}. Omitted fields
// are left unchanged.
type UpdateTopicRequest struct {
	Name     *string `json:"name"`
	IsGroup  *bool   `json:"isGroup"`
	IsActive *bool   `json:"isActive"`
}

// Validate implements validation.Validatable.
func (r UpdateTopicRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
	)
}

// BulkSubscribeRequest is the body of POST /api/v1/topics/{id}/subscribers.
type BulkSubscribeRequest struct {
	UserIDs []int64 `json:"userIDs"`
}

// Validate implements validation.Validatable.
func (r BulkSubscribeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserIDs, validation.Required, validation.Each(validation.Min(int64(1)))),
	)
}

// HandleListTopics handles GET /api/v1/topics
func (h *Handler) HandleListTopics(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	topics, err := h.directory.ListTopics(r.Context(), page)
	if err != nil {
		h.respondFailure(w, err, "list topics")
		return
	}
	h.respondSuccess(w, http.StatusOK, topics, "")
}

// HandleCreateTopic handles POST /api/v1/topics
func (h *Handler) HandleCreateTopic(w http.ResponseWriter, r *http.Request) {
	var req CreateTopicRequest
	if !h.decode(w, r, &req) {
		return
	}

	topic, err := h.directory.CreateTopic(r.Context(), relay.CreateTopicRequest{
		Name:    req.Name,
		IsGroup: req.IsGroup,
	})
	if err != nil {
		h.respondFailure(w, err, "create topic")
		return
	}

	h.subscribeIfLive(r.Context(), topic.Name)
	h.respondSuccess(w, http.StatusCreated, topic, "Topic created successfully")
}

// HandleGetTopic handles GET /api/v1/topics/{id}
func (h *Handler) HandleGetTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	topic, err := h.directory.GetTopic(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err, "load topic")
		return
	}
	h.respondSuccess(w, http.StatusOK, topic, "")
}

// HandleUpdateTopic handles PUT /api/v1/topics/{id}
func (h *Handler) HandleUpdateTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateTopicRequest
	if !h.decode(w, r, &req) {
		return
	}

	before, err := h.directory.GetTopic(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err, "load topic")
		return
	}

	topic, err := h.directory.UpdateTopic(r.Context(), id, relay.TopicUpdate{
		Name:     req.Name,
		IsGroup:  req.IsGroup,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.respondFailure(w, err, "update topic")
		return
	}

	if topic.IsActive && (!before.IsActive || before.Name != topic.Name) {
		h.subscribeIfLive(r.Context(), topic.Name)
	}
	h.respondSuccess(w, http.StatusOK, topic, "Topic updated successfully")
}

// HandleDeleteTopic handles DELETE /api/v1/topics/{id}
//
// By default the topic is deactivated. With ?hard=true it is removed, which
// is refused while messages still reference it.
func (h *Handler) HandleDeleteTopic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("hard") == "true" {
		if err := h.directory.DeleteTopic(r.Context(), id); err != nil {
			h.respondFailure(w, err, "delete topic")
			return
		}
		h.respondSuccess(w, http.StatusOK, nil, "Topic deleted successfully")
		return
	}

	topic, err := h.directory.DeactivateTopic(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err, "deactivate topic")
		return
	}
	h.respondSuccess(w, http.StatusOK, topic, "Topic deactivated successfully")
}

// HandleListSubscribers handles GET /api/v1/topics/{id}/subscribers
func (h *Handler) HandleListSubscribers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	subs, err := h.directory.SubscribersByTopic(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err, "list subscribers")
		return
	}
	h.respondSuccess(w, http.StatusOK, toSubscriptionResponses(subs), "")
}

// BulkSubscribeResponse reports per-user results of a bulk subscribe.
type BulkSubscribeResponse struct {
	Subscribed []SubscriptionResponse `json:"subscribed"`
	Failed     map[int64]string       `json:"failed"`
}

// HandleBulkSubscribe handles POST /api/v1/topics/{id}/subscribers
func (h *Handler) HandleBulkSubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req BulkSubscribeRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.directory.BulkSubscribe(r.Context(), id, req.UserIDs)
	if err != nil {
		h.respondFailure(w, err, "subscribe users")
		return
	}

	h.respondSuccess(w, http.StatusOK, BulkSubscribeResponse{
		Subscribed: toSubscriptionResponses(result.Subscribed),
		Failed:     result.Failed,
	}, "")
}
