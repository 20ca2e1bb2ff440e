package api

import (
	"fmt"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/model"
)

// CreateMessageRequest is the body of POST /api/v1/messages.
type CreateMessageRequest struct {
	TopicID    int64  `json:"topicID"`
	Content    string `json:"content"`
	SenderID   *int64 `json:"senderID"`
	ReceiverID *int64 `json:"receiverID"`
}

// Validate implements validation.Validatable.
func (r CreateMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TopicID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.SenderID, validation.NilOrNotEmpty, validation.Min(int64(1))),
		validation.Field(&r.ReceiverID, validation.NilOrNotEmpty, validation.Min(int64(1))),
	)
}

// UpdateMessageRequest is the body of PUT /api/v1/messages/{id}.
type UpdateMessageRequest struct {
	Content string `json:"content"`
}

// Validate implements validation.Validatable.
func (r UpdateMessageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required),
	)
}

// MessageResponse is the wire form of a stored message.
type MessageResponse struct {
	ID         int64     `json:"id"`
	TopicID    int64     `json:"topicID"`
	Content    string    `json:"content"`
	SenderID   *int64    `json:"senderID"`
	ReceiverID *int64    `json:"receiverID"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		TopicID:    m.TopicID,
		Content:    m.Content,
		SenderID:   nullableID(m.SenderID),
		ReceiverID: nullableID(m.ReceiverID),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// HandleListMessages handles GET /api/v1/messages?topicID=&senderID=&receiverID=&limit=&offset=
func (h *Handler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	page, ok := h.page(w, r)
	if !ok {
		return
	}

	filter := relay.MessageFilter{Page: page}
	for name, dst := range map[string]*int64{
		"topicID":    &filter.TopicID,
		"senderID":   &filter.SenderID,
		"receiverID": &filter.ReceiverID,
	} {
		v, err := queryInt(r, name)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error(), relay.ErrCodeValidation)
			return
		}
		*dst = v
	}

	msgs, err := h.messages.List(r.Context(), filter)
	if err != nil {
		h.respondFailure(w, err, "list messages")
		return
	}

	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	h.respondSuccess(w, http.StatusOK, out, "")
}

// HandleCreateMessage handles POST /api/v1/messages
func (h *Handler) HandleCreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	topic, err := h.directory.GetTopic(r.Context(), req.TopicID)
	if err != nil {
		if relay.IsNoData(err) {
			h.respondError(w, http.StatusBadRequest, err.Error(), relay.ErrCodeValidation)
			return
		}
		h.respondFailure(w, err, "load topic")
		return
	}

	sender, ok := h.lookupUser(w, r, "sender", req.SenderID)
	if !ok {
		return
	}
	receiver, ok := h.lookupUser(w, r, "receiver", req.ReceiverID)
	if !ok {
		return
	}

	msg, err := h.messages.Append(r.Context(), topic, req.Content, sender, receiver)
	if err != nil {
		h.respondFailure(w, err, "create message")
		return
	}
	h.respondSuccess(w, http.StatusCreated, toMessageResponse(msg), "Message created successfully")
}

// lookupUser resolves an optional user reference from a request body.
// Unlike inbound broker messages, an unknown ID here is a client error.
func (h *Handler) lookupUser(w http.ResponseWriter, r *http.Request, role string, id *int64) (*model.User, bool) {
	if id == nil {
		return nil, true
	}
	user, err := h.directory.FindUser(r.Context(), *id)
	if err != nil {
		h.respondFailure(w, err, "load "+role)
		return nil, false
	}
	if user == nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("%s not found: %d", role, *id), relay.ErrCodeValidation)
		return nil, false
	}
	return user, true
}

// HandleGetMessage handles GET /api/v1/messages/{id}
func (h *Handler) HandleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	msg, err := h.messages.Get(r.Context(), id)
	if err != nil {
		h.respondFailure(w, err, "load message")
		return
	}
	h.respondSuccess(w, http.StatusOK, toMessageResponse(msg), "")
}

// HandleUpdateMessage handles PUT /api/v1/messages/{id}
func (h *Handler) HandleUpdateMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.messages.Correct(r.Context(), id, req.Content)
	if err != nil {
		h.respondFailure(w, err, "update message")
		return
	}
	h.respondSuccess(w, http.StatusOK, toMessageResponse(msg), "Message updated successfully")
}

// HandleDeleteMessage handles DELETE /api/v1/messages/{id}
func (h *Handler) HandleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.messages.Delete(r.Context(), id); err != nil {
		h.respondFailure(w, err, "delete message")
		return
	}
	h.respondSuccess(w, http.StatusOK, nil, "Message deleted successfully")
}
