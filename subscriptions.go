package relay

import (
	"context"
	"fmt"

	"github.com/coregx/brokerrelay/model"
)

// Subscribe subscribes a user to a topic. Each (user, topic) pair has at most
// one subscription: if it already exists it is returned unchanged.
//
// Validation:
//   - userID must be > 0 and exist
//   - topicID must be > 0 and exist
func (d *Directory) Subscribe(ctx context.Context, userID, topicID int64) (model.Subscription, error) {
	if userID == 0 {
		return model.Subscription{}, NewError(ErrCodeValidation, "user ID is required")
	}
	if topicID == 0 {
		return model.Subscription{}, NewError(ErrCodeValidation, "topic ID is required")
	}

	user, err := d.FindUser(ctx, userID)
	if err != nil {
		return model.Subscription{}, err
	}
	if user == nil {
		return model.Subscription{}, NewError(ErrCodeValidation, fmt.Sprintf("user not found: %d", userID))
	}
	if _, err := d.GetTopic(ctx, topicID); err != nil {
		if IsNoData(err) {
			return model.Subscription{}, NewErrorWithCause(ErrCodeValidation, fmt.Sprintf("topic not found: %d", topicID), err)
		}
		return model.Subscription{}, err
	}

	existing, err := d.subscriptions.FindByUserAndTopic(ctx, userID, topicID)
	if err == nil {
		d.logger.Debugf("Subscription already exists: user=%d, topic=%d", userID, topicID)
		return existing, nil
	}
	if !IsNoData(err) {
		return model.Subscription{}, NewErrorWithCause(ErrCodeDatabase, "failed to check existing subscription", err)
	}

	sub, err := d.subscriptions.Save(ctx, model.NewSubscription(userID, topicID))
	if err != nil {
		// Lost a race on the unique (user, topic) pair.
		if existing, lookupErr := d.subscriptions.FindByUserAndTopic(ctx, userID, topicID); lookupErr == nil {
			return existing, nil
		}
		return model.Subscription{}, NewErrorWithCause(ErrCodeDatabase, "failed to save subscription", err)
	}

	d.logger.Infof("Subscription created: id=%d, user=%d, topic=%d", sub.ID, userID, topicID)
	return sub, nil
}

// Unsubscribe removes a subscription.
func (d *Directory) Unsubscribe(ctx context.Context, subscriptionID int64) error {
	sub, err := d.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}

	if err := d.subscriptions.Delete(ctx, sub); err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to delete subscription", err)
	}

	d.logger.Infof("Subscription removed: id=%d", subscriptionID)
	return nil
}

// GetSubscription retrieves a single subscription by ID.
func (d *Directory) GetSubscription(ctx context.Context, subscriptionID int64) (model.Subscription, error) {
	if subscriptionID == 0 {
		return model.Subscription{}, NewError(ErrCodeValidation, "subscription ID is required")
	}

	sub, err := d.subscriptions.Load(ctx, subscriptionID)
	if err != nil {
		if IsNoData(err) {
			return sub, NewErrorWithCause(ErrCodeNoData, fmt.Sprintf("subscription not found: %d", subscriptionID), err)
		}
		return sub, NewErrorWithCause(ErrCodeDatabase, "failed to load subscription", err)
	}
	return sub, nil
}

// SubscriptionsByUser returns every subscription held by a user.
// Returns an empty slice if none found (not an error).
func (d *Directory) SubscriptionsByUser(ctx context.Context, userID int64) ([]model.Subscription, error) {
	if userID == 0 {
		return nil, NewError(ErrCodeValidation, "user ID is required")
	}

	subs, err := d.subscriptions.FindByUser(ctx, userID)
	if err != nil {
		if IsNoData(err) {
			return []model.Subscription{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load user subscriptions", err)
	}
	return subs, nil
}

// SubscribersByTopic returns every subscription to a topic.
// The topic must exist.
func (d *Directory) SubscribersByTopic(ctx context.Context, topicID int64) ([]model.Subscription, error) {
	if _, err := d.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}

	subs, err := d.subscriptions.FindByTopic(ctx, topicID)
	if err != nil {
		if IsNoData(err) {
			return []model.Subscription{}, nil
		}
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to load topic subscribers", err)
	}
	return subs, nil
}

// BulkSubscribeResult reports the outcome of BulkSubscribe per user.
type BulkSubscribeResult struct {
	Subscribed []model.Subscription `json:"subscribed"` // New or already existing subscriptions
	Failed     map[int64]string     `json:"failed"`     // User ID -> failure reason
}

// BulkSubscribe subscribes many users to one topic. Failures for individual
// users are collected and do not stop the remaining users.
func (d *Directory) BulkSubscribe(ctx context.Context, topicID int64, userIDs []int64) (*BulkSubscribeResult, error) {
	if _, err := d.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}

	result := &BulkSubscribeResult{
		Subscribed: make([]model.Subscription, 0, len(userIDs)),
		Failed:     make(map[int64]string),
	}

	for _, userID := range userIDs {
		sub, err := d.Subscribe(ctx, userID, topicID)
		if err != nil {
			d.logger.Errorf("Failed to subscribe user %d to topic %d: %v", userID, topicID, err)
			result.Failed[userID] = err.Error()
			continue // Continue with other users
		}
		result.Subscribed = append(result.Subscribed, sub)
	}

	d.logger.Infof("Bulk subscribe to topic %d: %d subscribed, %d failed",
		topicID, len(result.Subscribed), len(result.Failed))
	return result, nil
}
