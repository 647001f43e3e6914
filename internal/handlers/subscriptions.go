package handlers

import (
	"errors"
	"net/http"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// SubscriptionHandler implements the channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Users         UserStore
}

type subscriptionToggleResponse struct {
	IsSubscribed    bool  `json:"isSubscribed"`
	SubscriberCount int64 `json:"subscriberCount"`
}

type subscriptionStatusResponse struct {
	IsSubscribed bool `json:"isSubscribed"`
}

type subscribersResponse struct {
	ChannelID       string               `json:"channelId"`
	SubscriberCount int64                `json:"subscriberCount"`
	Subscribers     []models.UserSummary `json:"subscribers"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId} requests.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	subscriber, _ := CurrentUser(ctx)

	channelID, ok := h.resolveChannel(w, r)
	if !ok {
		return
	}

	if channelID == subscriber.ID {
		respondError(ctx, w, http.StatusBadRequest, "you cannot subscribe to your own channel")
		return
	}

	subscribed, err := h.Subscriptions.Toggle(ctx, subscriber.ID, channelID)
	if err != nil {
		logger.Error("failed to toggle subscription", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to toggle subscription")
		return
	}

	count, err := h.Subscriptions.CountForChannel(ctx, channelID)
	if err != nil {
		logger.Error("failed to count subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch subscriber count")
		return
	}

	respondData(ctx, w, http.StatusOK, subscriptionToggleResponse{
		IsSubscribed:    subscribed,
		SubscriberCount: count,
	}, "subscription toggled successfully")
}

// Status handles GET /api/v1/subscriptions/status/{channelId} requests.
func (h SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := CurrentUser(ctx)

	channelID, ok := h.resolveChannel(w, r)
	if !ok {
		return
	}

	subscribed, err := h.Subscriptions.IsSubscribed(ctx, viewer.ID, channelID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to check subscription", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to check subscription")
		return
	}

	respondData(ctx, w, http.StatusOK, subscriptionStatusResponse{IsSubscribed: subscribed},
		"subscription status fetched successfully")
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId} requests. The
// response carries the subscriber summaries along with the channel's total.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	channelID, ok := h.resolveChannel(w, r)
	if !ok {
		return
	}

	subscribers, err := h.Subscriptions.ListSubscribers(ctx, channelID)
	if err != nil {
		logger.Error("failed to list subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch subscribers")
		return
	}
	if subscribers == nil {
		subscribers = []models.UserSummary{}
	}

	count, err := h.Subscriptions.CountForChannel(ctx, channelID)
	if err != nil {
		logger.Error("failed to count subscribers", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch subscriber count")
		return
	}

	respondData(ctx, w, http.StatusOK, subscribersResponse{
		ChannelID:       channelID,
		SubscriberCount: count,
		Subscribers:     subscribers,
	}, "subscribers fetched successfully")
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}
// requests. A user's subscription list is visible to that user only.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, _ := CurrentUser(ctx)

	subscriberID, ok := parseID(r.PathValue("subscriberId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid subscriber id")
		return
	}

	if !authorizeOwner(viewer.ID, subscriberID) {
		respondError(ctx, w, http.StatusForbidden, "you cannot view another user's subscriptions")
		return
	}

	channels, err := h.Subscriptions.ListSubscribedChannels(ctx, subscriberID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list subscribed channels", "error", err, "subscriberId", subscriberID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch subscribed channels")
		return
	}
	if channels == nil {
		channels = []models.UserSummary{}
	}

	respondData(ctx, w, http.StatusOK, channels, "subscribed channels fetched successfully")
}

// resolveChannel validates the channel path id and confirms the channel user
// exists.
func (h SubscriptionHandler) resolveChannel(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()

	channelID, ok := parseID(r.PathValue("channelId"))
	if !ok {
		respondError(ctx, w, http.StatusBadRequest, "invalid channel id")
		return "", false
	}

	if _, err := h.Users.FindByID(ctx, channelID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return "", false
		}
		logging.FromContext(ctx).Error("failed to load channel", "error", err, "channelId", channelID)
		respondError(ctx, w, http.StatusInternalServerError, "unable to fetch channel")
		return "", false
	}

	return channelID, true
}
