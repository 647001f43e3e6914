package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

type fakeUserStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	watches map[string][]string
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:   make(map[string]models.User),
		watches: make(map[string][]string),
	}
}

func (s *fakeUserStore) add(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *fakeUserStore) FindByLogin(_ context.Context, identifier string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == identifier || user.Email == identifier {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *fakeUserStore) UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	for _, existing := range s.users {
		if existing.ID != id && existing.Email == email {
			return models.User{}, repositories.ErrConflict
		}
	}
	user.FullName = fullName
	user.Email = email
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, id, avatarURL string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.AvatarURL = avatarURL
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdateCoverImage(_ context.Context, id, coverImageURL string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	user.CoverImageURL = coverImageURL
	s.users[id] = user
	return user, nil
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Password = passwordHash
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) SetRefreshToken(_ context.Context, id, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.RefreshToken = refreshToken
	s.users[id] = user
	return nil
}

func (s *fakeUserStore) ChannelProfile(_ context.Context, username, _ string) (models.ChannelProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return models.ChannelProfile{
				ID:        user.ID,
				Username:  user.Username,
				FullName:  user.FullName,
				Email:     user.Email,
				AvatarURL: user.AvatarURL,
			}, nil
		}
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (s *fakeUserStore) RecordWatch(_ context.Context, userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watches[userID] = append(s.watches[userID], videoID)
	return nil
}

func (s *fakeUserStore) WatchHistory(_ context.Context, userID string) ([]models.Video, error) {
	return nil, nil
}

type fakeVideoStore struct {
	mu     sync.Mutex
	videos map[string]models.Video
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{videos: make(map[string]models.Video)}
}

func (s *fakeVideoStore) add(video models.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
}

func (s *fakeVideoStore) Create(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) FindByID(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return video, nil
}

func (s *fakeVideoStore) List(_ context.Context, params repositories.ListVideosParams) ([]models.Video, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Video
	for _, video := range s.videos {
		if !video.IsPublished {
			continue
		}
		if params.OwnerID != "" && video.OwnerID != params.OwnerID {
			continue
		}
		if params.Query != "" {
			needle := strings.ToLower(params.Query)
			if !strings.Contains(strings.ToLower(video.Title), needle) &&
				!strings.Contains(strings.ToLower(video.Description), needle) {
				continue
			}
		}
		matched = append(matched, video)
	}

	sort.Slice(matched, func(i, j int) bool {
		if params.SortAsc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (params.Page - 1) * params.Limit
	if start >= len(matched) {
		return []models.Video{}, total, nil
	}
	end := start + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *fakeVideoStore) Update(_ context.Context, video models.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[video.ID]; !ok {
		return repositories.ErrNotFound
	}
	s.videos[video.ID] = video
	return nil
}

func (s *fakeVideoStore) TogglePublish(_ context.Context, id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	video.IsPublished = !video.IsPublished
	s.videos[id] = video
	return video, nil
}

func (s *fakeVideoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.videos, id)
	return nil
}

func (s *fakeVideoStore) IncrementViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	video, ok := s.videos[id]
	if !ok {
		return repositories.ErrNotFound
	}
	video.Views++
	s.videos[id] = video
	return nil
}

type fakeCommentStore struct {
	mu       sync.Mutex
	comments map[string]models.Comment
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{comments: make(map[string]models.Comment)}
}

func (s *fakeCommentStore) add(comment models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
}

func (s *fakeCommentStore) Create(_ context.Context, comment models.Comment) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = comment
	return comment, nil
}

func (s *fakeCommentStore) FindByID(_ context.Context, id string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return comment, nil
}

func (s *fakeCommentStore) ListForVideo(_ context.Context, videoID string, page, limit int) ([]models.Comment, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Comment
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			matched = append(matched, comment)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return []models.Comment{}, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *fakeCommentStore) CountForVideo(_ context.Context, videoID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, comment := range s.comments {
		if comment.VideoID == videoID {
			total++
		}
	}
	return total, nil
}

func (s *fakeCommentStore) Update(_ context.Context, id, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	comment.Content = content
	s.comments[id] = comment
	return comment, nil
}

func (s *fakeCommentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

type videoReactionKey struct {
	videoID string
	userID  string
}

type commentLikeKey struct {
	commentID string
	userID    string
}

type fakeLikeStore struct {
	mu             sync.Mutex
	videoReactions map[videoReactionKey]string
	commentLikes   map[commentLikeKey]struct{}
}

func newFakeLikeStore() *fakeLikeStore {
	return &fakeLikeStore{
		videoReactions: make(map[videoReactionKey]string),
		commentLikes:   make(map[commentLikeKey]struct{}),
	}
}

func (s *fakeLikeStore) ToggleVideoReaction(_ context.Context, videoID, userID, reaction string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := videoReactionKey{videoID: videoID, userID: userID}
	if s.videoReactions[key] == reaction {
		delete(s.videoReactions, key)
		return nil
	}
	s.videoReactions[key] = reaction
	return nil
}

func (s *fakeLikeStore) VideoReactionCounts(_ context.Context, videoID, viewerID string) (models.ReactionCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var counts models.ReactionCounts
	for key, reaction := range s.videoReactions {
		if key.videoID != videoID {
			continue
		}
		switch reaction {
		case models.ReactionLike:
			counts.LikeCount++
			if key.userID == viewerID {
				counts.IsLiked = true
			}
		case models.ReactionDislike:
			counts.DislikeCount++
			if key.userID == viewerID {
				counts.IsDisliked = true
			}
		}
	}
	return counts, nil
}

func (s *fakeLikeStore) ToggleCommentLike(_ context.Context, commentID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := commentLikeKey{commentID: commentID, userID: userID}
	if _, ok := s.commentLikes[key]; ok {
		delete(s.commentLikes, key)
		return false, nil
	}
	s.commentLikes[key] = struct{}{}
	return true, nil
}

func (s *fakeLikeStore) CommentLikeCount(_ context.Context, commentID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for key := range s.commentLikes {
		if key.commentID == commentID {
			total++
		}
	}
	return total, nil
}

func (s *fakeLikeStore) ListLikedVideos(_ context.Context, userID string) ([]models.Video, error) {
	return nil, nil
}

type subscriptionKey struct {
	subscriberID string
	channelID    string
}

type fakeSubscriptionStore struct {
	mu   sync.Mutex
	subs map[subscriptionKey]struct{}
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: make(map[subscriptionKey]struct{})}
}

func (s *fakeSubscriptionStore) Toggle(_ context.Context, subscriberID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := subscriptionKey{subscriberID: subscriberID, channelID: channelID}
	if _, ok := s.subs[key]; ok {
		delete(s.subs, key)
		return false, nil
	}
	s.subs[key] = struct{}{}
	return true, nil
}

func (s *fakeSubscriptionStore) IsSubscribed(_ context.Context, subscriberID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subs[subscriptionKey{subscriberID: subscriberID, channelID: channelID}]
	return ok, nil
}

func (s *fakeSubscriptionStore) CountForChannel(_ context.Context, channelID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for key := range s.subs {
		if key.channelID == channelID {
			total++
		}
	}
	return total, nil
}

func (s *fakeSubscriptionStore) ListSubscribers(_ context.Context, channelID string) ([]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var subscribers []models.UserSummary
	for key := range s.subs {
		if key.channelID == channelID {
			subscribers = append(subscribers, models.UserSummary{ID: key.subscriberID})
		}
	}
	return subscribers, nil
}

func (s *fakeSubscriptionStore) ListSubscribedChannels(_ context.Context, subscriberID string) ([]models.UserSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var channels []models.UserSummary
	for key := range s.subs {
		if key.subscriberID == subscriberID {
			channels = append(channels, models.UserSummary{ID: key.channelID})
		}
	}
	return channels, nil
}

type fakePlaylistStore struct {
	mu        sync.Mutex
	playlists map[string]models.Playlist
	entries   map[string][]string
}

func newFakePlaylistStore() *fakePlaylistStore {
	return &fakePlaylistStore{
		playlists: make(map[string]models.Playlist),
		entries:   make(map[string][]string),
	}
}

func (s *fakePlaylistStore) add(playlist models.Playlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[playlist.ID] = playlist
}

func (s *fakePlaylistStore) Create(_ context.Context, playlist models.Playlist) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[playlist.ID] = playlist
	return nil
}

func (s *fakePlaylistStore) FindByID(_ context.Context, id string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	playlist.Videos = make([]models.Video, 0, len(s.entries[id]))
	for _, videoID := range s.entries[id] {
		playlist.Videos = append(playlist.Videos, models.Video{ID: videoID})
	}
	return playlist, nil
}

func (s *fakePlaylistStore) ListForUser(_ context.Context, ownerID string) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Playlist
	for _, playlist := range s.playlists {
		if playlist.OwnerID == ownerID {
			matched = append(matched, playlist)
		}
	}
	return matched, nil
}

func (s *fakePlaylistStore) Update(_ context.Context, id, name, description string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	playlist, ok := s.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	playlist.Name = name
	playlist.Description = description
	s.playlists[id] = playlist
	return playlist, nil
}

func (s *fakePlaylistStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.playlists, id)
	delete(s.entries, id)
	return nil
}

func (s *fakePlaylistStore) AddVideo(_ context.Context, playlistID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries[playlistID] {
		if existing == videoID {
			return repositories.ErrConflict
		}
	}
	s.entries[playlistID] = append(s.entries[playlistID], videoID)
	return nil
}

func (s *fakePlaylistStore) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.entries[playlistID] {
		if existing == videoID {
			s.entries[playlistID] = append(s.entries[playlistID][:i], s.entries[playlistID][i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeMediaStore struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
	nextID  int
}

func newFakeMediaStore() *fakeMediaStore {
	return &fakeMediaStore{saved: make(map[string][]byte)}
}

func (s *fakeMediaStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	url := fmt.Sprintf("https://media.test/%s", name)
	s.saved[url] = data
	return url, nil
}

func (s *fakeMediaStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	delete(s.saved, url)
	return nil
}

// withUser attaches a user to the request context the same way the gate does.
func withUser(r *http.Request, user models.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, user))
}
