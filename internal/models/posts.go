package models

import (
	"fmt"
	"time"
)

// Visibility — видимость поста.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility проверяет значение; пустое -> public.
func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case "":
		return VisibilityPublic, nil
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return Visibility(s), nil
	default:
		return "", fmt.Errorf("unknown visibility %q", s)
	}
}

// ReactionType — тип реакции на пост.
type ReactionType string

const (
	ReactionLike  ReactionType = "like"
	ReactionLove  ReactionType = "love"
	ReactionHaha  ReactionType = "haha"
	ReactionSad   ReactionType = "sad"
	ReactionAngry ReactionType = "angry"
)

// ParseReaction проверяет тип реакции.
func ParseReaction(s string) (ReactionType, error) {
	switch ReactionType(s) {
	case ReactionLike, ReactionLove, ReactionHaha, ReactionSad, ReactionAngry:
		return ReactionType(s), nil
	default:
		return "", fmt.Errorf("unknown reaction %q", s)
	}
}

type PostMedia struct {
	ID        int64  `json:"id"`
	File      string `json:"file"`
	MediaType string `json:"media_type"` // image | video
}

type Hashtag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Post — пост в ленте.
type Post struct {
	ID             int64         `json:"id"`
	Author         UserPublic    `json:"author"`
	Body           string        `json:"body"`
	Visibility     Visibility    `json:"visibility"`
	Media          []PostMedia   `json:"media"`
	Hashtags       []Hashtag     `json:"hashtags"`
	ReactionsCount int           `json:"reactions_count"`
	CommentsCount  int           `json:"comments_count"`
	IsSaved        bool          `json:"is_saved"`
	UserReaction   *ReactionType `json:"user_reaction"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Liked — есть ли у текущего пользователя реакция на пост.
func (p *Post) Liked() bool { return p.UserReaction != nil }

// PostForm — поля формы создания/редактирования поста (multipart).
type PostForm struct {
	Body       string
	Visibility Visibility
	MediaPaths []string
}

// FeedResponse — страница ленты.
type FeedResponse struct {
	Results []Post `json:"results"`
	Offset  int    `json:"offset"`
	Limit   int    `json:"limit"`
}
