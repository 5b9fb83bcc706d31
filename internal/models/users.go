package models

import "time"

// UserPublic — публичный профиль пользователя.
type UserPublic struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Avatar         *string   `json:"avatar"`
	Cover          *string   `json:"cover"`
	Bio            string    `json:"bio"`
	Website        string    `json:"website"`
	Location       string    `json:"location"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	IsFollowing    bool      `json:"is_following"`
	DateJoined     time.Time `json:"date_joined"`
}

// AvatarURL — путь аватара или "".
func (u *UserPublic) AvatarURL() string {
	if u == nil || u.Avatar == nil {
		return ""
	}

	return *u.Avatar
}

// FollowRelation — связь подписки.
type FollowRelation struct {
	ID        int64      `json:"id"`
	Follower  UserPublic `json:"follower"`
	Following UserPublic `json:"following"`
	CreatedAt time.Time  `json:"created_at"`
}

// UpdateUserRequest — поля формы настроек профиля (multipart PATCH).
// AvatarPath/CoverPath — локальные файлы; пустые не отправляются.
type UpdateUserRequest struct {
	Username   string
	Bio        string
	Website    string
	Location   string
	AvatarPath string
	CoverPath  string
}
