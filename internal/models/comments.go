package models

import "time"

// Comment — комментарий к посту; Parent == nil — корневой.
type Comment struct {
	ID           int64      `json:"id"`
	User         UserPublic `json:"user"`
	Body         string     `json:"body"`
	Parent       *int64     `json:"parent"`
	Replies      []Comment  `json:"replies"`
	RepliesCount int        `json:"replies_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
