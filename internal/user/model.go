package user

import (
	"time"

	"videotube-api/internal/pipeline"
)

const Collection = "users"

type User struct {
	ID                    string
	Username              string
	Email                 string
	FullName              string
	PasswordHash          string
	Avatar                string
	CoverImage            string
	RefreshToken          string
	RefreshTokenExpiresAt *time.Time
	WatchHistory          []string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Public is the user as returned to clients: no password hash, no refresh
// credential.
type Public struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	WatchHistory []string  `json:"watchHistory"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u User) Public() Public {
	history := u.WatchHistory
	if history == nil {
		history = []string{}
	}
	return Public{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Avatar:       u.Avatar,
		CoverImage:   u.CoverImage,
		WatchHistory: history,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Document exposes the user to pipelines. Secrets are never part of it.
func (u User) Document() pipeline.Document {
	history := make([]any, len(u.WatchHistory))
	for i, id := range u.WatchHistory {
		history[i] = id
	}
	return pipeline.Document{
		"_id":          u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"fullName":     u.FullName,
		"avatar":       u.Avatar,
		"coverImage":   u.CoverImage,
		"watchHistory": history,
		"createdAt":    u.CreatedAt,
		"updatedAt":    u.UpdatedAt,
	}
}

// ImageField names one of the two image slots of a user.
type ImageField string

const (
	AvatarImage ImageField = "avatar"
	CoverImage  ImageField = "coverImage"
)

// ChannelProfile is the public view of a user's channel.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	FullName                  string `json:"fullName"`
	Username                  string `json:"username"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	Email                     string `json:"email"`
	SubscribersCount          int    `json:"subscribersCount"`
	ChannelsSubscribedToCount int    `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
}

type OwnerSummary struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is a watch history entry with its owner inlined.
type WatchedVideo struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	VideoFile   string        `json:"videoFile"`
	Thumbnail   string        `json:"thumbnail"`
	Duration    float64       `json:"duration"`
	Views       int64         `json:"views"`
	IsPublished bool          `json:"isPublished"`
	Owner       *OwnerSummary `json:"owner,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
