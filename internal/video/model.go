// Package video holds the video record. Videos are read-only here: they
// are joined into watch history and playlist views.
package video

import (
	"time"

	"videotube-api/internal/pipeline"
)

const Collection = "videos"

type Video struct {
	ID          string
	VideoFile   string
	Thumbnail   string
	Title       string
	Description string
	Duration    float64
	Views       int64
	IsPublished bool
	Owner       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (v Video) Document() pipeline.Document {
	return pipeline.Document{
		"_id":         v.ID,
		"videoFile":   v.VideoFile,
		"thumbnail":   v.Thumbnail,
		"title":       v.Title,
		"description": v.Description,
		"duration":    v.Duration,
		"views":       v.Views,
		"isPublished": v.IsPublished,
		"owner":       v.Owner,
		"createdAt":   v.CreatedAt,
		"updatedAt":   v.UpdatedAt,
	}
}
