package user

import (
	"context"
	"errors"
	"strings"

	"videotube-api/internal/apperr"
	"videotube-api/internal/media"
	"videotube-api/internal/pipeline"
	"videotube-api/internal/principal"
	"videotube-api/internal/subscription"
	"videotube-api/internal/video"
)

type Service struct {
	users    Repository
	source   pipeline.Source
	uploader media.Uploader
}

func NewService(users Repository, source pipeline.Source, uploader media.Uploader) *Service {
	return &Service{users: users, source: source, uploader: uploader}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Public, error) {
	in.Normalize()
	if err := ValidateRegistration(in); err != nil {
		return Public{}, err
	}

	if _, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email); err == nil {
		return Public{}, apperr.Conflict("user with email or username already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return Public{}, apperr.Internal("failed to register user", err)
	}

	if in.AvatarPath == "" {
		return Public{}, apperr.Validation("avatar file is required")
	}

	avatar, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil {
		return Public{}, apperr.Internal("failed to upload avatar", err)
	}

	var coverImage string
	if in.CoverImagePath != "" {
		cover, err := s.uploader.Upload(ctx, in.CoverImagePath)
		if err != nil {
			return Public{}, apperr.Internal("failed to upload cover image", err)
		}
		coverImage = cover.URL
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return Public{}, apperr.Internal("failed to register user", err)
	}

	created, err := s.users.Create(ctx, User{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		Avatar:       avatar.URL,
		CoverImage:   coverImage,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return Public{}, apperr.Conflict("user with email or username already exists")
		}
		return Public{}, apperr.Internal("something went wrong while registering the user", err)
	}

	return created.Public(), nil
}

func (s *Service) GetCurrentUser(ctx context.Context, p principal.Principal) (Public, error) {
	u, err := s.load(ctx, p)
	if err != nil {
		return Public{}, err
	}
	return u.Public(), nil
}

func (s *Service) UpdateAccountDetails(ctx context.Context, p principal.Principal, fullName, email string) (Public, error) {
	if p.Anonymous() {
		return Public{}, apperr.Auth("unauthorized request")
	}

	fullName = strings.TrimSpace(fullName)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateAccount(fullName, email); err != nil {
		return Public{}, err
	}

	u, err := s.users.UpdateAccount(ctx, p.UserID, fullName, email)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			return Public{}, apperr.Conflict("email is already in use")
		case errors.Is(err, ErrNotFound):
			return Public{}, apperr.NotFound("user does not exist")
		default:
			return Public{}, apperr.Internal("failed to update account details", err)
		}
	}
	return u.Public(), nil
}

func (s *Service) UpdateAvatar(ctx context.Context, p principal.Principal, localPath string) (Public, error) {
	return s.updateImage(ctx, p, AvatarImage, localPath)
}

func (s *Service) UpdateCoverImage(ctx context.Context, p principal.Principal, localPath string) (Public, error) {
	return s.updateImage(ctx, p, CoverImage, localPath)
}

func (s *Service) updateImage(ctx context.Context, p principal.Principal, field ImageField, localPath string) (Public, error) {
	if p.Anonymous() {
		return Public{}, apperr.Auth("unauthorized request")
	}
	if strings.TrimSpace(localPath) == "" {
		return Public{}, apperr.Validation(string(field) + " file is missing")
	}

	asset, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		return Public{}, apperr.Internal("error while uploading "+string(field), err)
	}

	u, err := s.users.SetImage(ctx, p.UserID, field, asset.URL)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Public{}, apperr.NotFound("user does not exist")
		}
		return Public{}, apperr.Internal("failed to update "+string(field), err)
	}
	return u.Public(), nil
}

// GetChannelProfile builds the channel page of username. viewer may be
// anonymous, in which case isSubscribed is always false.
func (s *Service) GetChannelProfile(ctx context.Context, viewer principal.Principal, username string) (ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return ChannelProfile{}, apperr.Validation("username is missing")
	}

	var viewerID any
	if !viewer.Anonymous() {
		viewerID = viewer.UserID
	}

	docs, err := pipeline.From(Collection).
		Match("username", username).
		Lookup(pipeline.Lookup{
			From:         subscription.Collection,
			LocalField:   "_id",
			ForeignField: "channel",
			As:           "subscribers",
		}).
		Lookup(pipeline.Lookup{
			From:         subscription.Collection,
			LocalField:   "_id",
			ForeignField: "subscriber",
			As:           "subscribedTo",
		}).
		AddFields(
			pipeline.Set{Name: "subscribersCount", Expr: pipeline.Size("subscribers")},
			pipeline.Set{Name: "channelsSubscribedToCount", Expr: pipeline.Size("subscribedTo")},
			pipeline.Set{Name: "isSubscribed", Expr: pipeline.Cond(
				pipeline.In(pipeline.Literal(viewerID), pipeline.Ref("subscribers.subscriber")),
				pipeline.Literal(true),
				pipeline.Literal(false),
			)},
		).
		Project("fullName", "username", "subscribersCount", "channelsSubscribedToCount",
			"isSubscribed", "avatar", "coverImage", "email").
		Run(ctx, s.source)
	if err != nil {
		return ChannelProfile{}, apperr.Internal("failed to fetch channel", err)
	}
	if len(docs) == 0 {
		return ChannelProfile{}, apperr.NotFound("channel does not exist")
	}

	var profile ChannelProfile
	if err := pipeline.Decode(docs[0], &profile); err != nil {
		return ChannelProfile{}, apperr.Internal("failed to fetch channel", err)
	}
	return profile, nil
}

// GetWatchHistory returns the caller's watched videos in history order,
// each with its owner inlined.
func (s *Service) GetWatchHistory(ctx context.Context, p principal.Principal) ([]WatchedVideo, error) {
	if p.Anonymous() {
		return nil, apperr.Auth("unauthorized request")
	}

	docs, err := pipeline.From(Collection).
		Match("_id", p.UserID).
		Lookup(pipeline.Lookup{
			From:         video.Collection,
			LocalField:   "watchHistory",
			ForeignField: "_id",
			As:           "watchHistory",
			Pipeline: pipeline.Sub().
				Lookup(pipeline.Lookup{
					From:         Collection,
					LocalField:   "owner",
					ForeignField: "_id",
					As:           "owner",
					Pipeline:     pipeline.Sub().Project("fullName", "username", "avatar"),
				}).
				AddFields(pipeline.Set{Name: "owner", Expr: pipeline.First("owner")}),
		}).
		Run(ctx, s.source)
	if err != nil {
		return nil, apperr.Internal("failed to fetch watch history", err)
	}
	if len(docs) == 0 {
		return nil, apperr.NotFound("user does not exist")
	}

	history := make([]WatchedVideo, 0)
	if raw, ok := docs[0]["watchHistory"]; ok && raw != nil {
		if err := pipeline.Decode(raw, &history); err != nil {
			return nil, apperr.Internal("failed to fetch watch history", err)
		}
	}
	return history, nil
}

func (s *Service) load(ctx context.Context, p principal.Principal) (User, error) {
	if p.Anonymous() {
		return User{}, apperr.Auth("unauthorized request")
	}
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("user does not exist")
		}
		return User{}, apperr.Internal("failed to fetch user", err)
	}
	return u, nil
}
