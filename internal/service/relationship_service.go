package service

import (
	"context"
	"strings"

	"chattrix/internal/model"
	"chattrix/pkg/logger"

	"go.uber.org/zap"
)

type RelationshipStore interface {
	ListForFollower(ctx context.Context, followerID string) ([]*model.Relationship, error)
	Get(ctx context.Context, followerID, followingID string) (*model.Relationship, error)
	Upsert(ctx context.Context, followerID, followingID string, s model.RelationshipSettings) (*model.Relationship, error)
}

// RelationshipService manages a follower's per-user settings. The
// notification path never reads it; producers may.
type RelationshipService struct {
	store  RelationshipStore
	logger *zap.Logger
}

func NewRelationshipService(store RelationshipStore, log *zap.Logger) *RelationshipService {
	if log == nil {
		log = zap.NewNop()
	}
	return &RelationshipService{store: store, logger: log}
}

func (s *RelationshipService) List(ctx context.Context, followerID string) ([]*model.Relationship, error) {
	list, err := s.store.ListForFollower(ctx, followerID)
	if err != nil {
		return nil, persistence("list relationships", err)
	}
	return list, nil
}

// Get returns default settings when none were stored.
func (s *RelationshipService) Get(ctx context.Context, followerID, followingID string) (*model.Relationship, error) {
	if err := validateFollowing(followerID, followingID); err != nil {
		return nil, err
	}
	rel, err := s.store.Get(ctx, followerID, followingID)
	if err != nil {
		return nil, persistence("get relationship", err)
	}
	return rel, nil
}

func (s *RelationshipService) Update(ctx context.Context, followerID, followingID string, settings model.RelationshipSettings) (*model.Relationship, error) {
	if err := validateFollowing(followerID, followingID); err != nil {
		return nil, err
	}
	rel, err := s.store.Upsert(ctx, followerID, followingID, settings)
	if err != nil {
		return nil, persistence("update relationship", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Relationship updated",
		zap.String("follower", followerID),
		zap.String("following", followingID),
	)
	return rel, nil
}

func validateFollowing(followerID, followingID string) error {
	if strings.TrimSpace(followingID) == "" {
		return &model.ValidationError{Field: "followingId", Reason: "is required"}
	}
	if followerID == followingID {
		return &model.ValidationError{Field: "followingId", Reason: "must differ from the follower"}
	}
	return nil
}
