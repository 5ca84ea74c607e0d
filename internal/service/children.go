package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/scalecode-solutions/naptrack/internal/apperr"
	"github.com/scalecode-solutions/naptrack/internal/models"
)

// CreateChild registers a child owned by the actor.
func (s *Service) CreateChild(ctx context.Context, a Actor, req models.ChildRequest) (*models.ChildResponse, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	child := &models.Child{OwnerID: a.UserID, Name: req.Name, BirthDate: req.BirthDate}
	if err := s.store.CreateChild(ctx, child); err != nil {
		return nil, storeErr(err, apperr.CodeNotFound, "")
	}
	s.log.Debug("child created", zap.Int64("child_id", child.ID), zap.String("user_id", a.UserID))
	return &models.ChildResponse{Child: *child, Role: models.RoleAdmin}, nil
}

// ListChildren returns every child the actor owns or cares for.
func (s *Service) ListChildren(ctx context.Context, a Actor) ([]models.ChildResponse, error) {
	children, err := s.store.ListChildren(ctx, a.UserID)
	if err != nil {
		return nil, storeErr(err, apperr.CodeNotFound, "")
	}
	out := make([]models.ChildResponse, 0, len(children))
	for _, c := range children {
		role := models.RoleAdmin
		if c.OwnerID != a.UserID {
			if role, err = s.store.GetCaregiverRole(ctx, c.ID, a.UserID); err != nil {
				return nil, storeErr(err, apperr.CodeChildNotFound, "child %d not found", c.ID)
			}
		}
		out = append(out, models.ChildResponse{Child: c, Role: role})
	}
	return out, nil
}

// GetChild returns one child with the actor's role.
func (s *Service) GetChild(ctx context.Context, a Actor, childID int64) (*models.ChildResponse, error) {
	child, role, err := s.authorize(ctx, a, childID, false)
	if err != nil {
		return nil, err
	}
	return &models.ChildResponse{Child: *child, Role: role}, nil
}

// GrantAccess gives userID a role on the child. Only admins may grant.
func (s *Service) GrantAccess(ctx context.Context, a Actor, childID int64, userID string, req models.CaregiverRequest) (*models.Caregiver, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	child, role, err := s.authorize(ctx, a, childID, true)
	if err != nil {
		return nil, err
	}
	if role != models.RoleAdmin {
		return nil, apperr.New(apperr.CodeForbidden, "only admins can share child %d", childID)
	}
	if userID == "" {
		return nil, apperr.New(apperr.CodeValidation, "userId is required")
	}
	if userID == child.OwnerID {
		return nil, apperr.New(apperr.CodeValidation, "the owner is always an admin")
	}

	cg := models.Caregiver{ChildID: childID, UserID: userID, Role: req.Role}
	if err := s.store.PutCaregiver(ctx, cg); err != nil {
		return nil, storeErr(err, apperr.CodeChildNotFound, "child %d not found", childID)
	}
	s.log.Debug("caregiver granted",
		zap.Int64("child_id", childID),
		zap.String("user_id", userID),
		zap.String("role", string(req.Role)),
	)
	return &cg, nil
}
