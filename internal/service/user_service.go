package service

import (
	"context"
	"strings"

	"carbook/internal/auth"
	"carbook/internal/domain"
	"carbook/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo       domain.UserRepository
	bcryptCost int
	logger     *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, bcryptCost int, logger *zerolog.Logger) *UserService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &UserService{repo: repo, bcryptCost: bcryptCost, logger: logger}
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdateProfile changes names and, when given, the PIN of a user.
// Empty names keep the stored ones.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, patch models.UserPatch) models.Response {
	if userID == 0 {
		return models.Failure(models.MsgInvalidID)
	}
	if patch.PIN != "" {
		if err := auth.ValidatePIN(patch.PIN); err != nil {
			return models.Failure(models.MsgWeakPIN)
		}
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to load user")
		return models.Failure(models.MsgUserUpdateError)
	}

	if name := strings.TrimSpace(patch.FirstName); name != "" {
		user.FirstName = name
	}
	if name := strings.TrimSpace(patch.LastName); name != "" {
		user.LastName = name
	}
	if patch.PIN != "" {
		hash, err := auth.HashPIN(patch.PIN, s.bcryptCost)
		if err != nil {
			s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to hash PIN")
			return models.Failure(models.MsgUserUpdateError)
		}
		user.PINHash = hash
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to update user")
		return models.Failure(models.MsgUserUpdateError)
	}
	return models.Success(models.MsgUserUpdated)
}
