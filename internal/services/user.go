package service

import (
	"context"
	"time"

	"github.com/atelieforma/storefront/internal/errors"
	"github.com/atelieforma/storefront/internal/models"
	repository "github.com/atelieforma/storefront/internal/repositories"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	repo      repository.UserRepository
	rateLimit repository.RateLimitRepository
	jwtKey    []byte
	tokenTTL  time.Duration
}

func NewUserService(repo repository.UserRepository, rateLimit repository.RateLimitRepository, jwtKey []byte, tokenTTL time.Duration) *UserService {
	return &UserService{
		repo:      repo,
		rateLimit: rateLimit,
		jwtKey:    jwtKey,
		tokenTTL:  tokenTTL,
	}
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {

	if _, err := s.repo.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, errors.DuplicateEntryError("Email is already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.InternalError("Failed to hash password").WithError(err)
	}

	user := &models.User{
		ID:       uuid.New(),
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, errors.DatabaseError("Failed to create user").WithError(err)
	}

	return user, nil
}

func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {

	allowed, remaining, retryAfter, err := s.rateLimit.CheckLoginRateLimit(ctx, req.Email)
	if err != nil {
		return nil, errors.InternalError("Failed to check login rate limit").WithError(err)
	}

	if !allowed {
		return &models.LoginResponse{
			Success:    false,
			RetryAfter: retryAfter,
			Message:    "Too many login attempts, try again later",
		}, errors.TooManyRequestsError("Too many login attempts")
	}

	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return &models.LoginResponse{
			Success:        false,
			RemainingTries: remaining,
			Message:        "Invalid credentials",
		}, errors.UnauthorizedError("Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return &models.LoginResponse{
			Success:        false,
			RemainingTries: remaining,
			Message:        "Invalid credentials",
		}, errors.UnauthorizedError("Invalid credentials")
	}

	expiresAt := time.Now().Add(s.tokenTTL)

	claims := &models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return nil, errors.InternalError("Failed to sign token").WithError(err)
	}

	return &models.LoginResponse{
		Success:   true,
		Token:     signed,
		ExpiresIn: int(s.tokenTTL.Seconds()),
	}, nil
}

func (s *UserService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, errors.NotFoundError("User not found").WithError(err)
	}

	return user, nil
}

// AddAddress creates a new address for the user and returns the stored copy.
// Addresses are never deleted implicitly.
func (s *UserService) AddAddress(ctx context.Context, userID uuid.UUID, req *models.AddAddressRequest) (*models.Address, error) {

	address := &models.Address{
		ID:         uuid.New(),
		UserID:     userID,
		Label:      req.Label,
		Street:     req.Street,
		Number:     req.Number,
		Complement: req.Complement,
		District:   req.District,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
	}

	if err := s.repo.AddAddress(ctx, address); err != nil {
		return nil, errors.DatabaseError("Failed to save address").WithError(err)
	}

	return address, nil
}

func (s *UserService) ListAddresses(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {

	addresses, err := s.repo.ListAddressesByUser(ctx, userID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to fetch addresses").WithError(err)
	}

	return addresses, nil
}

// AddressForUser fetches an address and verifies ownership.
func (s *UserService) AddressForUser(ctx context.Context, addressID, userID uuid.UUID) (*models.Address, error) {

	address, err := s.repo.GetAddressByID(ctx, addressID)
	if err != nil {
		return nil, errors.NotFoundError("Address not found").WithError(err)
	}

	if address.UserID != userID {
		return nil, errors.ForbiddenError("Address belongs to another user")
	}

	return address, nil
}
