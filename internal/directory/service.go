// Package directory is the customer registry: phone-keyed accounts with
// bcrypt credentials and a loyalty-point balance.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"github.com/vendlink/vendcentral/internal/domain"
	"github.com/vendlink/vendcentral/internal/errs"
	"github.com/vendlink/vendcentral/internal/eventlog"
	"github.com/vendlink/vendcentral/pkg/common"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	secret string
	events *eventlog.Logger
}

// NewService builds the directory. secret signs login tokens; events may be
// nil.
func NewService(db *gorm.DB, secret string, events *eventlog.Logger) *Service {
	return &Service{db: db, secret: secret, events: events}
}

// RegisterRequest carries a registration payload. UserID is client-supplied
// and opaque.
type RegisterRequest struct {
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Birthday    string `json:"birthday"`
	Password    string `json:"password"`
}

// Register creates a customer with a single atomic insert. Uniqueness of
// user_id and phone_number is enforced by the store's constraints; a
// duplicate-key failure is the conflict signal, there are no pre-reads.
func (s *Service) Register(ctx context.Context, req RegisterRequest) error {
	required := []struct{ field, value string }{
		{"user_id", req.UserID},
		{"full_name", req.FullName},
		{"phone_number", req.PhoneNumber},
		{"birthday", req.Birthday},
		{"password", req.Password},
	}
	for _, r := range required {
		if r.value == "" {
			return errs.Validation("MISSING_FIELDS", fmt.Sprintf("Missing field %s", r.field), r.field)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return errs.Internal(err)
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Create(&domain.User{
		UserID:      req.UserID,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Birthday:    req.Birthday,
		Password:    string(hash),
		Status:      common.ACTIVE,
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.Conflict("USER_EXISTS", "Phone number or user ID already registered")
		}
		return errs.Internal(err)
	}

	if s.events != nil {
		s.events.Append("user_register", fmt.Sprintf("Registered %s", req.UserID),
			map[string]interface{}{"user_id": req.UserID})
	}
	return nil
}

// Authenticate checks phone + password and returns the profile with a signed
// token. Unknown phone and wrong password produce the same error.
func (s *Service) Authenticate(ctx context.Context, phone, password string) (*domain.UserProfile, string, error) {
	if phone == "" || password == "" {
		return nil, "", errs.Auth()
	}

	var user domain.User
	err := s.db.WithContext(ctx).Where("phone_number = ?", phone).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", errs.Auth()
		}
		return nil, "", errs.Internal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, "", errs.Auth()
	}

	token, err := s.signToken(user.UserID)
	if err != nil {
		return nil, "", errs.Internal(err)
	}
	return profileOf(&user), token, nil
}

func (s *Service) signToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
}

// GetByID returns the public projection, never the credential hash.
func (s *Service) GetByID(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("USER_NOT_FOUND", "User not found")
		}
		return nil, errs.Internal(err)
	}
	return profileOf(&user), nil
}

func profileOf(u *domain.User) *domain.UserProfile {
	return &domain.UserProfile{
		UserID:      u.UserID,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Points:      u.Points,
	}
}

// ListEntry is one row of the admin user listing.
type ListEntry struct {
	UserID      string    `json:"user_id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Points      int64     `json:"points"`
	Birthday    string    `json:"birthday"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// List pages through users, optionally matching name or phone.
func (s *Service) List(ctx context.Context, limit, offset int, search string) ([]ListEntry, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := s.db.WithContext(ctx).Model(&domain.User{})
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("full_name LIKE ? OR phone_number LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal(err)
	}

	var rows []ListEntry
	err := q.Select("user_id, full_name, phone_number, points, birthday, status, created_at").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, errs.Internal(err)
	}
	return rows, total, nil
}
