package user

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/suPer8Hu/codesensei/internal/auth"
	"github.com/suPer8Hu/codesensei/internal/common"
	"gorm.io/gorm"
)

const (
	minPasswordLen = 8
	maxNameLen     = 50
)

type User struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"size:32;uniqueIndex;not null" json:"username"`
	Name         *string   `gorm:"size:50" json:"name"`
	Image        *string   `gorm:"size:2048" json:"image"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	XP           int64     `gorm:"not null;default:0" json:"xp"`
	Level        int       `gorm:"not null;default:1" json:"level"`
	StreakDays   int       `gorm:"not null;default:0" json:"streak_days"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Service struct {
	db        *gorm.DB
	jwtSecret string
	jwtTTL    time.Duration
}

func NewService(db *gorm.DB, jwtSecret string, jwtTTL time.Duration) *Service {
	return &Service{db: db, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

// randomUsername returns an 11 character [a-z0-9] handle.
func randomUsername() (string, error) {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, 11)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		out[i] = letters[n.Int64()]
	}
	return string(out), nil
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// Register creates the account and returns it with a signed token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, "", common.Invalid("invalid email address")
	}
	if len(in.Password) < minPasswordLen {
		return nil, "", common.Invalid("password must be at least 8 characters")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}

	// usernames are random, retry on the unlikely collision
	var username string
	for i := 0; i < 5; i++ {
		u, err := randomUsername()
		if err != nil {
			return nil, "", err
		}
		var cnt int64
		if err := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", u).Count(&cnt).Error; err != nil {
			return nil, "", common.FromDB(err, "user")
		}
		if cnt == 0 {
			username = u
			break
		}
	}
	if username == "" {
		return nil, "", errors.New("failed to allocate username")
	}

	u := &User{Email: email, Username: username, PasswordHash: hash, Level: 1}
	if name := strings.TrimSpace(in.Name); name != "" {
		if err := checkName(name); err != nil {
			return nil, "", err
		}
		u.Name = &name
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", common.Conflict("email is already registered")
		}
		return nil, "", common.FromDB(err, "user")
	}

	token, err := auth.SignJWT(u.ID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks the credentials. Unknown email and wrong password look the same to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !auth.CheckPassword(u.PasswordHash, password)) {
		return nil, "", common.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, "", common.FromDB(err, "user")
	}
	token, err := auth.SignJWT(u.ID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return &u, token, nil
}

func (s *Service) Get(ctx context.Context, id uint64) (*User, error) {
	var u User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, common.FromDB(err, "user")
	}
	return &u, nil
}

type ProfilePatch struct {
	Name  common.Optional[string] `json:"name"`
	Image common.Optional[string] `json:"image"`
}

func (s *Service) UpdateProfile(ctx context.Context, id uint64, patch ProfilePatch) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name.Set {
		name := strings.TrimSpace(patch.Name.Value)
		if err := checkName(name); err != nil {
			return nil, err
		}
		u.Name = &name
	}
	if patch.Image.Set {
		u.Image = patch.Image.Ptr()
		if u.Image != nil && strings.TrimSpace(*u.Image) == "" {
			u.Image = nil
		}
	}
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, common.FromDB(err, "user")
	}
	return u, nil
}

func checkName(name string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLen {
		return common.Invalid("name must be between 1 and 50 characters")
	}
	return nil
}
