package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const RoleAdmin = "admin"

type AdminUser struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	Username  string     `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Password  []byte     `json:"-" gorm:"not null"`
	Role      string     `json:"role" gorm:"size:16;not null;default:admin"`
	IsActive  bool       `json:"isActive" gorm:"not null;default:true"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (u *AdminUser) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleAdmin
	}
	return
}

func (u *AdminUser) SetPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}
	u.Password = hashed
	return nil
}

func (u *AdminUser) ComparePassword(password string) error {
	return bcrypt.CompareHashAndPassword(u.Password, []byte(password))
}
