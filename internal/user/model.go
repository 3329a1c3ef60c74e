package user

import "time"

type User struct {
	ID                int       `db:"id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Email             string    `db:"email" json:"email"`
	PasswordHash      string    `db:"password_hash" json:"-"`
	Role              string    `db:"role" json:"role"`
	AssignedTrainerID *int      `db:"assigned_trainer_id" json:"assigned_trainer_id,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

func (u *User) IsAdmin() bool   { return u.Role == "admin" }
func (u *User) IsTrainer() bool { return u.Role == "trainer" }
func (u *User) IsMember() bool  { return u.Role == "member" }

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         User   `json:"user"`
}
