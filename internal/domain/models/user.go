package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64           `json:"id"`
	Login        string          `json:"login"`
	PasswordHash string          `json:"-"` // never sent to the front end
	Role         string          `json:"role"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PublicUser struct {
	ID        int64           `json:"id"`
	Login     string          `json:"login"`
	Role      string          `json:"role"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Balance   decimal.Decimal `json:"balance"`
}

func (u *User) ToPublic() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Login:     u.Login,
		Role:      u.Role,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Balance:   u.Balance,
	}
}
