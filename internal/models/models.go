package models

const RoleUser = "ROLE_USER"

type User struct {
	ID           uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string      `gorm:"unique;not null"          json:"username"`
	Nickname     string      `gorm:"not null"                 json:"nickname"`
	PasswordHash string      `gorm:"not null"                 json:"-"`
	RefreshToken string      `gorm:"default:''"               json:"-"`
	Authorities  []Authority `gorm:"foreignKey:UserID"        json:"authorities"`
}

type Authority struct {
	ID            uint   `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID        uint   `gorm:"index;not null"           json:"-"`
	AuthorityName string `gorm:"not null"                 json:"authorityName"`
}

// RoleNames flattens the authority rows for responses and logs.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Authorities))
	for _, a := range u.Authorities {
		names = append(names, a.AuthorityName)
	}
	return names
}
