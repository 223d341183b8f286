package models

type Service struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description,omitempty"`
	OwnerTeam   string `json:"owner_team,omitempty"`
	IsActive    bool   `json:"is_active"`
}
