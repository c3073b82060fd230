package models

import "time"

const (
	ToolTable       = "tools"
	DefaultCategory = "Uncategorized"
)

type ToolStatus string

const (
	ToolAvailable ToolStatus = "available"
	ToolBorrowed  ToolStatus = "borrowed"
)

// Tool is a lendable item with an RFID tag. Status only changes through the
// lending engine.
type Tool struct {
	ID        uint       `gorm:"primaryKey" json:"tool_id"`
	Name      string     `gorm:"size:200;not null" json:"name"`
	RFIDUID   string     `gorm:"column:rfid_uid;size:100;not null;uniqueIndex:ux_tools_rfid_uid" json:"rfid_uid"`
	Category  string     `gorm:"size:100;not null;default:'Uncategorized'" json:"category"`
	Status    ToolStatus `gorm:"size:20;not null;default:'available';index" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Tool) TableName() string { return ToolTable }
