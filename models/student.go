package models

import (
	"fmt"
	"time"
)

const StudentTable = "students"

// Student is a registered borrower identified by an RFID card.
type Student struct {
	ID            uint      `gorm:"primaryKey" json:"student_id"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	NIM           string    `gorm:"column:nim;size:20;not null;uniqueIndex:ux_students_nim" json:"nim"`
	Email         string    `gorm:"size:200;not null" json:"email"`
	Phone         string    `gorm:"size:20;not null" json:"phone"`
	RFIDUID       string    `gorm:"column:rfid_uid;size:100;not null;uniqueIndex:ux_students_rfid_uid" json:"rfid_uid"`
	PhotoData     []byte    `json:"-"`
	PhotoMimetype string    `gorm:"size:50" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// filled by list queries that do not load the blob
	HasPhoto bool `gorm:"->;-:migration" json:"-"`
}

func (Student) TableName() string { return StudentTable }

func StudentPhotoURL(id uint) string { return fmt.Sprintf("/api/student/%d/photo", id) }

// PhotoURL is empty when no photo is attached.
func (s Student) PhotoURL() string {
	if s.HasPhoto || len(s.PhotoData) > 0 {
		return StudentPhotoURL(s.ID)
	}
	return ""
}

// StudentView is the JSON shape returned to the kiosk.
type StudentView struct {
	Student
	PhotoURL string `json:"photo_url"`
}

func (s Student) View() StudentView { return StudentView{Student: s, PhotoURL: s.PhotoURL()} }
