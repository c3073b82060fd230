package models

import "time"

const TransactionTable = "transactions"

type TransactionStatus string

const (
	TxBorrowed TransactionStatus = "borrowed"
	TxReturned TransactionStatus = "returned"
)

// Transaction is one borrow, closed at most once by a return.
// StudentName and ToolName are snapshots taken at borrow time.
type Transaction struct {
	ID          uint              `gorm:"primaryKey" json:"transaction_id"`
	StudentID   uint              `gorm:"not null;index:ix_transactions_student_tool_status,priority:1" json:"student_id"`
	StudentName string            `gorm:"size:200;not null" json:"student_name"`
	ToolID      uint              `gorm:"not null;index:ix_transactions_student_tool_status,priority:2;index:ix_transactions_tool_status,priority:1" json:"tool_id"`
	ToolName    string            `gorm:"size:200;not null" json:"tool_name"`
	BorrowTime  time.Time         `gorm:"not null;index" json:"borrow_time"`
	ReturnTime  *time.Time        `json:"return_time"`
	Status      TransactionStatus `gorm:"size:20;not null;default:'borrowed';index:ix_transactions_student_tool_status,priority:3;index:ix_transactions_tool_status,priority:2" json:"status"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`

	Student *Student `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Tool    *Tool    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Transaction) TableName() string { return TransactionTable }

func (t Transaction) Open() bool { return t.Status == TxBorrowed }
