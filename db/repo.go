package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"rfid_tool_kiosk/apperr"
	"rfid_tool_kiosk/models"

	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

const DefaultLockTimeout = 5 * time.Second

type Repo struct {
	DB *gorm.DB

	locks       *toolLocks
	writer      *semaphore.Weighted // sqlite only: its single connection
	lockTimeout time.Duration
	dialect     string
}

func NewRepo(db *gorm.DB, lockTimeout time.Duration) *Repo {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	r := &Repo{DB: db, locks: newToolLocks(), lockTimeout: lockTimeout, dialect: Dialect(db)}
	if r.dialect == DriverSQLite {
		r.writer = semaphore.NewWeighted(1)
	}
	return r
}

func (r *Repo) bind(tx *gorm.DB) *Repo {
	c := *r
	c.DB = tx
	return &c
}

// Students

func (r *Repo) CreateStudent(ctx context.Context, s *models.Student) error {
	return translate(r.DB.WithContext(ctx).Create(s).Error)
}

// FindStudentByID returns nil, nil on miss.
func (r *Repo) FindStudentByID(ctx context.Context, id uint) (*models.Student, error) {
	return firstStudent(r.DB.WithContext(ctx).Where("id = ?", id))
}

func (r *Repo) FindStudentByUID(ctx context.Context, uid string) (*models.Student, error) {
	return firstStudent(r.DB.WithContext(ctx).Where("rfid_uid = ?", uid))
}

func (r *Repo) FindStudentByNIM(ctx context.Context, nim string) (*models.Student, error) {
	return firstStudent(r.DB.WithContext(ctx).Where("nim = ?", nim))
}

func firstStudent(q *gorm.DB) (*models.Student, error) {
	var s models.Student
	if err := q.First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, translate(err)
	}
	return &s, nil
}

// UpdateStudent applies a partial update.
func (r *Repo) UpdateStudent(ctx context.Context, id uint, changes map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Student{}).Where("id = ?", id).Updates(changes)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, "student not found")
	}
	return nil
}

func (r *Repo) AttachStudentPhoto(ctx context.Context, id uint, data []byte, mimetype string) error {
	return r.UpdateStudent(ctx, id, map[string]any{
		"photo_data":     data,
		"photo_mimetype": mimetype,
	})
}

// StudentPhoto returns nil data when the student or the photo is absent.
func (r *Repo) StudentPhoto(ctx context.Context, id uint) ([]byte, string, error) {
	var s models.Student
	err := r.DB.WithContext(ctx).Select("id", "photo_data", "photo_mimetype").First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", translate(err)
	}
	if len(s.PhotoData) == 0 {
		return nil, "", nil
	}
	return s.PhotoData, s.PhotoMimetype, nil
}

// paged list, keyword matched against name / nim
type ListStudentsResult struct {
	Students []models.Student `json:"students"`
	Total    int64            `json:"total"`
}

func (r *Repo) ListStudents(ctx context.Context, q string, page, size int) (ListStudentsResult, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}

	tx := r.DB.WithContext(ctx).Model(&models.Student{})
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		tx = tx.Where("LOWER(name) LIKE ? OR LOWER(nim) LIKE ?", like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return ListStudentsResult{}, translate(err)
	}

	var students []models.Student
	if err := tx.
		Select("id, name, nim, email, phone, rfid_uid, photo_mimetype, created_at, updated_at, photo_data IS NOT NULL AS has_photo").
		Order("name ASC, id ASC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&students).Error; err != nil {
		return ListStudentsResult{}, translate(err)
	}
	return ListStudentsResult{Students: students, Total: total}, nil
}
