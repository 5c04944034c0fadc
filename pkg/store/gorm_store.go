package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"formsapi/pkg/domain"
)

const migrateLockID int64 = 51728311

// SQLitePrefix selects the embedded SQLite driver, e.g. "sqlite:/tmp/forms.db".
const SQLitePrefix = "sqlite:"

// GormStore implements Store using GORM. Postgres is the default driver;
// DSNs starting with SQLitePrefix open an SQLite database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("database dsn required")
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{Logger: gormLog, TranslateError: true}

	if path, ok := strings.CutPrefix(dsn, SQLitePrefix); ok {
		db, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		// SQLite serializes writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
		if err := autoMigrate(db); err != nil {
			return nil, err
		}
		return &GormStore{db: db}, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, autoMigrate); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserModel{}, &FormModel{}, &QuestionModel{}, &ResponseModel{}, &AnswerModel{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn inside a database transaction.
func (s *GormStore) Transaction(fn func(tx Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// CreateUser inserts a new user.
func (s *GormStore) CreateUser(u domain.User) error {
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "name", "updated_at"}),
	}).Create(&model).Error
	if isDuplicateKey(err) {
		return ErrDuplicateEmail
	}
	return err
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListUsers returns all users, newest first.
func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at DESC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// DeleteUser removes the user and every form it owns.
func (s *GormStore) DeleteUser(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var formIDs []string
		if err := tx.Model(&FormModel{}).Where("owner_id = ?", id).Pluck("id", &formIDs).Error; err != nil {
			return err
		}
		if err := deleteForms(tx, formIDs); err != nil {
			return err
		}
		return tx.Delete(&UserModel{}, "id = ?", id).Error
	})
}

// SaveForm stores or updates a form. The owner is fixed at creation.
func (s *GormStore) SaveForm(f domain.Form) error {
	model := formToModel(f)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "updated_at"}),
	}).Create(&model).Error
}

// GetForm retrieves a form.
func (s *GormStore) GetForm(id string) (domain.Form, bool, error) {
	var model FormModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Form{}, false, nil
		}
		return domain.Form{}, false, err
	}
	return formFromModel(model), true, nil
}

// ListForms returns forms matching q.
func (s *GormStore) ListForms(q FormQuery) ([]domain.Form, error) {
	tx := s.db.Model(&FormModel{})
	if q.OwnerID != "" {
		tx = tx.Where("owner_id = ?", q.OwnerID)
	}
	if title := strings.TrimSpace(q.Filter.Title); title != "" {
		tx = tx.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(title)+"%")
	}
	// SQLite compares timestamps as text, so bounds must share the stored UTC layout.
	if !q.Filter.CreatedAfter.IsZero() {
		tx = tx.Where("created_at >= ?", q.Filter.CreatedAfter.UTC())
	}
	if !q.Filter.CreatedBefore.IsZero() {
		tx = tx.Where("created_at <= ?", q.Filter.CreatedBefore.UTC())
	}
	var models []FormModel
	if err := tx.Order(orderClause(q.Sort, FormSortColumns, DefaultFormSort)).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Form, 0, len(models))
	for _, m := range models {
		res = append(res, formFromModel(m))
	}
	return res, nil
}

// DeleteForm removes the form with its questions, responses and answers.
func (s *GormStore) DeleteForm(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteForms(tx, []string{id})
	})
}

func deleteForms(tx *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Delete(&AnswerModel{}, "form_id IN ?", ids).Error; err != nil {
		return err
	}
	if err := tx.Delete(&ResponseModel{}, "form_id IN ?", ids).Error; err != nil {
		return err
	}
	if err := tx.Delete(&QuestionModel{}, "form_id IN ?", ids).Error; err != nil {
		return err
	}
	return tx.Delete(&FormModel{}, "id IN ?", ids).Error
}

// SaveQuestion stores or updates a question.
func (s *GormStore) SaveQuestion(q domain.Question) error {
	model, err := questionToModel(q)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "type", "required", "options", "position", "updated_at"}),
	}).Create(&model).Error
}

// GetQuestion retrieves a question.
func (s *GormStore) GetQuestion(id string) (domain.Question, bool, error) {
	var model QuestionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Question{}, false, nil
		}
		return domain.Question{}, false, err
	}
	return questionFromModel(model), true, nil
}

// ListQuestions returns the questions of a form.
func (s *GormStore) ListQuestions(formID string, sort domain.Sort) ([]domain.Question, error) {
	var models []QuestionModel
	if err := s.db.Where("form_id = ?", formID).
		Order(orderClause(sort, QuestionSortColumns, DefaultQuestionSort)).
		Order("position ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Question, 0, len(models))
	for _, m := range models {
		res = append(res, questionFromModel(m))
	}
	return res, nil
}

// CountQuestions returns the number of questions in a form.
func (s *GormStore) CountQuestions(formID string) (int, error) {
	var count int64
	if err := s.db.Model(&QuestionModel{}).Where("form_id = ?", formID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SetQuestionPositions assigns position i+1 to orderedIDs[i].
func (s *GormStore) SetQuestionPositions(formID string, orderedIDs []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if len(orderedIDs) > 0 {
			var count int64
			if err := tx.Model(&QuestionModel{}).
				Where("form_id = ? AND id IN ?", formID, orderedIDs).
				Count(&count).Error; err != nil {
				return err
			}
			if int(count) != len(orderedIDs) {
				return ErrUnknownQuestion
			}
		}
		now := time.Now().UTC()
		for i, id := range orderedIDs {
			if err := tx.Model(&QuestionModel{}).
				Where("id = ? AND form_id = ?", id, formID).
				Updates(map[string]any{"position": i + 1, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteQuestion removes a question and the answers that reference it.
func (s *GormStore) DeleteQuestion(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&AnswerModel{}, "question_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&QuestionModel{}, "id = ?", id).Error
	})
}

// SaveResponse stores or updates a response.
func (s *GormStore) SaveResponse(r domain.Response) error {
	model := responseToModel(r)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"respondent_name", "respondent_email", "updated_at"}),
	}).Create(&model).Error
}

// GetResponse retrieves a response.
func (s *GormStore) GetResponse(id string) (domain.Response, bool, error) {
	var model ResponseModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Response{}, false, nil
		}
		return domain.Response{}, false, err
	}
	return responseFromModel(model), true, nil
}

// ListResponses returns the responses of a form.
func (s *GormStore) ListResponses(formID string, sort domain.Sort) ([]domain.Response, error) {
	var models []ResponseModel
	if err := s.db.Where("form_id = ?", formID).
		Order(orderClause(sort, ResponseSortColumns, DefaultResponseSort)).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Response, 0, len(models))
	for _, m := range models {
		res = append(res, responseFromModel(m))
	}
	return res, nil
}

// CountResponses returns the number of responses submitted to a form.
func (s *GormStore) CountResponses(formID string) (int, error) {
	var count int64
	if err := s.db.Model(&ResponseModel{}).Where("form_id = ?", formID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteResponse removes a response and its answers.
func (s *GormStore) DeleteResponse(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&AnswerModel{}, "response_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&ResponseModel{}, "id = ?", id).Error
	})
}

// CreateAnswer appends an answer after the existing answers of its response.
func (s *GormStore) CreateAnswer(a domain.Answer) error {
	var maxSeq int
	if err := s.db.Model(&AnswerModel{}).
		Where("response_id = ?", a.ResponseID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&maxSeq).Error; err != nil {
		return err
	}
	model := answerToModel(a)
	model.Seq = maxSeq + 1
	return s.db.Create(&model).Error
}

// ListAnswersByResponse returns answers in insertion order.
func (s *GormStore) ListAnswersByResponse(responseID string) ([]domain.Answer, error) {
	var models []AnswerModel
	if err := s.db.Where("response_id = ?", responseID).Order("seq ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Answer, 0, len(models))
	for _, m := range models {
		res = append(res, answerFromModel(m))
	}
	return res, nil
}

// CountAnswers returns the number of answers in a response.
func (s *GormStore) CountAnswers(responseID string) (int, error) {
	var count int64
	if err := s.db.Model(&AnswerModel{}).Where("response_id = ?", responseID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// DeleteAnswersByResponse removes all answers of a response.
func (s *GormStore) DeleteAnswersByResponse(responseID string) error {
	return s.db.Delete(&AnswerModel{}, "response_id = ?", responseID).Error
}
