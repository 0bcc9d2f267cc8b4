package store

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"strings"

	"github.com/heshen/BookStack-1/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
	); err != nil {
		return nil, err
	}

	store := &Store{db: db}

	// Seed default data
	if err := store.seedData(); err != nil {
		log.Printf("Warning: failed to seed data: %v", err)
	}

	return store, nil
}

// generateRandomPassword generates a random password of specified length
func generateRandomPassword(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use base64 URL encoding to get a safe, printable password
	return base64.URLEncoding.EncodeToString(bytes)[:length], nil
}

func (s *Store) seedData() error {
	// Create default admin if the user table is empty
	var userCount int64
	s.db.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		password, err := generateRandomPassword(16)
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := &models.User{
			ID:           uuid.New().String(),
			Username:     "admin",
			Email:        "admin@localhost",
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			AuthSource:   "standard",
		}
		if err := s.db.Create(user).Error; err != nil {
			return err
		}
		log.Printf("Created default user: admin / %s (role: admin)", password)
	}

	return nil
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return &user, err
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return &user, err
}

// GetUserByEmail retrieves a user by email address. The reconciler uses
// this as the duplicate-identity fast path before provisioning.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return &user, err
}

// GetUserByExternalID retrieves a user by external identifier and auth source
func (s *Store) GetUserByExternalID(
	ctx context.Context,
	externalID, authSource string,
) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Where("external_id = ? AND auth_source = ?", externalID, authSource).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	return &user, err
}

// CreateUser persists a fully-initialized user in a single insert. A
// request aborted mid-provisioning therefore leaves no partial record.
// Unique-index violations surface as the matching conflict sentinel.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if isDuplicateKey(err) {
		return conflictError(err)
	}
	return err
}

// UpdateUser persists changes to an existing user
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Save(user).Error
	if isDuplicateKey(err) {
		return conflictError(err)
	}
	return err
}

// SetUserRole updates only the role column for a user. Group sync uses
// this so a membership change does not overwrite concurrent profile edits.
func (s *Store) SetUserRole(ctx context.Context, userID, role string) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// CreateAuditLogs inserts a batch of audit entries
func (s *Store) CreateAuditLogs(ctx context.Context, logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(logs).Error
}

// AuditLogQuery narrows and pages ListAuditLogs results. Zero-value
// filter fields match everything.
type AuditLogQuery struct {
	EventType models.EventType
	Severity  models.EventSeverity
	Limit     int
	Offset    int
}

// ListAuditLogs returns audit entries newest first, plus the total count
// matching the filters.
func (s *Store) ListAuditLogs(
	ctx context.Context,
	q AuditLogQuery,
) ([]*models.AuditLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if q.EventType != "" {
		query = query.Where("event_type = ?", q.EventType)
	}
	if q.Severity != "" {
		query = query.Where("severity = ?", q.Severity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []*models.AuditLog
	err := query.
		Order("created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// Health checks database connectivity
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// DB exposes the underlying gorm handle for migrations and tests
func (s *Store) DB() *gorm.DB {
	return s.db
}

// isDuplicateKey reports whether err came from a unique-index violation.
// TranslateError covers the common case; the message check catches drivers
// the translator misses.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// conflictError maps a duplicate-key error onto the column it hit. The
// translated error does not say which index fired, so we inspect the
// driver message and default to the email constraint, which is the one the
// reconciler acts on.
func conflictError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "username") {
		return ErrUsernameConflict
	}
	return ErrEmailConflict
}
