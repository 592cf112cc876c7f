package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"recipeexchange/internal/middleware"

	"gorm.io/gorm"
)

// Postgres advisory lock key held while a migration runs, so replicas that
// start together apply each migration once.
const migrationLockKey = 7_301_954_112

// MigrationLog records an applied migration.
type MigrationLog struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName returns the database table name for MigrationLog.
func (MigrationLog) TableName() string {
	return "migration_logs"
}

// Migrator applies SQL migrations and tracks them in migration_logs.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator creates a Migrator for migrations, which must be ordered by version.
func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations}
}

// Applied lists applied versions in ascending order. A missing log table means
// nothing has been applied.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	db := m.db.WithContext(ctx)
	if !db.Migrator().HasTable(&MigrationLog{}) {
		return []int{}, nil
	}
	var versions []int
	if err := db.Model(&MigrationLog{}).Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return versions, nil
}

// Pending returns the migrations not yet applied and the applied versions.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, []int, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, nil, err
	}
	var pending []Migration
	for _, mig := range m.migrations {
		if !slices.Contains(applied, mig.Version) {
			pending = append(pending, mig)
		}
	}
	return pending, applied, nil
}

// Up applies every pending migration, each in its own transaction, and returns
// how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&MigrationLog{}); err != nil {
		return 0, fmt.Errorf("failed to ensure migration logs table: %w", err)
	}

	pending, applied, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	if err := validateAppliedVersions(applied, m.migrations); err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range pending {
		appliedNow, err := m.apply(ctx, mig)
		if err != nil {
			return ran, err
		}
		if appliedNow {
			ran++
		}
	}
	return ran, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) (bool, error) {
	applied := false
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMigrations(tx); err != nil {
			return err
		}
		// Another process may have applied it while we waited for the lock.
		var count int64
		if err := tx.Model(&MigrationLog{}).Where("version = ?", mig.Version).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		middleware.Logger.InfoContext(ctx, "Applying migration", slog.String("migration", mig.String()))
		if err := tx.Exec(mig.UpScript).Error; err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", mig, err)
		}
		if err := tx.Create(&MigrationLog{Version: mig.Version, Name: mig.Name}).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", mig, err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// Down reverts one applied migration and removes its log entry atomically.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig := findMigration(m.migrations, version)
	if mig == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.InfoContext(ctx, "Rolling back migration", slog.String("migration", mig.String()))
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockMigrations(tx); err != nil {
			return err
		}
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("failed to run rollback SQL for migration %s: %w", mig, err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationLog{}).Error
	})
}

func lockMigrations(tx *gorm.DB) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	return nil
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	var unknown []string
	for _, version := range applied {
		if findMigration(registered, version) == nil {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return errors.New("migration_logs contains versions unknown to this build: " +
		strings.Join(unknown, ", ") + " (roll them back with a build that has them, or rebuild the database)")
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	ran, err := NewMigrator(db, GetMigrations()).Up(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "SQL migrations complete", slog.Int("applied", ran))
	return nil
}

// RollbackMigration reverts the embedded migration with the given version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	return NewMigrator(db, GetMigrations()).Down(ctx, version)
}
