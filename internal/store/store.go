// Package store persists front end settings and completed laps in SQLite.
package store

import (
	"errors"
	"fmt"
	"time"

	"rc-physics-lab/internal/session"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("not found")

// Setting is one key/value pair saved by the front end.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LapRecord is a completed lap of a run.
type LapRecord struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	RunID         string    `json:"run_id" gorm:"index"`
	Lap           int       `json:"lap"`
	LapTime       float64   `json:"lap_time"`
	BestLapTime   *float64  `json:"best_lap_time"`
	IsBest        bool      `json:"is_best"`
	TotalEnergy   float64   `json:"total_energy"`
	BatteryCharge float64   `json:"battery_charge"`
	ElapsedTime   float64   `json:"elapsed_time"`
	CreatedAt     time.Time `json:"created_at"`
}

// Service encapsulates all database operations.
type Service struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewService opens the database at path and runs migrations.
func NewService(path string, logger *logrus.Logger) (*Service, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(&Setting{}, &LapRecord{}); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	logger.Infof("Store opened at %s", path)
	return &Service{db: db, logger: logger}, nil
}

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ========
// SETTINGS
// ========

func (s *Service) GetSettings() (map[string]string, error) {
	var settings []Setting
	if err := s.db.Order("`key` asc").Find(&settings).Error; err != nil {
		return nil, err
	}
	result := make(map[string]string, len(settings))
	for _, setting := range settings {
		result[setting.Key] = setting.Value
	}
	return result, nil
}

func (s *Service) GetSetting(key string) (Setting, error) {
	var setting Setting
	err := s.db.Where("`key` = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Setting{}, fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return setting, err
}

// PutSetting inserts or replaces key.
func (s *Service) PutSetting(key, value string) (Setting, error) {
	if key == "" {
		return Setting{}, fmt.Errorf("setting key must not be empty")
	}
	setting := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&setting).Error
	return setting, err
}

func (s *Service) DeleteSetting(key string) error {
	result := s.db.Where("`key` = ?", key).Delete(&Setting{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	return nil
}

// ====
// LAPS
// ====

func (s *Service) SaveLap(lap session.LapRecord) error {
	record := LapRecord{
		RunID:         lap.RunID,
		Lap:           lap.Lap,
		LapTime:       lap.LapTime,
		BestLapTime:   lap.BestLapTime,
		IsBest:        lap.IsBest,
		TotalEnergy:   lap.TotalEnergy,
		BatteryCharge: lap.BatteryCharge,
		ElapsedTime:   lap.ElapsedTime,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("save lap %d of run %s: %w", lap.Lap, lap.RunID, err)
	}
	return nil
}

// GetLaps returns the most recent laps, optionally filtered by run.
func (s *Service) GetLaps(runID string, limit int) ([]LapRecord, error) {
	var laps []LapRecord
	query := s.db.Order("id desc")
	if runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&laps).Error
	return laps, err
}

// BestLap returns the fastest recorded lap of runID, or of every run when
// runID is empty.
func (s *Service) BestLap(runID string) (LapRecord, error) {
	var lap LapRecord
	query := s.db.Where("lap_time > 0").Order("lap_time asc")
	if runID != "" {
		query = query.Where("run_id = ?", runID)
	}
	err := query.First(&lap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LapRecord{}, fmt.Errorf("best lap: %w", ErrNotFound)
	}
	return lap, err
}
