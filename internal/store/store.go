// Package store owns the durable per-user quota records in an embedded
// SQLite database. SQLite gives no atomic increment safe under
// concurrent in-process callers, so every read-modify-write runs under
// one process-wide mutex. Plain reads skip the lock and may be
// slightly stale; quota correctness only has to prevent large
// overruns, not byte-exact accounting.
package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type Options struct {
	Path      string
	FreeLimit int
	Now       func() time.Time
	Logger    *slog.Logger
}

type Store struct {
	db        *gorm.DB
	mu        sync.Mutex
	freeLimit int
	now       func() time.Time
	logger    *slog.Logger
}

func Open(opts Options) (*Store, error) {
	path := opts.Path
	if path == "" {
		path = "snapsell.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&Account{}, &Generation{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	freeLimit := opts.FreeLimit
	if freeLimit < 0 {
		freeLimit = 0
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		db:        db,
		freeLimit: freeLimit,
		now:       now,
		logger:    logger,
	}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) FreeLimit() int { return s.freeLimit }

// EnsureAccount creates the row on first contact and refreshes display
// metadata on every later one.
func (s *Store) EnsureAccount(userID int64, username, firstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := Account{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		Plan:      PlanFree,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "updated_at"}),
	}).Create(&acc).Error
}

// EffectivePlan resolves what an account record means at a given
// instant without touching storage: a pro plan whose window has closed
// reads as free.
func EffectivePlan(acc Account, now time.Time) Plan {
	if acc.Plan == PlanPro {
		if acc.ProUntil != nil && acc.ProUntil.After(now) {
			return PlanPro
		}
		return PlanFree
	}
	if acc.Plan == PlanBasic {
		return PlanBasic
	}
	return PlanFree
}

// CurrentPlan resolves the effective plan and, when a pro window has
// lapsed, persists the downgrade (plan back to free, ProUntil
// cleared). The write-on-read is deliberate: expiry is lazy, there is
// no background sweep.
func (s *Store) CurrentPlan(userID int64) (Plan, error) {
	acc, found, err := s.account(userID)
	if err != nil {
		return PlanFree, err
	}
	if !found {
		return PlanFree, nil
	}

	plan := EffectivePlan(acc, s.now())
	if plan != acc.Plan {
		if err := s.expirePro(userID); err != nil {
			return plan, err
		}
	}
	return plan, nil
}

func (s *Store) expirePro(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Model(&Account{}).Where("user_id = ?", userID).Updates(map[string]any{
		"plan":      PlanFree,
		"pro_until": nil,
	}).Error
}

// CanGenerate reports eligibility without consuming anything.
func (s *Store) CanGenerate(userID int64) (bool, error) {
	plan, err := s.CurrentPlan(userID)
	if err != nil {
		return false, err
	}

	switch plan {
	case PlanPro:
		return true, nil
	case PlanBasic:
		acc, _, err := s.account(userID)
		if err != nil {
			return false, err
		}
		return acc.PaidLeft > 0, nil
	default:
		acc, _, err := s.account(userID)
		if err != nil {
			return false, err
		}
		return acc.FreeUses < s.freeLimit, nil
	}
}

// RecordUse consumes one generation: basic decrements PaidLeft clamped
// at zero, free increments FreeUses, pro changes nothing. The returned
// Usage carries the counters for whichever plan applied.
func (s *Store) RecordUse(userID int64) (Usage, error) {
	plan, err := s.CurrentPlan(userID)
	if err != nil {
		return Usage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch plan {
	case PlanBasic:
		err = s.db.Model(&Account{}).Where("user_id = ?", userID).
			Update("paid_left", gorm.Expr("MAX(0, paid_left - 1)")).Error
	case PlanFree:
		err = s.db.Model(&Account{}).Where("user_id = ?", userID).
			Update("free_uses", gorm.Expr("free_uses + 1")).Error
	}
	if err != nil {
		return Usage{}, err
	}

	acc, _, err := s.account(userID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Plan: plan, FreeUses: acc.FreeUses, PaidLeft: acc.PaidLeft, ProUntil: acc.ProUntil}, nil
}

// GrantPlan applies a purchase. Basic grants stack: the bought
// generations add to whatever is left. Pro grants replace: a
// repurchase restarts the window from now rather than extending it.
func (s *Store) GrantPlan(userID int64, plan Plan, generations, days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch plan {
	case PlanBasic:
		return s.db.Model(&Account{}).Where("user_id = ?", userID).Updates(map[string]any{
			"plan":      PlanBasic,
			"paid_left": gorm.Expr("paid_left + ?", generations),
		}).Error
	case PlanPro:
		until := s.now().Add(time.Duration(days) * 24 * time.Hour)
		return s.db.Model(&Account{}).Where("user_id = ?", userID).Updates(map[string]any{
			"plan":      PlanPro,
			"pro_until": until,
		}).Error
	default:
		return fmt.Errorf("grant plan: unsupported plan %q", plan)
	}
}

// LogGeneration appends one audit row. Fire-and-forget for callers:
// quota logic never depends on it.
func (s *Store) LogGeneration(userID int64, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Create(&Generation{UserID: userID, Product: product}).Error
}

// Usage is the read-only counterpart of RecordUse, for balance
// displays.
func (s *Store) Usage(userID int64) (Usage, error) {
	plan, err := s.CurrentPlan(userID)
	if err != nil {
		return Usage{}, err
	}
	acc, _, err := s.account(userID)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Plan: plan, FreeUses: acc.FreeUses, PaidLeft: acc.PaidLeft, ProUntil: acc.ProUntil}, nil
}

func (s *Store) Stats() (Stats, error) {
	var st Stats

	if err := s.db.Model(&Account{}).Count(&st.TotalUsers).Error; err != nil {
		return Stats{}, err
	}
	if err := s.db.Model(&Account{}).Where("plan <> ?", PlanFree).Count(&st.PaidUsers).Error; err != nil {
		return Stats{}, err
	}
	if err := s.db.Model(&Generation{}).Count(&st.TotalGenerations).Error; err != nil {
		return Stats{}, err
	}

	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if err := s.db.Model(&Generation{}).Where("created_at >= ?", midnight).Count(&st.TodayGenerations).Error; err != nil {
		return Stats{}, err
	}

	return st, nil
}

func (s *Store) account(userID int64) (Account, bool, error) {
	var acc Account
	err := s.db.First(&acc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{UserID: userID, Plan: PlanFree}, false, nil
	}
	if err != nil {
		return Account{}, false, err
	}
	return acc, true, nil
}
