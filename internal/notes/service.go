package notes

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("database handle is not configured")
	noOpLogger         = zap.NewNop()
)

const (
	opCreate                 = "notes.create"
	opList                   = "notes.list"
	opGet                    = "notes.get"
	opIncrementLikes         = "notes.increment_likes"
	opDelete                 = "notes.delete"
	opAddReport              = "notes.add_report"
	opListReports            = "notes.list_reports"
	opIncrementRejectedCount = "notes.increment_rejected_count"
	opReadStats              = "notes.read_stats"

	fieldNoteID = "note_id"

	reasonMissingDatabase = "missing_database"
	reasonNotFound        = "not_found"
	reasonInsertFailed    = "insert_failed"
	reasonQueryFailed     = "query_failed"
	reasonUpdateFailed    = "update_failed"
	reasonDeleteFailed    = "delete_failed"

	queryNoteID     = "id = ?"
	queryReportNote = "note_id = ?"
	orderNewest     = "created_at DESC, id DESC"
	orderReported   = "reported_at DESC, note_id DESC"
)

type ServiceConfig struct {
	// Database may be nil: the service then answers every operation with
	// ErrStorageUnavailable instead of failing at startup.
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Service owns the notes, reported_notes and moderation_stats tables.
// Every operation is a single statement or a single transaction.
type Service struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:     cfg.Database,
		clock:  clock,
		logger: logger,
	}
}

// Configured reports whether a backing store is attached.
func (s *Service) Configured() bool {
	return s != nil && s.db != nil
}

// Create persists a new note with zero likes and returns the stored row.
func (s *Service) Create(ctx context.Context, draft NoteDraft) (Note, error) {
	if err := s.requireDatabase(opCreate); err != nil {
		return Note{}, err
	}

	note := Note{
		Title:     draft.Title(),
		Subject:   draft.Subject(),
		Content:   draft.Content(),
		Tags:      draft.Tags(),
		Likes:     0,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreate, reasonInsertFailed, err)
		return Note{}, newServiceError(opCreate, reasonInsertFailed, ErrStorageFailure, err)
	}

	return note, nil
}

// List returns every note, newest first.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	if err := s.requireDatabase(opList); err != nil {
		return nil, err
	}

	var stored []Note
	if err := s.db.WithContext(ctx).Order(orderNewest).Find(&stored).Error; err != nil {
		s.logError(opList, reasonQueryFailed, err)
		return nil, newServiceError(opList, reasonQueryFailed, ErrStorageFailure, err)
	}
	for index := range stored {
		normalizeNote(&stored[index])
	}
	return stored, nil
}

// Get returns a single note.
func (s *Service) Get(ctx context.Context, id NoteID) (Note, error) {
	if err := s.requireDatabase(opGet); err != nil {
		return Note{}, err
	}
	return s.loadNote(s.db.WithContext(ctx), opGet, id)
}

// IncrementLikes adds one like in the store (not read-modify-write in Go) and
// returns the updated row.
func (s *Service) IncrementLikes(ctx context.Context, id NoteID) (Note, error) {
	if err := s.requireDatabase(opIncrementLikes); err != nil {
		return Note{}, err
	}

	db := s.db.WithContext(ctx)
	result := db.Model(&Note{}).
		Where(queryNoteID, id.Int64()).
		UpdateColumn("likes", gorm.Expr("likes + ?", 1))
	if result.Error != nil {
		s.logError(opIncrementLikes, reasonUpdateFailed, result.Error, zap.Int64(fieldNoteID, id.Int64()))
		return Note{}, newServiceError(opIncrementLikes, reasonUpdateFailed, ErrStorageFailure, result.Error)
	}
	if result.RowsAffected == 0 {
		return Note{}, newServiceError(opIncrementLikes, reasonNotFound, ErrNotFound, nil)
	}

	return s.loadNote(db, opIncrementLikes, id)
}

// Delete removes the note together with its report log entry. It returns false
// when the note did not exist.
func (s *Service) Delete(ctx context.Context, id NoteID) (bool, error) {
	if err := s.requireDatabase(opDelete); err != nil {
		return false, err
	}

	var deleted bool
	transactionError := s.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.Where(queryReportNote, id.Int64()).Delete(&ReportedNote{}).Error; err != nil {
			return err
		}
		result := transaction.Where(queryNoteID, id.Int64()).Delete(&Note{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if transactionError != nil {
		s.logError(opDelete, reasonDeleteFailed, transactionError, zap.Int64(fieldNoteID, id.Int64()))
		return false, newServiceError(opDelete, reasonDeleteFailed, ErrStorageFailure, transactionError)
	}
	return deleted, nil
}

// AddReport records a snapshot of the note in the report log. The first report
// wins: later reports of the same note return (false, nil) and write nothing.
func (s *Service) AddReport(ctx context.Context, id NoteID) (bool, error) {
	if err := s.requireDatabase(opAddReport); err != nil {
		return false, err
	}

	db := s.db.WithContext(ctx)
	note, err := s.loadNote(db, opAddReport, id)
	if err != nil {
		return false, err
	}

	entry := ReportedNote{
		NoteID:     note.ID,
		Title:      note.Title,
		Subject:    note.Subject,
		Content:    note.Content,
		ReportedAt: s.clock().UTC(),
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if result.Error != nil {
		s.logError(opAddReport, reasonInsertFailed, result.Error, zap.Int64(fieldNoteID, id.Int64()))
		return false, newServiceError(opAddReport, reasonInsertFailed, ErrStorageFailure, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListReports returns the report log, most recent first.
func (s *Service) ListReports(ctx context.Context) ([]ReportedNote, error) {
	if err := s.requireDatabase(opListReports); err != nil {
		return nil, err
	}

	var entries []ReportedNote
	if err := s.db.WithContext(ctx).Order(orderReported).Find(&entries).Error; err != nil {
		s.logError(opListReports, reasonQueryFailed, err)
		return nil, newServiceError(opListReports, reasonQueryFailed, ErrStorageFailure, err)
	}
	return entries, nil
}

// IncrementRejectedCount bumps the moderation counter with a single upsert.
func (s *Service) IncrementRejectedCount(ctx context.Context) error {
	if err := s.requireDatabase(opIncrementRejectedCount); err != nil {
		return err
	}

	row := ModerationStats{ID: ModerationStatsRowID, RejectedCount: 1}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"rejected_count": gorm.Expr("moderation_stats.rejected_count + ?", 1),
		}),
	}).Create(&row).Error
	if err != nil {
		s.logError(opIncrementRejectedCount, reasonUpdateFailed, err)
		return newServiceError(opIncrementRejectedCount, reasonUpdateFailed, ErrStorageFailure, err)
	}
	return nil
}

// ReadStats reports visible notes, distinct reported notes and the moderation counter.
func (s *Service) ReadStats(ctx context.Context) (Stats, error) {
	if err := s.requireDatabase(opReadStats); err != nil {
		return Stats{}, err
	}

	db := s.db.WithContext(ctx)
	var stats Stats
	if err := db.Model(&Note{}).Count(&stats.VisibleNotes).Error; err != nil {
		s.logError(opReadStats, reasonQueryFailed, err)
		return Stats{}, newServiceError(opReadStats, reasonQueryFailed, ErrStorageFailure, err)
	}
	if err := db.Model(&ReportedNote{}).Distinct(fieldNoteID).Count(&stats.AdminRemoved).Error; err != nil {
		s.logError(opReadStats, reasonQueryFailed, err)
		return Stats{}, newServiceError(opReadStats, reasonQueryFailed, ErrStorageFailure, err)
	}

	var counter ModerationStats
	err := db.Where(queryNoteID, ModerationStatsRowID).Take(&counter).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opReadStats, reasonQueryFailed, err)
		return Stats{}, newServiceError(opReadStats, reasonQueryFailed, ErrStorageFailure, err)
	}
	stats.AutoModerated = counter.RejectedCount

	return stats, nil
}

func (s *Service) loadNote(db *gorm.DB, operation string, id NoteID) (Note, error) {
	var note Note
	err := db.Where(queryNoteID, id.Int64()).Take(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, newServiceError(operation, reasonNotFound, ErrNotFound, nil)
	}
	if err != nil {
		s.logError(operation, reasonQueryFailed, err, zap.Int64(fieldNoteID, id.Int64()))
		return Note{}, newServiceError(operation, reasonQueryFailed, ErrStorageFailure, err)
	}
	normalizeNote(&note)
	return note, nil
}

func (s *Service) requireDatabase(operation string) error {
	if s == nil || s.db == nil {
		return newServiceError(operation, reasonMissingDatabase, ErrStorageUnavailable, errMissingDatabase)
	}
	return nil
}

func normalizeNote(note *Note) {
	if note.Tags == nil {
		note.Tags = []string{}
	}
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("notes service error", attrs...)
}
