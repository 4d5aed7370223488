package models

import "gorm.io/gorm"

// analysisRowStore abstracts the two statements a generation swap needs.
// Both per-run detail tables (discrepancies, processed files) replace
// their rows wholesale on every run instead of merging.
type analysisRowStore[T any] interface {
	deleteForAnalysis(analysisId int) error
	insertBatch(rows []T) error
}

// replaceAnalysisRows deletes the run's prior generation and inserts
// the new one. stamp sets the owning analysis id on each row before
// insert. A nil or empty generation just clears the old rows.
func replaceAnalysisRows[T any](store analysisRowStore[T], analysisId int, rows []T, stamp func(*T, int)) error {
	if err := store.deleteForAnalysis(analysisId); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	for i := range rows {
		stamp(&rows[i], analysisId)
	}
	return store.insertBatch(rows)
}

type gormRowStore[T any] struct {
	tx *gorm.DB
}

func (s gormRowStore[T]) deleteForAnalysis(analysisId int) error {
	var row T
	return s.tx.Where("analysis_id = ?", analysisId).Delete(&row).Error
}

func (s gormRowStore[T]) insertBatch(rows []T) error {
	return s.tx.CreateInBatches(rows, 500).Error
}
