package warehouse

// StatsTracker tracks min/max of user_id and the time column while a table
// is loaded.
type StatsTracker struct {
	rowCount int64

	minUserID *int64
	maxUserID *int64

	// Times are fixed-width text so lexicographic order is time order.
	minTime *string
	maxTime *string
}

// Update folds one row into the statistics.
func (s *StatsTracker) Update(userID int64, ts string) {
	s.rowCount++

	if s.minUserID == nil || userID < *s.minUserID {
		s.minUserID = &userID
	}
	if s.maxUserID == nil || userID > *s.maxUserID {
		s.maxUserID = &userID
	}
	if s.minTime == nil || ts < *s.minTime {
		s.minTime = &ts
	}
	if s.maxTime == nil || ts > *s.maxTime {
		s.maxTime = &ts
	}
}

// Stats returns the accumulated statistics for timeColumn.
func (s *StatsTracker) Stats(timeColumn string) TableStats {
	return TableStats{
		RowCount:   s.rowCount,
		TimeColumn: timeColumn,
		MinTime:    s.minTime,
		MaxTime:    s.maxTime,
		MinUserID:  s.minUserID,
		MaxUserID:  s.maxUserID,
	}
}
