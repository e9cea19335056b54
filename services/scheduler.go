// services/scheduler.go
package services

import (
	"log"
	"time"

	"ad-marketplace-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StartStatsRollup runs a daily job that folds yesterday's raw events into
// aggregated_stats rows, one per (ad, day, source).
func (s *AnalyticsService) StartStatsRollup() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 15, 0))),
		gocron.NewTask(func() {
			day := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
			if err := s.RollupDay(day); err != nil {
				log.Printf("[Rollup] failed for %s: %v", day.Format("2006-01-02"), err)
				return
			}
			log.Printf("[Rollup] completed for %s", day.Format("2006-01-02"))
		}),
	)
}

type rollupRow struct {
	AdID   string
	Source string
	Count  int64
}

// RollupDay aggregates one day's impressions and clicks. Re-running for the
// same day overwrites the previous rollup, so it is safe to retry.
func (s *AnalyticsService) RollupDay(day time.Time) error {
	from := day
	to := day.AddDate(0, 0, 1)

	var impressions []rollupRow
	err := s.DB.Model(&models.ImpressionEvent{}).
		Select("ad_id, source, COUNT(*) AS count").
		Where("occurred_at >= ? AND occurred_at < ?", from, to).
		Group("ad_id, source").
		Scan(&impressions).Error
	if err != nil {
		return err
	}

	var clicks []rollupRow
	err = s.DB.Model(&models.ClickEvent{}).
		Select("ad_id, source, COUNT(*) AS count").
		Where("occurred_at >= ? AND occurred_at < ?", from, to).
		Group("ad_id, source").
		Scan(&clicks).Error
	if err != nil {
		return err
	}

	type key struct{ adID, source string }
	merged := make(map[key]*models.AggregatedStats)
	for _, row := range impressions {
		merged[key{row.AdID, row.Source}] = &models.AggregatedStats{
			ID:          uuid.NewString(),
			AdID:        row.AdID,
			Day:         day,
			Source:      row.Source,
			Impressions: row.Count,
		}
	}
	for _, row := range clicks {
		k := key{row.AdID, row.Source}
		if stats, ok := merged[k]; ok {
			stats.Clicks = row.Count
			continue
		}
		merged[k] = &models.AggregatedStats{
			ID:     uuid.NewString(),
			AdID:   row.AdID,
			Day:    day,
			Source: row.Source,
			Clicks: row.Count,
		}
	}
	if len(merged) == 0 {
		return nil
	}

	rows := make([]*models.AggregatedStats, 0, len(merged))
	for _, stats := range merged {
		rows = append(rows, stats)
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ad_id"}, {Name: "day"}, {Name: "source"}},
			DoUpdates: clause.AssignmentColumns([]string{"impressions", "clicks", "updated_at"}),
		}).Create(&rows).Error
	})
}
