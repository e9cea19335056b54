// services/analytics_service.go
package services

import (
	"errors"
	"time"

	"ad-marketplace-system/models"
	"ad-marketplace-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AnalyticsService struct {
	DB *gorm.DB
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{DB: db}
}

const analyticsWindowDays = 30

type dailyCount struct {
	Day   time.Time `json:"day"`
	Count int64     `json:"count"`
}

type sourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

// clickThroughRate returns clicks/impressions*100, and 0 (not NaN) when there
// are no impressions.
func clickThroughRate(clicks, impressions int64) float64 {
	if impressions == 0 {
		return 0
	}
	return float64(clicks) / float64(impressions) * 100
}

// growthPercent compares the recent period against the prior one. A zero
// prior-period denominator yields 0 rather than infinity.
func growthPercent(recent, prior int64) float64 {
	if prior == 0 {
		return 0
	}
	return float64(recent-prior) / float64(prior) * 100
}

// GetAdAnalytics returns the full 30-day analytics payload for one ad:
// totals, daily breakdown, growth, per-source counts and financials.
// Read-only; accessible to the ad owner and admins.
func (s *AnalyticsService) GetAdAnalytics(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	role, _ := c.Locals("user_role").(string)

	var ad models.Ad
	if err := s.DB.First(&ad, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.FailCode(c, utils.CodeAdNotFound, "ad not found")
		}
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ad", err))
	}
	if ad.UserID != userID && role != models.RoleAdmin {
		return utils.FailCode(c, utils.CodeForbidden, "not the owner of this ad")
	}

	now := time.Now().UTC()
	windowStart := now.AddDate(0, 0, -analyticsWindowDays)
	midpoint := now.AddDate(0, 0, -analyticsWindowDays/2)

	totalImpressions, err := s.countEvents(&models.ImpressionEvent{}, ad.ID, windowStart, now)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to count impressions", err))
	}
	totalClicks, err := s.countEvents(&models.ClickEvent{}, ad.ID, windowStart, now)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to count clicks", err))
	}

	// Growth: most recent 15 days vs the 15 days before that.
	recentImpressions, err := s.countEvents(&models.ImpressionEvent{}, ad.ID, midpoint, now)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to count impressions", err))
	}
	recentClicks, err := s.countEvents(&models.ClickEvent{}, ad.ID, midpoint, now)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to count clicks", err))
	}
	priorImpressions := totalImpressions - recentImpressions
	priorClicks := totalClicks - recentClicks

	dailyImpressions, err := s.dailyBreakdown(&models.ImpressionEvent{}, ad.ID, windowStart)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to build daily breakdown", err))
	}
	dailyClicks, err := s.dailyBreakdown(&models.ClickEvent{}, ad.ID, windowStart)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to build daily breakdown", err))
	}

	impressionsBySource, err := s.sourceBreakdown(&models.ImpressionEvent{}, ad.ID, windowStart)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to build source breakdown", err))
	}
	clicksBySource, err := s.sourceBreakdown(&models.ClickEvent{}, ad.ID, windowStart)
	if err != nil {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to build source breakdown", err))
	}

	// Financials derive spend from the event log, not the ledger field; the
	// two can diverge if impressions are logged without a matching debit.
	financials := fiber.Map{
		"currency":            refundCurrency,
		"cost_per_impression": 0,
		"spent":               0,
		"remaining":           ad.ImpressionsCredit,
	}
	if ratio, err := LatestRatio(s.DB, refundCurrency, ad.HasPromoted); err == nil {
		costPerImpression, spent, remaining := financialSummary(
			ad.ImpressionsCredit, totalImpressions, ratio.ImpressionsPerUnit)
		financials = fiber.Map{
			"currency":             refundCurrency,
			"impressions_per_unit": ratio.ImpressionsPerUnit,
			"cost_per_impression":  costPerImpression,
			"spent":                spent,
			"remaining":            remaining,
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.Fail(c, utils.WrapError(utils.CodeDatabaseError, "failed to fetch ratio", err))
	}

	return utils.OK(c, "analytics fetched", fiber.Map{
		"ad_id":  ad.ID,
		"window": fiber.Map{"from": windowStart, "to": now},
		"totals": fiber.Map{
			"impressions":        totalImpressions,
			"clicks":             totalClicks,
			"click_through_rate": clickThroughRate(totalClicks, totalImpressions),
		},
		"growth": fiber.Map{
			"impressions": growthPercent(recentImpressions, priorImpressions),
			"clicks":      growthPercent(recentClicks, priorClicks),
		},
		"daily": fiber.Map{
			"impressions": dailyImpressions,
			"clicks":      dailyClicks,
		},
		"sources": fiber.Map{
			"impressions": impressionsBySource,
			"clicks":      clicksBySource,
		},
		"financials": financials,
	})
}

func (s *AnalyticsService) countEvents(model interface{}, adID string, from, to time.Time) (int64, error) {
	var count int64
	err := s.DB.Model(model).
		Where("ad_id = ? AND occurred_at >= ? AND occurred_at < ?", adID, from, to).
		Count(&count).Error
	return count, err
}

// dailyBreakdown groups events by calendar day and zero-fills the full
// 30-day window so charts get a continuous series.
func (s *AnalyticsService) dailyBreakdown(model interface{}, adID string, from time.Time) ([]dailyCount, error) {
	var rows []dailyCount
	err := s.DB.Model(model).
		Select("date_trunc('day', occurred_at) AS day, COUNT(*) AS count").
		Where("ad_id = ? AND occurred_at >= ?", adID, from).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]int64, len(rows))
	for _, row := range rows {
		byDay[row.Day.Format("2006-01-02")] = row.Count
	}

	filled := make([]dailyCount, 0, analyticsWindowDays)
	cursor := from.Truncate(24 * time.Hour)
	for i := 0; i < analyticsWindowDays; i++ {
		day := cursor.AddDate(0, 0, i)
		filled = append(filled, dailyCount{Day: day, Count: byDay[day.Format("2006-01-02")]})
	}
	return filled, nil
}

// sourceBreakdown counts per channel and zero-fills the fixed channel list.
func (s *AnalyticsService) sourceBreakdown(model interface{}, adID string, from time.Time) ([]sourceCount, error) {
	var rows []sourceCount
	err := s.DB.Model(model).
		Select("source, COUNT(*) AS count").
		Where("ad_id = ? AND occurred_at >= ?", adID, from).
		Group("source").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	bySource := make(map[string]int64, len(rows))
	for _, row := range rows {
		bySource[row.Source] = row.Count
	}

	filled := make([]sourceCount, 0, len(models.SourceChannels))
	for _, channel := range models.SourceChannels {
		filled = append(filled, sourceCount{Source: channel, Count: bySource[channel]})
	}
	return filled, nil
}
