// workers/facebook_insights_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"ad-marketplace-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FacebookInsightsClient polls the Graph API for post-level impressions on
// the configured pages and mirrors them into aggregated_stats.
type FacebookInsightsClient struct {
	BaseURL    string
	HTTPClient *http.Client
	DB         *gorm.DB
}

func NewFacebookInsightsClient(db *gorm.DB) *FacebookInsightsClient {
	return &FacebookInsightsClient{
		BaseURL: "https://graph.facebook.com/v19.0",
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type postInsights struct {
	Impressions int64
	Clicks      int64
}

// GetPostInsights fetches post_impressions and post_clicks for one post.
func (c *FacebookInsightsClient) GetPostInsights(ctx context.Context, postID, accessToken string) (*postInsights, error) {
	u, err := url.Parse(fmt.Sprintf("%s/%s/insights", c.BaseURL, url.PathEscape(postID)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse insights URL: %w", err)
	}
	q := u.Query()
	q.Set("metric", "post_impressions,post_clicks")
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call graph api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("graph api returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode insights response: %w", err)
	}

	insights := &postInsights{}
	for _, metric := range response.Data {
		if len(metric.Values) == 0 {
			continue
		}
		switch metric.Name {
		case "post_impressions":
			insights.Impressions = metric.Values[0].Value
		case "post_clicks":
			insights.Clicks = metric.Values[0].Value
		}
	}
	return insights, nil
}

// PollInsights mirrors Facebook-side impressions for every approved ad that
// has a Facebook post, on a fixed interval.
func PollInsights(ctx context.Context, client *FacebookInsightsClient, pollInterval time.Duration) {
	log.Println("Starting Facebook insights polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Facebook insights polling stopped.")
			return
		case <-ticker.C:
			var page models.SocialMediaPage
			if err := client.DB.Where("platform = ?", models.PlatformFacebook).First(&page).Error; err != nil {
				continue // no page configured
			}

			var ads []models.Ad
			err := client.DB.Where("status = ? AND facebook_post_id <> ''", models.AdStatusApproved).
				Find(&ads).Error
			if err != nil {
				log.Printf("[Insights] ad listing failed: %v", err)
				continue
			}

			day := time.Now().UTC().Truncate(24 * time.Hour)
			for _, ad := range ads {
				insights, err := client.GetPostInsights(ctx, ad.FacebookPostID, page.AccessToken)
				if err != nil {
					log.Printf("[Insights] fetch failed for ad %s: %v", ad.ID, err)
					continue
				}

				stats := &models.AggregatedStats{
					ID:          uuid.NewString(),
					AdID:        ad.ID,
					Day:         day,
					Source:      models.SourceFacebook,
					Impressions: insights.Impressions,
					Clicks:      insights.Clicks,
				}
				if err := client.DB.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "ad_id"}, {Name: "day"}, {Name: "source"}},
					DoUpdates: clause.AssignmentColumns([]string{"impressions", "clicks", "updated_at"}),
				}).Create(stats).Error; err != nil {
					log.Printf("[Insights] upsert failed for ad %s: %v", ad.ID, err)
				}
			}
		}
	}
}
