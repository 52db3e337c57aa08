package rows

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

func value(v float64) *float64 { return &v }

// DemoRecords is the dataset served when the store starts empty.
var DemoRecords = []Record{
	{ID: 1, Name: "Website Redesign", Company: "Acme Corp", Status: "Lead", Priority: "High", EstimatedValue: value(10000), AccountOwner: "John Doe", FollowUp: true, CloseDate: "2024-07-15", Tags: []string{"web", "design"}},
	{ID: 2, Name: "CRM Migration", Company: "Globex", Status: "Closed", Priority: "Medium", EstimatedValue: value(5000), AccountOwner: "Jane Smith", CloseDate: "2024-03-01", Tags: []string{"crm"}},
	{ID: 3, Name: "Support Renewal", Company: "Globex", Status: "closed", Priority: "Low", EstimatedValue: value(9999), AccountOwner: "Jane Smith", CloseDate: "2024-04-20", Tags: []string{"support", "renewal"}},
	{ID: 4, Name: "Analytics Pilot", Company: "Initech", Status: "Qualified", Priority: "High", EstimatedValue: value(1234), AccountOwner: "Peter Gibbons", FollowUp: true, Tags: []string{"analytics", "pilot"}},
	{ID: 5, Name: "Data Warehouse", Company: "Umbrella", Status: "Lost", Priority: "Low", EstimatedValue: value(23456), AccountOwner: "Alice Wong", CloseDate: "2024-02-11", Tags: []string{"data"}},
	{ID: 6, Name: "Mobile App", Company: "Hooli", Status: "Negotiation", Priority: "Medium", EstimatedValue: value(9999), AccountOwner: "Gavin Belson", FollowUp: true, CloseDate: "2024-09-30", Tags: []string{"mobile", "design"}},
	{ID: 7, Name: "Enterprise License", Company: "Stark Industries", Status: "Proposal", Priority: "Low", EstimatedValue: value(150000), AccountOwner: "Pepper Potts", CloseDate: "2024-12-01", Tags: []string{"enterprise", "vip"}},
	{ID: 8, Name: "Security Audit", Company: "Wayne Enterprises", Status: "Lead", Priority: "High", AccountOwner: "Lucius Fox", FollowUp: true, Tags: []string{}},
	{ID: 9, Name: "Onboarding Package", Company: "Acme Corp", Status: "Proposal", Priority: "Medium", EstimatedValue: value(7500), AccountOwner: "John Doe", CloseDate: "2024-08-05", Tags: []string{"training"}},
	{ID: 10, Name: "Cloud Expansion", Company: "Initech", Status: "Negotiation", Priority: "High", EstimatedValue: value(42000), AccountOwner: "Peter Gibbons", CloseDate: "2024-10-10", Tags: []string{"cloud", "vip"}},
}

// Seed inserts DemoRecords when the store is empty. It is idempotent.
func Seed(ctx context.Context, store Store, logger zerolog.Logger) error {
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("checking records: %w", err)
	}
	if count > 0 {
		logger.Info().Int("count", count).Msg("records already seeded, skipping")
		return nil
	}
	if err := store.Insert(ctx, DemoRecords...); err != nil {
		return fmt.Errorf("seeding records: %w", err)
	}
	logger.Info().Int("count", len(DemoRecords)).Msg("seeded demo records")
	return nil
}
