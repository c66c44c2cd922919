package learning

import (
	"context"
	"fmt"
	"sort"
	"time"

	"smsbot_backend/internal/closeio"
)

const (
	soldLeadLimit    = 500
	smsHistoryLimit  = 100
	soldLeadLookback = 6 * 30 * 24 * time.Hour
)

// CRM is the slice of the Close client the ingest job uses.
type CRM interface {
	SearchLeads(ctx context.Context, query string, limit int) ([]closeio.Lead, error)
	SMSActivities(ctx context.Context, leadID string, limit int) ([]closeio.SMSActivity, error)
}

// IngestFromCRM mines the SMS history of recently sold leads for response
// patterns that worked, and records them. Returns the number of exchanges
// recorded. Per-lead failures are skipped so one bad lead never aborts the
// whole run.
func (s *Service) IngestFromCRM(ctx context.Context, crm CRM, now time.Time) (int, error) {
	since := now.Add(-soldLeadLookback).Format("2006-01-02")
	query := fmt.Sprintf(`status_label:"sold" date_created:>%s`, since)

	soldLeads, err := crm.SearchLeads(ctx, query, soldLeadLimit)
	if err != nil {
		return 0, fmt.Errorf("search sold leads: %w", err)
	}

	recorded := 0
	for _, lead := range soldLeads {
		history, err := crm.SMSActivities(ctx, lead.ID, smsHistoryLimit)
		if err != nil {
			s.log.Warn("skipping lead, sms history fetch failed",
				"close_lead_id", lead.ID, "error", err.Error())
			continue
		}
		if len(history) < 2 {
			continue
		}

		sort.Slice(history, func(i, j int) bool {
			return history[i].DateCreated.Before(history[j].DateCreated)
		})

		age := "aged"
		if now.Sub(lead.DateCreated) <= 14*24*time.Hour {
			age = "fresh"
		}

		exchanges := exchangesFromActivities(history)
		if len(exchanges) == 0 {
			continue
		}

		if err := s.Ingest(ctx, age, exchanges); err != nil {
			s.log.Warn("skipping lead, pattern record failed",
				"close_lead_id", lead.ID, "error", err.Error())
			continue
		}
		recorded += len(exchanges)
	}

	s.log.Info("crm pattern ingest finished",
		"sold_leads", len(soldLeads), "exchanges", recorded)
	return recorded, nil
}

// exchangesFromActivities pairs each outbound SMS with the inbound reply
// that followed it, in chronological order.
func exchangesFromActivities(history []closeio.SMSActivity) []Exchange {
	var exchanges []Exchange
	total := len(history)
	for i := 0; i < total-1; i++ {
		if history[i].Direction != "outbound" || history[i+1].Direction != "inbound" {
			continue
		}

		trigger := ""
		if i > 0 && history[i-1].Direction == "inbound" {
			trigger = history[i-1].Text
		}

		exchanges = append(exchanges, Exchange{
			Trigger:  trigger,
			Response: history[i].Text,
			Reaction: history[i+1].Text,
			Index:    i,
			Total:    total,
		})
	}
	return exchanges
}
