package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"smsbot_backend/internal/closeio"
	"smsbot_backend/platform/logger"
	"smsbot_backend/platform/phone"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Age buckets drive which dialogue script the bot uses.
type Age string

const (
	AgeFresh Age = "fresh"
	AgeAged  Age = "aged"
)

// freshWindow is how long a lead counts as fresh after CRM creation.
const freshWindow = 14 * 24 * time.Hour

// CRMClient is the subset of the Close client the lead service needs.
type CRMClient interface {
	GetLead(ctx context.Context, leadID string) (*closeio.Lead, error)
	UpdateContactEmail(ctx context.Context, contactID, email string) error
}

// Store is the persistence surface the lead service needs.
type Store interface {
	GetByCloseID(ctx context.Context, closeID string) (Lead, error)
	Upsert(ctx context.Context, lead Lead) (Lead, error)
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error
}

// Service resolves webhook lead references into local lead rows, fetching
// from the CRM on first contact.
type Service struct {
	repo  Store
	crm   CRMClient
	log   *logger.Logger
	fetch singleflight.Group
}

// NewService creates a new lead service.
func NewService(repo Store, crm CRMClient, log *logger.Logger) *Service {
	return &Service{repo: repo, crm: crm, log: log}
}

// GetOrCreate returns the local lead for a CRM lead ID, creating it from
// a CRM fetch when unseen. A stored lead still missing its email is
// re-fetched, since the CRM may have learned it after first contact.
// Concurrent calls for the same lead share one CRM request.
func (s *Service) GetOrCreate(ctx context.Context, closeID, fallbackPhone string) (Lead, error) {
	lead, err := s.repo.GetByCloseID(ctx, closeID)
	if err == nil {
		if lead.Email == "" && s.crm != nil {
			return s.refreshFromCRM(ctx, lead)
		}
		return lead, nil
	}
	if !errors.Is(err, ErrLeadNotFound) {
		return Lead{}, err
	}

	result, err, _ := s.fetch.Do(closeID, func() (interface{}, error) {
		return s.createFromCRM(ctx, closeID, fallbackPhone)
	})
	if err != nil {
		return Lead{}, err
	}
	return result.(Lead), nil
}

// refreshFromCRM re-runs the CRM merge for a known lead. A failed refresh
// falls back to the stored row.
func (s *Service) refreshFromCRM(ctx context.Context, lead Lead) (Lead, error) {
	result, err, _ := s.fetch.Do(lead.CloseID, func() (interface{}, error) {
		return s.createFromCRM(ctx, lead.CloseID, lead.Phone)
	})
	if err != nil {
		s.log.Warn("crm lead refresh failed, using stored lead",
			"lead_id", lead.CloseID, "error", err.Error())
		return lead, nil
	}
	return result.(Lead), nil
}

func (s *Service) createFromCRM(ctx context.Context, closeID, fallbackPhone string) (Lead, error) {
	snapshot := Lead{
		CloseID: closeID,
		Phone:   phone.NormalizeE164(fallbackPhone),
	}

	if s.crm == nil {
		return s.repo.Upsert(ctx, snapshot)
	}

	crmLead, err := s.crm.GetLead(ctx, closeID)
	if err != nil {
		// The CRM being down must not drop the inbound message; store
		// what the webhook gave us and refresh on a later contact.
		s.log.Warn("crm lead fetch failed, storing partial lead",
			"lead_id", closeID, "error", err.Error())
	} else {
		first, last := splitName(crmLead.DisplayName)
		snapshot.FirstName = first
		snapshot.LastName = last
		snapshot.Email = crmLead.PrimaryEmail()
		snapshot.State = crmLead.State()
		if p := crmLead.PrimaryPhone(); p != "" {
			snapshot.Phone = p
		}
		if !crmLead.DateCreated.IsZero() {
			created := crmLead.DateCreated
			snapshot.CRMCreatedAt = &created
		}
	}

	return s.repo.Upsert(ctx, snapshot)
}

// BackfillEmail stores an email collected during the conversation and
// pushes it to the CRM contact.
func (s *Service) BackfillEmail(ctx context.Context, lead Lead, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return fmt.Errorf("empty email")
	}

	if err := s.repo.UpdateEmail(ctx, lead.ID, email); err != nil {
		return err
	}

	if s.crm == nil {
		return nil
	}

	crmLead, err := s.crm.GetLead(ctx, lead.CloseID)
	if err != nil {
		s.log.Warn("crm fetch for email backfill failed", "lead_id", lead.CloseID, "error", err.Error())
		return nil
	}
	contactID := crmLead.PrimaryContactID()
	if contactID == "" {
		return nil
	}
	if err := s.crm.UpdateContactEmail(ctx, contactID, email); err != nil {
		s.log.Warn("crm email update failed", "lead_id", lead.CloseID, "error", err.Error())
	}
	return nil
}

// AgeOf classifies the lead by time since CRM creation. Leads with an
// unknown creation date count as aged.
func AgeOf(lead Lead, now time.Time) Age {
	if lead.CRMCreatedAt == nil {
		return AgeAged
	}
	if now.Sub(*lead.CRMCreatedAt) <= freshWindow {
		return AgeFresh
	}
	return AgeAged
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(full))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
