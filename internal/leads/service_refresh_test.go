package leads

import (
	"context"
	"errors"
	"testing"

	"smsbot_backend/internal/closeio"
	"smsbot_backend/platform/logger"

	"github.com/google/uuid"
)

type stubLeadStore struct {
	lead    Lead
	getErr  error
	upserts []Lead
}

func (s *stubLeadStore) GetByCloseID(ctx context.Context, closeID string) (Lead, error) {
	return s.lead, s.getErr
}

func (s *stubLeadStore) Upsert(ctx context.Context, lead Lead) (Lead, error) {
	s.upserts = append(s.upserts, lead)
	merged := s.lead
	if lead.Email != "" {
		merged.Email = lead.Email
	}
	if lead.FirstName != "" {
		merged.FirstName = lead.FirstName
	}
	if lead.LastName != "" {
		merged.LastName = lead.LastName
	}
	return merged, nil
}

func (s *stubLeadStore) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	return nil
}

type stubCRM struct {
	lead  *closeio.Lead
	err   error
	calls int
}

func (c *stubCRM) GetLead(ctx context.Context, leadID string) (*closeio.Lead, error) {
	c.calls++
	return c.lead, c.err
}

func (c *stubCRM) UpdateContactEmail(ctx context.Context, contactID, email string) error {
	return nil
}

func TestGetOrCreateBackfillsMissingEmail(t *testing.T) {
	store := &stubLeadStore{lead: Lead{ID: uuid.New(), CloseID: "lead_1", Phone: "+15025550134"}}
	crm := &stubCRM{lead: &closeio.Lead{
		DisplayName: "Sam Carter",
		Contacts: []closeio.Contact{{
			ID:     "cont_1",
			Emails: []closeio.ContactEmail{{Email: "sam@example.com"}},
		}},
	}}
	svc := NewService(store, crm, logger.New("test"))

	got, err := svc.GetOrCreate(context.Background(), "lead_1", "+15025550134")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.Email != "sam@example.com" {
		t.Fatalf("expected the stored lead refreshed with the CRM email, got %q", got.Email)
	}
	if crm.calls != 1 {
		t.Fatalf("expected one CRM fetch, got %d", crm.calls)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected the refreshed snapshot upserted, got %d upserts", len(store.upserts))
	}
}

func TestGetOrCreateSkipsRefreshWhenEmailKnown(t *testing.T) {
	store := &stubLeadStore{lead: Lead{ID: uuid.New(), CloseID: "lead_1", Email: "sam@example.com"}}
	crm := &stubCRM{}
	svc := NewService(store, crm, logger.New("test"))

	got, err := svc.GetOrCreate(context.Background(), "lead_1", "+15025550134")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got.Email != "sam@example.com" {
		t.Fatalf("unexpected lead returned: %+v", got)
	}
	if crm.calls != 0 {
		t.Fatalf("expected no CRM fetch for a complete lead, got %d", crm.calls)
	}
}

func TestGetOrCreateRefreshSurvivesCRMOutage(t *testing.T) {
	store := &stubLeadStore{lead: Lead{ID: uuid.New(), CloseID: "lead_1", Phone: "+15025550134"}}
	crm := &stubCRM{err: errors.New("close is down")}
	svc := NewService(store, crm, logger.New("test"))

	got, err := svc.GetOrCreate(context.Background(), "lead_1", "+15025550134")
	if err != nil {
		t.Fatalf("expected the stored lead back despite the outage, got error %v", err)
	}
	if got.CloseID != "lead_1" {
		t.Fatalf("unexpected lead returned: %+v", got)
	}
	if crm.calls != 1 {
		t.Fatalf("expected the refresh to be attempted once, got %d", crm.calls)
	}
}
