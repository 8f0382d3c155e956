package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/expiry-reminder/internal/domain"
)

const dateLayout = "2006-01-02"

type ReminderDispatcher interface {
	Preview(ctx context.Context, thresholdDays int) (*domain.Preview, error)
	RunBatch(ctx context.Context, thresholdDays int) (*domain.BatchResult, error)
}

type AuditLogReader interface {
	ListByMember(ctx context.Context, memberID string, limit int) ([]domain.AuditEntry, error)
}

type ReminderHandler struct {
	dispatcher       ReminderDispatcher
	auditLog         AuditLogReader
	defaultThreshold int
}

func NewReminderHandler(dispatcher ReminderDispatcher, auditLog AuditLogReader, defaultThreshold int) (*ReminderHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("reminder dispatcher is required")
	}
	if auditLog == nil {
		return nil, fmt.Errorf("audit log reader is required")
	}
	if defaultThreshold < 0 {
		return nil, fmt.Errorf("default threshold must be >= 0")
	}
	return &ReminderHandler{
		dispatcher:       dispatcher,
		auditLog:         auditLog,
		defaultThreshold: defaultThreshold,
	}, nil
}

func RegisterReminderRoutes(router fiber.Router, dispatcher ReminderDispatcher, auditLog AuditLogReader, defaultThreshold int) error {
	h, err := NewReminderHandler(dispatcher, auditLog, defaultThreshold)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1/reminders")
	v1.Get("/expiring", h.PreviewExpiring)
	v1.Post("/dispatch", h.Dispatch)
	v1.Get("/log", h.ListLog)

	return nil
}

type dispatchRequest struct {
	DaysThreshold *int `json:"daysThreshold"`
}

type contactResponse struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type expiringMemberResponse struct {
	MembershipID     string            `json:"membershipId"`
	MemberID         string            `json:"memberId"`
	Name             string            `json:"name"`
	MembershipType   string            `json:"membershipType"`
	EndDate          string            `json:"endDate"`
	DaysLeft         int               `json:"daysLeft"`
	HasChannel       bool              `json:"hasChannel"`
	PreferredChannel string            `json:"preferredChannel,omitempty"`
	Contacts         []contactResponse `json:"contacts"`
}

type PreviewResponse struct {
	Count         int                      `json:"count"`
	ThresholdDays int                      `json:"thresholdDays"`
	GeneratedAt   time.Time                `json:"generatedAt"`
	Members       []expiringMemberResponse `json:"members"`
}

type dispatchResultResponse struct {
	MembershipID string `json:"membershipId"`
	MemberID     string `json:"memberId"`
	MemberName   string `json:"memberName"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	DaysLeft     int    `json:"daysLeft"`
}

type DispatchResponse struct {
	BatchID      string                   `json:"batchId"`
	Success      bool                     `json:"success"`
	TotalMembers int                      `json:"totalMembers"`
	Sent         int                      `json:"sent"`
	Failed       int                      `json:"failed"`
	Results      []dispatchResultResponse `json:"results"`
}

type auditEntryResponse struct {
	ID           string     `json:"id"`
	BatchID      string     `json:"batchId"`
	MembershipID string     `json:"membershipId"`
	MemberID     string     `json:"memberId"`
	Type         string     `json:"type"`
	Channel      string     `json:"channel,omitempty"`
	Destination  string     `json:"destination,omitempty"`
	Message      string     `json:"message"`
	Status       string     `json:"status"`
	Error        *string    `json:"error,omitempty"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type AuditLogResponse struct {
	MemberID string               `json:"memberId"`
	Entries  []auditEntryResponse `json:"entries"`
}

func (h *ReminderHandler) PreviewExpiring(c *fiber.Ctx) error {
	days, err := parseThresholdQuery(c.Query("days"), h.defaultThreshold)
	if err != nil {
		return err
	}

	preview, err := h.dispatcher.Preview(c.UserContext(), days)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(ToPreviewResponse(preview))
}

func (h *ReminderHandler) Dispatch(c *fiber.Ctx) error {
	days, err := parseDispatchBody(c.Body(), h.defaultThreshold)
	if err != nil {
		return err
	}

	result, err := h.dispatcher.RunBatch(c.UserContext(), days)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(ToDispatchResponse(result))
}

func (h *ReminderHandler) ListLog(c *fiber.Ctx) error {
	memberID := strings.TrimSpace(c.Query("memberId"))
	if memberID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "memberId is required")
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	entries, err := h.auditLog.ListByMember(c.UserContext(), memberID, limit)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(ToAuditLogResponse(memberID, entries))
}

func parseThresholdQuery(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("days must be an integer, got %q", raw))
	}
	if days < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "days must be >= 0")
	}
	return days, nil
}

func parseDispatchBody(body []byte, fallback int) (int, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return fallback, nil
	}

	var req dispatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "daysThreshold must be a non-negative integer")
	}
	if req.DaysThreshold == nil {
		return fallback, nil
	}
	if *req.DaysThreshold < 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "daysThreshold must be >= 0")
	}
	return *req.DaysThreshold, nil
}

// ToPreviewResponse renders a preview in its wire shape.
func ToPreviewResponse(p *domain.Preview) PreviewResponse {
	if p == nil {
		return PreviewResponse{Members: []expiringMemberResponse{}}
	}

	members := make([]expiringMemberResponse, 0, len(p.Entries))
	for _, e := range p.Entries {
		c := e.Candidate
		contacts := make([]contactResponse, 0, len(c.ContactAddresses))
		for _, addr := range c.ContactAddresses {
			contacts = append(contacts, contactResponse{Kind: addr.Kind.String(), Value: addr.Value})
		}
		members = append(members, expiringMemberResponse{
			MembershipID:     c.MembershipID,
			MemberID:         c.MemberID,
			Name:             c.MemberDisplayName,
			MembershipType:   c.Category.String(),
			EndDate:          c.ExpiryDate.Format(dateLayout),
			DaysLeft:         c.DaysRemaining,
			HasChannel:       e.HasChannel,
			PreferredChannel: c.PreferredChannelHint,
			Contacts:         contacts,
		})
	}

	return PreviewResponse{
		Count:         len(members),
		ThresholdDays: p.ThresholdDays,
		GeneratedAt:   p.GeneratedAt,
		Members:       members,
	}
}

// ToDispatchResponse renders a batch result in its wire shape.
func ToDispatchResponse(r *domain.BatchResult) DispatchResponse {
	if r == nil {
		return DispatchResponse{Results: []dispatchResultResponse{}}
	}

	results := make([]dispatchResultResponse, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		results = append(results, dispatchResultResponse{
			MembershipID: o.MembershipID,
			MemberID:     o.MemberID,
			MemberName:   o.MemberDisplayName,
			Status:       o.Status.Label(),
			Error:        o.ErrorDetail,
			DaysLeft:     o.DaysRemaining,
		})
	}

	return DispatchResponse{
		BatchID:      r.BatchID,
		Success:      r.OverallSuccess,
		TotalMembers: r.TotalCandidates,
		Sent:         r.SentCount,
		Failed:       r.FailedCount,
		Results:      results,
	}
}

func ToAuditLogResponse(memberID string, entries []domain.AuditEntry) AuditLogResponse {
	resp := AuditLogResponse{
		MemberID: memberID,
		Entries:  make([]auditEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, auditEntryResponse{
			ID:           e.ID,
			BatchID:      e.BatchID,
			MembershipID: e.MembershipID,
			MemberID:     e.MemberID,
			Type:         e.Type,
			Channel:      e.Channel,
			Destination:  e.Destination,
			Message:      e.Message,
			Status:       e.Status.String(),
			Error:        e.Error,
			SentAt:       e.SentAt,
			CreatedAt:    e.CreatedAt,
		})
	}
	return resp
}
