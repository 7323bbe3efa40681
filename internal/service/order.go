package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/logging"
	"github.com/codmer/pulsedoc/internal/telemetry"
)

const (
	msgMenuUnavailable   = "Sorry, menu information is not available at the moment. Please try again later."
	msgMenuUnreadable    = "Sorry, I couldn't understand the menu. Please try again later."
	msgNoItemsIdentified = "I couldn't identify the items you want to order. Please specify the items clearly."

	msgNoneAvailable = "I'm sorry, none of the items you requested are available. The items you asked for: %s\n\n" +
		"These are not on our menu. Please check our menu and place a new order with available items."
	msgPartiallyAvailable = "I'm sorry, I cannot place your order because the following items are not available: %s\n\n" +
		"Available items from your request: %s\n\n" +
		"Please update your order to include only available items and try again."
	msgOrderPlaced = "Great! All items are available. Order placed for %s. You can pick up in 30 minutes."
)

type MenuRetriever interface {
	RetrieveMenu(ctx context.Context, scope domain.Scope) ([]string, error)
}

type ItemSource interface {
	ExtractMenuItems(ctx context.Context, menuText string) ([]string, error)
	ExtractRequestedItems(ctx context.Context, query string) ([]string, error)
}

type AvailabilityChecker interface {
	CheckAvailability(menuItems, requested []string) domain.MatchResult
}

type OrderRecorder interface {
	RecordOrderOutcome(status string)
}

// OrderService runs the strict order path: an order is placed only when
// every requested item is on the menu.
type OrderService struct {
	menu     MenuRetriever
	items    ItemSource
	matcher  AvailabilityChecker
	recorder OrderRecorder
	logger   *slog.Logger
}

func NewOrderService(menu MenuRetriever, items ItemSource, matcher AvailabilityChecker, recorder OrderRecorder, logger *slog.Logger) *OrderService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &OrderService{menu: menu, items: items, matcher: matcher, recorder: recorder, logger: logger}
}

// PlaceOrder answers an order request. Missing menus or unreadable replies
// become an outcome with a polite message; only collaborator failures are
// returned as errors.
func (s *OrderService) PlaceOrder(ctx context.Context, scope domain.Scope, query string) (*domain.OrderOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.PlaceOrder", telemetry.SpanAttributes{
		TenantID:    scope.TenantID,
		EntityID:    scope.EntityID,
		DisplayName: scope.DisplayName,
	})
	defer span.End()

	outcome, err := s.placeOrder(ctx, scope, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if s.recorder != nil {
		s.recorder.RecordOrderOutcome(string(outcome.Status))
	}
	return outcome, nil
}

func (s *OrderService) placeOrder(ctx context.Context, scope domain.Scope, query string) (*domain.OrderOutcome, error) {
	logger := s.logger.With("scope", scope.Key())

	menuChunks, err := s.menu.RetrieveMenu(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(menuChunks) == 0 {
		logger.WarnContext(ctx, "no menu chunks for scope")
		return &domain.OrderOutcome{Status: domain.OrderStatusMenuUnavailable, Message: msgMenuUnavailable}, nil
	}

	menuItems, err := s.items.ExtractMenuItems(ctx, strings.Join(menuChunks, "\n\n"))
	if err != nil {
		return nil, err
	}
	if len(menuItems) == 0 {
		logger.WarnContext(ctx, "no menu items extracted", "menu_chunks", len(menuChunks))
		return &domain.OrderOutcome{Status: domain.OrderStatusMenuUnreadable, Message: msgMenuUnreadable}, nil
	}

	requested, err := s.items.ExtractRequestedItems(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return &domain.OrderOutcome{
			Status:    domain.OrderStatusNoItemsIdentified,
			MenuItems: menuItems,
			Message:   msgNoItemsIdentified,
		}, nil
	}

	match := s.matcher.CheckAvailability(menuItems, requested)
	outcome := &domain.OrderOutcome{
		Status:    domain.OrderStatus(match.Outcome()),
		Requested: requested,
		Available: match.Available,
		Missing:   match.Missing,
		MenuItems: menuItems,
		Message:   orderMessage(match, requested),
	}

	if outcome.Status.IsConfirmed() {
		logger.InfoContext(ctx, "order placed", "items", requested)
	} else {
		logger.WarnContext(ctx, "order rejected",
			"status", outcome.Status,
			"requested", requested,
			"missing", match.Missing,
			"menu_items", len(menuItems),
		)
	}
	return outcome, nil
}

func orderMessage(match domain.MatchResult, requested []string) string {
	switch match.Outcome() {
	case domain.MatchOutcomeRejected:
		return fmt.Sprintf(msgNoneAvailable, strings.Join(match.Missing, ", "))
	case domain.MatchOutcomePartiallyRejected:
		return fmt.Sprintf(msgPartiallyAvailable, strings.Join(match.Missing, ", "), strings.Join(match.Available, ", "))
	default:
		return fmt.Sprintf(msgOrderPlaced, strings.Join(requested, ", "))
	}
}
