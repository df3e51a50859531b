package renewal

import (
	"context"
	"fmt"

	"github.com/ignite/lgl-sync/internal/domain"
)

// StrategyManager decides which system owns renewal for each member.
type StrategyManager struct {
	integration SubscriptionIntegration
	members     MemberRepository
}

// NewStrategyManager creates a strategy manager. integration may be nil when
// the store has no subscription system; every member is then plugin-managed.
func NewStrategyManager(integration SubscriptionIntegration, members MemberRepository) *StrategyManager {
	return &StrategyManager{integration: integration, members: members}
}

// Classify returns host_subscription iff the integration is active and the
// member has at least one subscription record right now.
func (m *StrategyManager) Classify(ctx context.Context, member domain.Member) (domain.ManagedBy, error) {
	if m.integration == nil || !m.integration.IsActive() {
		return domain.ManagedByPlugin, nil
	}
	has, err := m.integration.HasActiveSubscription(ctx, member.ID)
	if err != nil {
		return "", fmt.Errorf("subscription lookup for member %s: %w", member.ID, err)
	}
	if has {
		return domain.ManagedByHost, nil
	}
	return domain.ManagedByPlugin, nil
}

// Aggregate classifies every member and counts the results.
func (m *StrategyManager) Aggregate(ctx context.Context, members []domain.Member) (domain.RenewalStatistics, error) {
	stats := domain.RenewalStatistics{Total: len(members)}
	for _, member := range members {
		managedBy, err := m.Classify(ctx, member)
		if err != nil {
			return domain.RenewalStatistics{}, err
		}
		if managedBy == domain.ManagedByHost {
			stats.HostManaged++
		} else {
			stats.PluginManaged++
		}
	}
	return stats, nil
}

// Statistics loads the current member list and aggregates it.
func (m *StrategyManager) Statistics(ctx context.Context) (domain.RenewalStatistics, error) {
	members, err := m.members.ListMembers(ctx)
	if err != nil {
		return domain.RenewalStatistics{}, fmt.Errorf("list members: %w", err)
	}
	return m.Aggregate(ctx, members)
}
