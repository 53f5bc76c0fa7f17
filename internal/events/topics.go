package events

// Topic constants for domain events emitted by the marketplace.
const (
	TopicSubscriptionCreated   = "subscription.created"
	TopicSubscriptionActivated = "subscription.activated"
	TopicSubscriptionCancelled = "subscription.cancelled"
	TopicSubscriptionFailed    = "subscription.failed"
	TopicPlansFallback         = "plans.fallback"
	TopicBundleUpdated         = "bundle.updated"
)

// DefaultTopics returns the canonical list of topics.
func DefaultTopics() []string {
	return []string{
		TopicSubscriptionCreated,
		TopicSubscriptionActivated,
		TopicSubscriptionCancelled,
		TopicSubscriptionFailed,
		TopicPlansFallback,
		TopicBundleUpdated,
	}
}

// Known reports whether topic is one of DefaultTopics.
func Known(topic string) bool {
	for _, t := range DefaultTopics() {
		if t == topic {
			return true
		}
	}
	return false
}
