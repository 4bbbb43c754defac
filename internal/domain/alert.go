package domain

// AlertType classifies why an alert fired.
type AlertType string

const (
	AlertHighScore   AlertType = "high_score"
	AlertRugRisk     AlertType = "rug_risk"
	AlertSocialSpike AlertType = "social_spike"
)

// String returns the string representation of AlertType.
func (t AlertType) String() string {
	return string(t)
}

// IsValid checks if the alert type is a known value.
func (t AlertType) IsValid() bool {
	return t == AlertHighScore || t == AlertRugRisk || t == AlertSocialSpike
}

// Alert is one channel delivery record for a qualifying scored event.
// A logical alert is the group of rows sharing (mint, alert_type, dedup bucket);
// rows start pending and transition to delivered per channel independently.
type Alert struct {
	ID          string    // deterministic hash of (mint, alert_type, bucket, channel)
	Time        int64     // creation Unix timestamp in milliseconds
	Mint        string    // token mint address
	Symbol      string    // token symbol at alert time
	Type        AlertType // alert classification
	Score       float64   // composite score that triggered the alert
	Channel     string    // delivery channel name, e.g. "slack"
	ChannelID   string    // channel-specific target identifier (channel/chat/webhook)
	MessageID   *string   // channel message identifier, nil until delivered
	DeliveredAt *int64    // delivery Unix timestamp in milliseconds, nil until delivered
	ApprovedBy  *string   // manual approver identity, nil unless approved
	Dismissed   bool      // terminal state, set only by an external actor
}

// Delivered reports whether this channel row completed delivery.
// A delivered row always carries both a timestamp and a message identifier.
func (a *Alert) Delivered() bool {
	return a.DeliveredAt != nil && a.MessageID != nil
}

// Pending reports whether the row still awaits delivery.
func (a *Alert) Pending() bool {
	return !a.Delivered() && !a.Dismissed
}
