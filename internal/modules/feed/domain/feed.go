package domain

// FeedConfig describes the RSS channel built from the news list
type FeedConfig struct {
	ChannelID string `json:"channel_id"`
	Title     string `json:"title"`
	Link      string `json:"link"`
}
