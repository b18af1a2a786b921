package core

// FeedDescriptor identifies one plaintext IOC source. Name is unique within a
// run and doubles as the cache key seed.
type FeedDescriptor struct {
	Name string `mapstructure:"name" json:"name" yaml:"name" validate:"required,max=200"`
	URL  string `mapstructure:"url" json:"url" yaml:"url" validate:"required,url"`
}

// DefaultFeeds returns the public blocklists aggregated when no feed list is
// configured.
func DefaultFeeds() []FeedDescriptor {
	return []FeedDescriptor{
		{Name: "URLhaus", URL: "https://urlhaus.abuse.ch/downloads/text/"},
		{Name: "Spamhaus DROP", URL: "https://www.spamhaus.org/drop/drop.txt"},
		{Name: "CINS Army", URL: "https://cinsscore.com/list/ci-badguys.txt"},
		{Name: "OpenPhish", URL: "https://openphish.com/feed.txt"},
		{Name: "Abuse.ch SSL Blacklist", URL: "https://sslbl.abuse.ch/blacklist/sslblacklist.csv"},
		{Name: "Abuse.ch URL Shortener", URL: "https://urlhaus.abuse.ch/downloads/text_online/"},
	}
}

// FeedNames returns the names of feeds in configuration order.
func FeedNames(feeds []FeedDescriptor) []string {
	names := make([]string, 0, len(feeds))
	for _, f := range feeds {
		names = append(names, f.Name)
	}
	return names
}
