package gatewayclient

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/discordpkg/gatewayclient/event"
	"github.com/discordpkg/gatewayclient/intent"
	"github.com/discordpkg/gatewayclient/internal/util"
	"github.com/discordpkg/gatewayclient/rest"
	"github.com/discordpkg/gatewayclient/storage"
	"github.com/discordpkg/gatewayclient/transport"
)

// Option for initializing a new client. An option must be deterministic regardless
// of when or how many times it is executed.
type Option func(client *Client) error

func WithBotToken(token string) Option {
	return func(client *Client) error {
		if token == "" {
			return errors.New("bot token can not be empty")
		}
		client.botToken = token
		return nil
	}
}

func WithDirectMessageEvents(events ...event.Type) Option {
	unique := util.NewSet(events...).Len()

	return func(client *Client) error {
		if unique != len(events) {
			return errors.New("duplicated direct message events found")
		}
		if client.intents > 0 {
			return errors.New("'DirectMessageEvents' can not be set when using 'Intents' option")
		}

		client.directMessageEvents = events
		return nil
	}
}

func WithGuildEvents(events ...event.Type) Option {
	unique := util.NewSet(events...).Len()

	return func(client *Client) error {
		if unique != len(events) {
			return errors.New("duplicated guild events found")
		}
		if client.intents > 0 {
			return errors.New("'GuildEvents' can not be set when using 'Intents' option")
		}

		client.guildEvents = events
		return nil
	}
}

func WithIntents(intents intent.Type) Option {
	return func(client *Client) error {
		if len(client.directMessageEvents) > 0 || len(client.guildEvents) > 0 {
			return errors.New("'Intents' can not be used along with 'DirectMessageEvents' and/or 'GuildEvents'")
		}

		client.intents = intents
		return nil
	}
}

// WithEventAllowList only emits the listed dispatch events. READY and RESUMED are
// always emitted. The cache is updated regardless.
func WithEventAllowList(events ...event.Type) Option {
	return func(client *Client) error {
		if len(events) == 0 {
			return errors.New("event allow list can not be empty")
		}
		if client.allowlist == nil {
			client.allowlist = util.NewSet[event.Type]()
		}
		client.allowlist.Add(events...)
		return nil
	}
}

// WithGatewayURL sets the url used for new sessions. Resumes use the url given in the
// READY event.
func WithGatewayURL(URLString string) Option {
	return func(client *Client) error {
		validated, err := transport.ValidateDialURL(URLString)
		if err != nil {
			return err
		}
		client.gatewayURL = validated
		return nil
	}
}

func WithLogger(logger Logger) Option {
	return func(client *Client) error {
		client.logger = logger
		return nil
	}
}

func WithDialer(dialer Dialer) Option {
	return func(client *Client) error {
		client.dialer = dialer
		return nil
	}
}

// WithRESTTransport is required to fetch the members of large guilds.
func WithRESTTransport(restTransport *rest.Transport) Option {
	return func(client *Client) error {
		client.rest = restTransport
		return nil
	}
}

func WithIdentifyConnectionProperties(properties *IdentifyConnectionProperties) Option {
	return func(client *Client) error {
		client.connectionProperties = properties
		return nil
	}
}

func WithPresence(presence interface{}) Option {
	return func(client *Client) error {
		client.presence = presence
		return nil
	}
}

func WithCommandRateLimiter(ratelimiter CommandRateLimiter) Option {
	return func(client *Client) error {
		client.commandRateLimiter = ratelimiter
		return nil
	}
}

func WithIdentifyRateLimiter(ratelimiter IdentifyRateLimiter) Option {
	return func(client *Client) error {
		client.identifyRateLimiter = ratelimiter
		return nil
	}
}

// WithBackOff sets the policy for delays between reconnect attempts.
func WithBackOff(policy func() backoff.BackOff) Option {
	return func(client *Client) error {
		client.newBackOff = policy
		return nil
	}
}

// WithMaxReconnectAttempts limits consecutive failed connection attempts. Zero means no
// limit.
func WithMaxReconnectAttempts(attempts int) Option {
	return func(client *Client) error {
		if attempts < 0 {
			return errors.New("reconnect attempts can not be negative")
		}
		client.maxReconnectAttempts = attempts
		return nil
	}
}

// WithInvalidSessionDelay sets the range of the random delay before resuming or
// identifying after an invalid session.
func WithInvalidSessionDelay(lower, upper time.Duration) Option {
	return func(client *Client) error {
		if lower < 0 || upper < lower {
			return errors.New("invalid session delay range is invalid")
		}
		client.invalidSessionMin = lower
		client.invalidSessionMax = upper
		return nil
	}
}

// WithRegistry sets where the client registers itself as owner of its cache.
func WithRegistry(registry *storage.Registry) Option {
	return func(client *Client) error {
		client.registry = registry
		return nil
	}
}

func WithLargeThreshold(threshold uint8) Option {
	return func(client *Client) error {
		if threshold != 0 && (threshold < 50 || threshold > 250) {
			return errors.New("large threshold must be between 50 and 250")
		}
		client.largeThreshold = threshold
		return nil
	}
}

// WithCompression asks the gateway for zlib compressed frames.
func WithCompression(compress bool) Option {
	return func(client *Client) error {
		client.compress = compress
		return nil
	}
}
