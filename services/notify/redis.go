package notifysvc

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/clock"
	"github.com/trezcool/ratiba/core/timetable"
)

const (
	channelPrefix = "ratiba:timetable:"
	catalogSuffix = "catalog"
)

// Channel names the pub/sub channel of a class day: ratiba:timetable:<classID>:<YYYY-MM-DD>.
// Catalog changes (zero date) go to ratiba:timetable:<classID>:catalog.
func Channel(classID string, date time.Time) string {
	suffix := catalogSuffix
	if !date.IsZero() {
		suffix = clock.DateKey(date)
	}
	return channelPrefix + classID + ":" + suffix
}

// NewRedisClient connects to the configured redis server.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// RedisPublisher broadcasts changes to every instance sharing the redis server.
type RedisPublisher struct {
	client *redis.Client
}

var _ timetable.Notifier = (*RedisPublisher)(nil)

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt timetable.ChangeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding change event")
	}
	if err := p.client.Publish(ctx, Channel(evt.ClassID, evt.Date), payload).Err(); err != nil {
		return errors.Wrap(err, "publishing change event")
	}
	return nil
}

// RedisRelay forwards the changes published by any instance to the local Broker.
type RedisRelay struct {
	client *redis.Client
	broker *Broker
	logger core.Logger
}

func NewRedisRelay(client *redis.Client, broker *Broker, logger core.Logger) *RedisRelay {
	return &RedisRelay{client: client, broker: broker, logger: logger}
}

// Run relays messages until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer func() { _ = sub.Close() }()

	// wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribing to timetable changes")
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.relay(ctx, msg)
		}
	}
}

func (r *RedisRelay) relay(ctx context.Context, msg *redis.Message) {
	evt, err := decodeEvent(msg.Channel, []byte(msg.Payload))
	if err != nil {
		r.logger.Warn("notify: dropping malformed change event", err, map[string]interface{}{"channel": msg.Channel})
		return
	}
	_ = r.broker.Publish(ctx, evt)
}

func decodeEvent(channel string, payload []byte) (timetable.ChangeEvent, error) {
	var evt timetable.ChangeEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return evt, errors.Wrap(err, "decoding change event")
	}
	if !strings.HasPrefix(channel, channelPrefix+evt.ClassID+":") {
		return evt, errors.Errorf("event of class %q on channel %q", evt.ClassID, channel)
	}
	return evt, nil
}
