package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	bus "github.com/yungbote/coursecommerce-backend/internal/platform/amqp"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
	cache "github.com/yungbote/coursecommerce-backend/internal/platform/redis"
)

type Clients struct {
	EntitlementCache cache.EntitlementCache
	Redis            *goredis.Client

	Publisher bus.Publisher
	Consumer  bus.Consumer
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	entCache, rdb, err := cache.NewEntitlementCache(log, cfg.Redis)
	if err != nil {
		return Clients{}, fmt.Errorf("init entitlement cache: %w", err)
	}

	// AMQP; without a broker the relay and dispatcher share an in-process queue.
	var (
		pub  bus.Publisher
		cons bus.Consumer
	)
	if cfg.AMQP.URL != "" {
		pub = bus.NewPublisher(log, cfg.AMQP)
		cons = bus.NewConsumer(log, cfg.AMQP)
	} else {
		log.Warn("AMQP_URL not set; notifications use an in-process queue")
		mem := bus.NewMemoryBus(log, 1024)
		pub = mem
		cons = mem
	}

	return Clients{
		EntitlementCache: entCache,
		Redis:            rdb,
		Publisher:        pub,
		Consumer:         cons,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Publisher != nil {
		_ = c.Publisher.Close()
	}
	if c.EntitlementCache != nil {
		_ = c.EntitlementCache.Close()
	}
}
