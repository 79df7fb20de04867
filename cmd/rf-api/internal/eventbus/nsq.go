package eventbus

import (
	"fmt"
	"time"

	"github.com/metal-stack/metal-lib/bus"
	"go.uber.org/zap"

	"github.com/soundstack/rf-api/cmd/rf-api/internal/inventory"
)

// nsqdRetryDelay represents the delay that is used for retries in blocking calls.
const nsqdRetryDelay = 3 * time.Second

type PublisherProvider func(*zap.Logger, *bus.PublisherConfig) (bus.Publisher, error)

// NSQClient is a type to request NSQ related tasks such as creation of topics.
type NSQClient struct {
	logger            *zap.Logger
	config            *bus.PublisherConfig
	publisherProvider PublisherProvider
	Publisher         bus.Publisher
}

// NewNSQ create a new NSQClient.
func NewNSQ(publisherConfig *bus.PublisherConfig, logger *zap.Logger, publisherProvider PublisherProvider) NSQClient {
	return NSQClient{
		config:            publisherConfig,
		logger:            logger,
		publisherProvider: publisherProvider,
	}
}

// WaitForPublisher blocks until the given provider is able to provide a non
// nil publisher.
func (n *NSQClient) WaitForPublisher() {
	for {
		publisher, err := n.publisherProvider(n.logger, n.config)
		if err != nil {
			n.logger.Sugar().Errorw("cannot create nsq publisher", "error", err)
			n.delay()
			continue
		}
		n.logger.Sugar().Infow("nsq connected", "nsqd", fmt.Sprintf("%+v", n.config))
		n.Publisher = publisher
		break
	}
}

// WaitForTopicsCreated blocks until all announced topics are created.
func (n NSQClient) WaitForTopicsCreated(topics []inventory.NSQTopic) {
	for {
		if err := n.createTopics(topics); err != nil {
			n.logger.Sugar().Errorw("cannot create topics", "error", err)
			n.delay()
			continue
		}
		break
	}
}

// CreateTopic creates the given topic.
func (n NSQClient) CreateTopic(topic string) error {
	if err := n.Publisher.CreateTopic(topic); err != nil {
		n.logger.Sugar().Errorw("cannot create topic", "topic", topic)
		return err
	}
	return nil
}

func (n NSQClient) createTopics(topics []inventory.NSQTopic) error {
	for _, topic := range topics {
		if err := n.CreateTopic(string(topic)); err != nil {
			return err
		}
	}
	return nil
}

func (n NSQClient) delay() {
	time.Sleep(nsqdRetryDelay)
}
