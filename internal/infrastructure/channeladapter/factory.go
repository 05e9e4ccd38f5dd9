package channeladapter

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xiebiao/omnichannel/internal/domain/integration"
	"github.com/xiebiao/omnichannel/internal/infrastructure/config"
	"github.com/xiebiao/omnichannel/pkg/metrics"
	"github.com/xiebiao/omnichannel/pkg/mq"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New 按integration.adapter创建适配器，返回的Closer在进程退出时关闭连接
func New(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) (integration.Adapter, io.Closer, error) {
	switch cfg.Integration.Adapter {
	case "", "simulated":
		log.Info("channel adapter: simulated", zap.Strings("fail_operations", cfg.Integration.FailOperations))
		return NewSimulated(cfg.Integration.FailOperations...), nopCloser{}, nil
	case "rabbitmq":
		pub, err := mq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, "topic", log)
		if err != nil {
			return nil, nil, err
		}
		return NewRabbitMQ(pub, m), pub, nil
	case "kafka":
		w := NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("channel adapter: kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		a := NewKafka(w, cfg.Kafka.Topic, m)
		return a, a, nil
	default:
		return nil, nil, fmt.Errorf("未知的渠道适配器: %s", cfg.Integration.Adapter)
	}
}
