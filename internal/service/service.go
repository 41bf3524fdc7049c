package service

import (
	"fmt"

	"go.uber.org/zap"

	"meshnode/internal/gossip"
	"meshnode/internal/node"
	"meshnode/internal/storage"
)

// Workload names accepted by New.
const (
	Echo      = "echo"
	Generate  = "generate"
	Broadcast = "broadcast"
	GSet      = "gset"
	Counter   = "counter"
	Kafka     = "kafka"
)

// Workloads lists every workload name.
var Workloads = []string{Echo, Generate, Broadcast, GSet, Counter, Kafka}

// Id strategies for the generate workload.
const (
	IDCounter = "counter"
	IDUUID    = "uuid"
)

// Options tune the workloads. Zero values select defaults.
type Options struct {
	Logger     *zap.Logger
	Observer   gossip.Observer
	IDStrategy string
	PollWindow int
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) managerOptions() []gossip.Option {
	opts := []gossip.Option{gossip.WithLogger(o.logger())}
	if o.Observer != nil {
		opts = append(opts, gossip.WithObserver(o.Observer))
	}
	return opts
}

// New builds the named workload.
func New(workload string, opts Options) (node.Service, error) {
	switch workload {
	case Echo:
		return NewEcho(), nil
	case Generate:
		return NewGenerate(opts.IDStrategy)
	case Broadcast:
		return NewBroadcast(opts), nil
	case GSet:
		return NewGSet(opts), nil
	case Counter:
		return NewCounter(opts), nil
	case Kafka:
		window := opts.PollWindow
		if window <= 0 {
			window = storage.DefaultPollWindow
		}
		return NewKafka(opts, window), nil
	default:
		return nil, fmt.Errorf("unknown workload %q", workload)
	}
}
