package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/divinegpt/divinegpt/internal/infrastructure/resilience"
)

var transientNATSErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
}

func classifyNATSError(err error) resilience.ErrorClassification {
	return resilience.Classify(err, func(err error) (bool, bool) {
		for _, target := range transientNATSErrors {
			if errors.Is(err, target) {
				return true, true
			}
		}
		return false, false
	})
}

func wrapTemporaryIfNeeded(err error) error {
	return resilience.WrapTemporary("nats publish", err, classifyNATSError)
}
