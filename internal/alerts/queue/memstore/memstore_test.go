package memstore

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue"
	"github.com/Adithya-Monish-Kumar-K/scam-alert-platform/internal/alerts/queue/queuetest"
)

func TestStore(t *testing.T) {
	queuetest.Run(t, func(t *testing.T) queue.Store { return New() })
}
