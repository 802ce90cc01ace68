package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const subjectPrefix = "wholesale.changes"

// NATSBus publishes changes on wholesale.changes.<table>.<type>.
// Column filters are applied on the subscriber side.
type NATSBus struct {
	nc *nats.Conn
}

var _ Bus = (*NATSBus)(nil)

// ConnectNATS dials the server. Reconnection is left to the nats client.
func ConnectNATS(url string) (*NATSBus, error) {
	nc, err := nats.Connect(url,
		nats.Name("wholesale"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect nats")
	}
	return &NATSBus{nc: nc}, nil
}

func subject(table string, typ ChangeType) string {
	t := "*"
	if typ != "" {
		t = string(typ)
	}
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, table, t)
}

func (b *NATSBus) Publish(ctx context.Context, c Change) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context cancelled before publish")
	}
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal change")
	}
	return errors.Wrap(b.nc.Publish(subject(c.Table, c.Type), data), "nats publish")
}

func (b *NATSBus) Subscribe(f Filter, h Handler) (Subscription, error) {
	sub, err := b.nc.Subscribe(subject(f.Table, f.Type), func(msg *nats.Msg) {
		var c Change
		if err := json.Unmarshal(msg.Data, &c); err != nil {
			log.WithError(err).WithField("subject", msg.Subject).Warn("drop malformed change")
			return
		}
		if f.Matches(c) {
			h(c)
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "nats subscribe")
	}
	return sub, nil
}

func (b *NATSBus) Close() error {
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return errors.Wrap(err, "nats drain")
	}
	return nil
}
