// Package nats publishes race events and standings to a NATS server.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/trackprogress/log"
	"github.com/mpapenbr/trackprogress/pkg/model"
)

// DefaultStandingsBucket is the key value bucket holding the latest standings
// per race.
const DefaultStandingsBucket = "race_standings"

type (
	Publisher struct {
		ctx            context.Context
		conn           *nats.Conn
		raceID         string
		l              *log.Logger
		standingBucket string
		kv             jetstream.KeyValue
		numFailed      atomic.Int64
	}
	Option func(*Publisher)

	// envelope is the payload sent for each event
	envelope struct {
		Race  string      `json:"race"`
		Kind  string      `json:"kind"`
		Event model.Event `json:"event"`
	}
)

func WithContext(ctx context.Context) Option {
	return func(p *Publisher) {
		p.ctx = ctx
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Publisher) {
		p.l = l
	}
}

// WithStandings stores the standings in the given JetStream key value bucket.
func WithStandings(bucket string) Option {
	return func(p *Publisher) {
		p.standingBucket = bucket
	}
}

func NewPublisher(conn *nats.Conn, raceID string, opts ...Option) (*Publisher, error) {
	ret := &Publisher{
		ctx:    context.Background(),
		conn:   conn,
		raceID: raceID,
		l:      log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.standingBucket != "" {
		if err := ret.setupKV(); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (p *Publisher) setupKV() error {
	js, err := jetstream.New(p.conn)
	if err != nil {
		return err
	}
	p.kv, err = js.CreateOrUpdateKeyValue(p.ctx, jetstream.KeyValueConfig{
		Bucket:  p.standingBucket,
		History: 1,
	})
	return err
}

// Subject returns the subject events of the given kind are published on.
func Subject(raceID string, kind model.EventKind) string {
	return fmt.Sprintf("race.%s.%s", raceID, kind)
}

func Payload(raceID string, e model.Event) ([]byte, error) {
	return json.Marshal(envelope{Race: raceID, Kind: e.Kind().String(), Event: e})
}

// Publish sends e to the race subject of its kind. Errors are logged, the race
// does not wait for NATS.
func (p *Publisher) Publish(e model.Event) {
	data, err := Payload(p.raceID, e)
	if err == nil {
		err = p.conn.Publish(Subject(p.raceID, e.Kind()), data)
	}
	if err != nil {
		p.numFailed.Add(1)
		p.l.Warn("could not publish event",
			log.String("race", p.raceID),
			log.String("kind", e.Kind().String()),
			log.ErrorField(err))
	}
}

// PutStandings stores the JSON encoded standings under the race id.
func (p *Publisher) PutStandings(standings any) error {
	if p.kv == nil {
		return nil
	}
	data, err := json.Marshal(standings)
	if err != nil {
		return err
	}
	_, err = p.kv.Put(p.ctx, p.raceID, data)
	return err
}

// Failed returns the number of events that could not be published.
func (p *Publisher) Failed() int64 {
	return p.numFailed.Load()
}

func (p *Publisher) Flush() error {
	return p.conn.Flush()
}
