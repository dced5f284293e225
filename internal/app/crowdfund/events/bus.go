// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/insolar/crowdfund/internal/app/crowdfund"
)

const metadataContract = "contract"

// Topics lists every topic the ledger emits to.
var Topics = []string{crowdfund.TopicDeployed, crowdfund.TopicFunded, crowdfund.TopicWithdrawn}

// Bus delivers events of committed calls to in-process subscribers.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    *logrus.Logger
	wg     sync.WaitGroup
}

func NewBus(log *logrus.Logger, buffer int64) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, newLoggerAdapter(log)),
		log:    log,
	}
}

func (b *Bus) Publish(ctx context.Context, events ...crowdfund.Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal %s payload", e.Topic)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(metadataContract, e.Contract.String())
		if err := b.pubsub.Publish(e.Topic, msg); err != nil {
			return errors.Wrapf(err, "failed to publish %s", e.Topic)
		}
	}
	return nil
}

// Record is a received event.
type Record struct {
	Topic    string
	Contract crowdfund.Address
	Payload  json.RawMessage
}

func (r Record) Decode(v interface{}) error {
	return errors.Wrapf(json.Unmarshal(r.Payload, v), "failed to decode %s payload", r.Topic)
}

type Handler func(ctx context.Context, r Record) error

// Watch runs handler for every event on topics until ctx is done. Handler
// errors are logged, the message is acknowledged anyway.
func (b *Bus) Watch(ctx context.Context, handler Handler, topics ...string) error {
	for _, topic := range topics {
		messages, err := b.pubsub.Subscribe(ctx, topic)
		if err != nil {
			return errors.Wrapf(err, "failed to subscribe to %s", topic)
		}
		b.wg.Add(1)
		go b.consume(ctx, topic, messages, handler)
	}
	return nil
}

func (b *Bus) consume(ctx context.Context, topic string, messages <-chan *message.Message, handler Handler) {
	defer b.wg.Done()
	log := b.log.WithField("topic", topic)
	for msg := range messages {
		contract, err := crowdfund.ParseAddress(msg.Metadata.Get(metadataContract))
		if err != nil {
			log.WithField("uuid", msg.UUID).Error(errors.Wrap(err, "bad contract metadata"))
			msg.Ack()
			continue
		}
		r := Record{Topic: topic, Contract: contract, Payload: json.RawMessage(msg.Payload)}
		if err := handler(ctx, r); err != nil {
			log.WithField("uuid", msg.UUID).Error(errors.Wrap(err, "event handler failed"))
		}
		msg.Ack()
	}
}

// Close stops delivery and waits for running handlers.
func (b *Bus) Close() error {
	err := b.pubsub.Close()
	b.wg.Wait()
	return errors.Wrap(err, "failed to close pubsub")
}
