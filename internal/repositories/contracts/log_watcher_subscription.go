package contracts

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Ghravitee/dex-court-sub000/internal/interfaces"
	"github.com/Ghravitee/dex-court-sub000/internal/lib"
)

type LogWatcherSubscription struct {
	// config
	maxReconnects int

	// deps
	client EthereumClient
	log    interfaces.ILogger
}

func NewLogWatcherSubscription(client EthereumClient, maxReconnects int, log interfaces.ILogger) *LogWatcherSubscription {
	return &LogWatcherSubscription{
		maxReconnects: maxReconnects,
		client:        client,
		log:           log,
	}
}

func (w *LogWatcherSubscription) Watch(ctx context.Context, contractAddr common.Address, mapper EventMapper, fromBlock *big.Int) (*lib.Subscription, error) {
	sink := make(chan interface{})

	return lib.NewSubscription(func(quit <-chan struct{}) error {
		defer close(sink)

		query := ethereum.FilterQuery{
			Addresses: []common.Address{contractAddr},
			FromBlock: fromBlock,
		}

		for attempts := 0; attempts < w.maxReconnects; attempts++ {
			logs := make(chan types.Log)
			sub, err := w.client.SubscribeFilterLogs(ctx, query, logs)
			if err != nil {
				w.log.Warnf("subscription error, reconnecting: %s", err)
				select {
				case <-quit:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(RECONNECT_TIMEOUT):
				}
				continue
			}

			if attempts > 0 {
				w.log.Warnf("subscription reconnected after %d attempts", attempts)
				attempts = 0
			}

			err = w.consume(ctx, quit, sub, logs, sink, mapper)
			sub.Unsubscribe()
			if err != nil {
				return err
			}

			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		return ErrMaxReconnects
	}, sink), nil
}

func (w *LogWatcherSubscription) consume(ctx context.Context, quit <-chan struct{}, sub ethereum.Subscription, logs <-chan types.Log, sink chan<- interface{}, mapper EventMapper) error {
	for {
		select {
		case <-quit:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			w.log.Warnf("subscription dropped: %s", err)
			return nil // reconnect
		case log := <-logs:
			if log.Removed {
				continue
			}
			event, err := mapper(log)
			if err != nil {
				return err // mapper error, retry won't help
			}
			select {
			case <-quit:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			case sink <- event:
			}
		}
	}
}
