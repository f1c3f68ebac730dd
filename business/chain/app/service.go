package app

import (
	"context"
	"fmt"

	"github.com/fd1az/multiprice-oracle/business/chain/domain"
)

// ChainService coordinates head tracking and node reads.
type ChainService struct {
	subscriber BlockSubscriber
	reader     ChainReader
	chainID    uint64
}

// NewChainService creates a ChainService. A zero chainID skips the network check.
func NewChainService(subscriber BlockSubscriber, reader ChainReader, chainID uint64) *ChainService {
	return &ChainService{
		subscriber: subscriber,
		reader:     reader,
		chainID:    chainID,
	}
}

// SubscribeBlocks starts the block subscription and returns the channel.
func (s *ChainService) SubscribeBlocks(ctx context.Context) (<-chan *domain.Block, error) {
	return s.subscriber.Subscribe(ctx)
}

// Reader returns the pinned-read client.
func (s *ChainService) Reader() ChainReader {
	return s.reader
}

// ConnectionState returns the current head-subscription state.
func (s *ChainService) ConnectionState() domain.ConnectionState {
	return s.subscriber.State()
}

// Status returns detailed head-subscription status.
func (s *ChainService) Status() domain.ConnectionStatus {
	return s.subscriber.Status()
}

// VerifyNetwork fails when the node serves a different chain than configured.
func (s *ChainService) VerifyNetwork(ctx context.Context) error {
	if s.chainID == 0 {
		return nil
	}
	id, err := s.reader.ChainID(ctx)
	if err != nil {
		return err
	}
	if !id.IsUint64() || id.Uint64() != s.chainID {
		return fmt.Errorf("chain id mismatch: node %s, configured %d", id, s.chainID)
	}
	return nil
}

// Ping checks that the node answers a header request.
func (s *ChainService) Ping(ctx context.Context) error {
	_, err := s.reader.HeaderByNumber(ctx, nil)
	return err
}

// Close stops the subscriber.
func (s *ChainService) Close() error {
	return s.subscriber.Close()
}
