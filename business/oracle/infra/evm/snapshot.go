package evm

import (
	"context"

	chainapp "github.com/fd1az/multiprice-oracle/business/chain/app"
	"github.com/fd1az/multiprice-oracle/business/oracle/domain"
	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

// HeadSnapshotter pins queries to the latest header the node reports.
type HeadSnapshotter struct {
	reader chainapp.ChainReader
}

func NewHeadSnapshotter(reader chainapp.ChainReader) *HeadSnapshotter {
	return &HeadSnapshotter{reader: reader}
}

// Snapshot returns the number and timestamp of the current head.
func (s *HeadSnapshotter) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	header, err := s.reader.HeaderByNumber(ctx, nil)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if header == nil || header.Number == nil {
		return domain.Snapshot{}, apperror.New(apperror.CodeBlockNotFound,
			apperror.WithContext("latest header"))
	}
	return domain.Snapshot{Number: header.Number, Time: header.Time}, nil
}
