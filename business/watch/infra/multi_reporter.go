package infra

import (
	"context"
	"errors"
	"time"

	chaindomain "github.com/fd1az/multiprice-oracle/business/chain/domain"
	"github.com/fd1az/multiprice-oracle/business/watch/app"
	"github.com/fd1az/multiprice-oracle/business/watch/domain"
)

// MultiReporter forwards every call to each of its reporters in order.
type MultiReporter []app.Reporter

var _ app.Reporter = MultiReporter(nil)

func (m MultiReporter) Start(ctx context.Context) error {
	for _, r := range m {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiReporter) Report(block *chaindomain.Block, reports []*domain.Report) {
	for _, r := range m {
		r.Report(block, reports)
	}
}

func (m MultiReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	for _, r := range m {
		r.UpdateConnectionStatus(name, connected, latency)
	}
}

func (m MultiReporter) Stop() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Stop())
	}
	return errors.Join(errs...)
}
