// Package di contains dependency injection tokens for the watch context.
package di

import (
	"github.com/fd1az/multiprice-oracle/business/watch/app"
	"github.com/fd1az/multiprice-oracle/business/watch/infra"
	"github.com/fd1az/multiprice-oracle/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Watcher     = di.NewToken[*app.Watcher]("watch.Watcher")
	Broadcaster = di.NewToken[*infra.Broadcaster]("watch.Broadcaster")
)

// Private dependency tokens - internal to watch module
var (
	Resolver = di.NewToken[*app.PairResolver]("watch:resolver")
	Reporter = di.NewToken[app.Reporter]("watch:reporter")
)

func GetWatcher(c di.ServiceRegistry) *app.Watcher {
	return di.GetToken(c, Watcher)
}

func GetBroadcaster(c di.ServiceRegistry) *infra.Broadcaster {
	return di.GetToken(c, Broadcaster)
}

func GetResolver(c di.ServiceRegistry) *app.PairResolver {
	return di.GetToken(c, Resolver)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
