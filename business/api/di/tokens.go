// Package di contains dependency injection tokens for the api context.
package di

import (
	"github.com/fd1az/multiprice-oracle/business/api/infra/rest"
	"github.com/fd1az/multiprice-oracle/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Server = di.NewToken[*rest.Server]("api.Server")
)

// Private dependency tokens - internal to api module
var (
	Handler = di.NewToken[*rest.Handler]("api:handler")
)

func GetServer(c di.ServiceRegistry) *rest.Server {
	return di.GetToken(c, Server)
}

func GetHandler(c di.ServiceRegistry) *rest.Handler {
	return di.GetToken(c, Handler)
}
