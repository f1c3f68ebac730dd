// Package di contains dependency injection tokens for the oracle context.
package di

import (
	"github.com/fd1az/multiprice-oracle/business/oracle/app"
	"github.com/fd1az/multiprice-oracle/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("oracle.Engine")
)

// Private dependency tokens - internal to oracle module
var (
	Settings = di.NewToken[*app.Settings]("oracle:settings")
	Deps     = di.NewToken[app.Deps]("oracle:deps")
)

func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetSettings(c di.ServiceRegistry) *app.Settings {
	return di.GetToken(c, Settings)
}

func GetDeps(c di.ServiceRegistry) app.Deps {
	return di.GetToken(c, Deps)
}
