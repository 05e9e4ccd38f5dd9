//go:build wireinject
// +build wireinject

// wire gen ./cmd/api 生成 wire_gen.go；main.go 里的手工组装与生成结果一致

package main

import (
	"context"
	"net/http"

	"github.com/google/wire"

	"github.com/xiebiao/omnichannel/internal/infrastructure/config"
)

// infrastructureSet 配置、日志和外部连接
var infrastructureSet = wire.NewSet(
	config.Load,
	provideLogger,
	provideInfra,
)

// applicationSet 应用服务与HTTP处理器
var applicationSet = wire.NewSet(
	provideServices,
	provideHandlers,
)

// httpSet 中间件、路由和http.Server
var httpSet = wire.NewSet(
	provideAuthMiddleware,
	provideGinEngine,
	provideServer,
)

// InitializeServer 组装API进程
func InitializeServer(ctx context.Context) (*http.Server, func(), error) {
	wire.Build(
		infrastructureSet,
		applicationSet,
		httpSet,
	)
	return nil, nil, nil
}
