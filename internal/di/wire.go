//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"
)

// InitializeApplication assembles the whole notification service. Wire
// generates the real body in wire_gen.go.
func InitializeApplication() (*Application, error) {
	wire.Build(ApplicationSet)
	return nil, nil
}
