//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"StockPredictor/internal/app"
	"StockPredictor/internal/config"
)

// initializeApp builds the App for a validated config via Wire.
// Caller must call the returned cleanup when done.
func initializeApp(cfg *config.Config) (*app.App, func(), error) {
	wire.Build(app.ProviderSet)
	return nil, nil, nil
}
