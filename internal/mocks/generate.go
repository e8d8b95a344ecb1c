// Package mocks provides mock implementations for testing the cloudmatrix engine.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the core interfaces. To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRunner := mocks.NewMockRunner(ctrl)
//	mockRunner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Generate mock for the Runner interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=runner_mock.go github.com/cloudmatrix/cloudmatrix/internal/core Runner

// Generate mock for the BaselineStore interface from internal/core.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=baseline_store_mock.go github.com/cloudmatrix/cloudmatrix/internal/core BaselineStore
