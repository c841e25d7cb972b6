//go:build !zmq

package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// startBlockSignal is unavailable without the zmq build tag; followers rely on polling alone.
func startBlockSignal(_ context.Context, addr string, logger *zap.Logger) (<-chan struct{}, error) {
	if addr == "" {
		return nil, nil
	}
	logger.Error("zmq block signal requested but binary was built without the zmq tag", zap.String("addr", addr))
	return nil, errors.New("zmq support not compiled in, rebuild with -tags zmq")
}
