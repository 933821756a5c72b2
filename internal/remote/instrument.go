package remote

import (
	"context"
	"time"
)

// Observer receives one callback per remote call.
type Observer interface {
	ObserveTransfer(op string, elapsed time.Duration, err error)
}

// Instrument wraps gw so every List, Download and Upload is reported to obs.
func Instrument(gw Gateway, obs Observer) Gateway {
	if obs == nil {
		return gw
	}
	return &instrumented{Gateway: gw, obs: obs}
}

type instrumented struct {
	Gateway
	obs Observer
}

func (i *instrumented) List(ctx context.Context, rel string, dirsOnly bool) ([]string, error) {
	start := time.Now()
	names, err := i.Gateway.List(ctx, rel, dirsOnly)
	i.obs.ObserveTransfer("list", time.Since(start), err)
	return names, err
}

func (i *instrumented) Download(ctx context.Context, rel string) error {
	start := time.Now()
	err := i.Gateway.Download(ctx, rel)
	i.obs.ObserveTransfer("download", time.Since(start), err)
	return err
}

func (i *instrumented) Upload(ctx context.Context, rel string) error {
	start := time.Now()
	err := i.Gateway.Upload(ctx, rel)
	i.obs.ObserveTransfer("upload", time.Since(start), err)
	return err
}
