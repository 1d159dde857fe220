package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dtynn/dix"
	"github.com/etherlabsio/healthcheck/v2"
	"github.com/filecoin-project/go-jsonrpc"

	"github.com/coho-storage/blobwarden/core"
	"github.com/coho-storage/blobwarden/metrics"
	"github.com/coho-storage/blobwarden/metrics/proxy"
)

func NewAPIService(api core.APIFull) *APIService {
	return &APIService{api: api}
}

type APIService struct {
	api core.APIFull
}

func serveAPI(ctx context.Context, stopper dix.StopFunc, apiService *APIService, addr string) error {
	mux, err := buildRPCServer(apiService)
	if err != nil {
		return fmt.Errorf("construct rpc server: %w", err)
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("trying to listen on %s", httpServer.Addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("daemon running")
	select {
	case <-ctx.Done():
		log.Warn("process signal captured")

	case e := <-errCh:
		log.Errorf("error occurred: %s", e)
	}

	log.Info("stop application")
	stopper(context.Background()) // nolint: errcheck

	log.Info("http server shutdown")
	if err := httpServer.Shutdown(context.Background()); err != nil {
		log.Errorf("shutdown http server: %s", err)
	}

	_ = log.Sync()
	return nil
}

func buildRPCServer(apiService *APIService, opts ...jsonrpc.ServerOption) (*http.ServeMux, error) {
	// use field
	opts = append(opts, jsonrpc.WithProxyBind(jsonrpc.PBField))
	server := jsonrpc.NewServer(opts...)

	server.Register(core.APINamespace, proxy.MetricedAPI(core.APINamespace, apiService.api))

	mux := http.NewServeMux()
	mux.Handle(fmt.Sprintf("/rpc/v%d", core.MajorVersion), server)

	mux.Handle("/metrics", metrics.Exporter())
	mux.Handle("/healthcheck", healthcheck.Handler())

	return mux, nil
}
