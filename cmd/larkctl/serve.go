// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/larkkit/lark-sdk-go/adapter"
	"github.com/larkkit/lark-sdk-go/dispatch"
	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/metrics"
	"github.com/larkkit/lark-sdk-go/utils"
	"github.com/larkkit/lark-sdk-go/utils/httputils"
)

const (
	eventsPath  = "/lark/events"
	cardsPath   = "/lark/cards"
	metricsPath = "/metrics"
	healthPath  = "/healthz"
)

var (
	routerName  string
	asLambda    bool
	eventTypes  []string
	listenAddr  string
	noChallenge bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&routerName, "router", "mux", "HTTP router to use: mux or chi.")
	serveCmd.Flags().BoolVar(&asLambda, "lambda", false, "Run as an AWS Lambda function behind API Gateway.")
	serveCmd.Flags().StringSliceVar(&eventTypes, "event", []string{"im.message.receive_v1"}, "Event types to log.")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on; defaults to the configured listen_addr.")
	serveCmd.Flags().BoolVar(&noChallenge, "no-challenge", false, "Do not answer url_verification requests.")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive and log events and card actions",
	Long: "Serves the event callback at " + eventsPath + " and the card action callback at " + cardsPath +
		", answering url_verification and storing app tickets. Metrics are served at " + metricsPath + ".",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		conf, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		sdkLog, err := sdkLogger(conf)
		if err != nil {
			return err
		}
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		c, err := makeClient(ctx, conf, sdkLog, m)
		if err != nil {
			return err
		}

		events := dispatch.NewEventDispatcher(dispatch.EventDispatcherOptions{
			EncryptKey:        conf.EncryptKey,
			VerificationToken: conf.VerificationToken,
			Cache:             c.Cache(),
			AppID:             conf.AppID,
			Log:               sdkLog,
			Metrics:           m,
		})
		handlers := map[string]dispatch.Handler{}
		for _, t := range eventTypes {
			handlers[t] = logEvent(sdkLog)
		}
		events.Register(handlers)

		cards := dispatch.NewCardActionDispatcher(dispatch.CardActionDispatcherOptions{
			EncryptKey:        conf.EncryptKey,
			VerificationToken: conf.VerificationToken,
			Log:               sdkLog,
			Metrics:           m,
		}, logEvent(sdkLog))

		opts := adapter.Options{
			DisableAutoChallenge: noChallenge,
			Timeout:              conf.RequestTimeout,
			Log:                  sdkLog,
		}
		router, err := makeRouter(events, cards, opts, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err != nil {
			return err
		}

		if asLambda {
			log.Info("starting Lambda handler", "router", routerName)
			lambda.Start(httpadapter.New(router).ProxyWithContext)
			return nil
		}

		addr := listenAddr
		if addr == "" {
			addr = conf.ListenAddr
		}
		return listen(ctx, addr, router)
	},
}

func logEvent(sdkLog utils.Logger) dispatch.Handler {
	return func(_ context.Context, event *lark.Event) (interface{}, error) {
		sdkLog.With(event).Infow("received", "fields", utils.LogDigest(event.Fields))
		return nil, nil
	}
}

func makeRouter(events, cards dispatch.Dispatcher, opts adapter.Options, metricsHandler http.Handler) (http.Handler, error) {
	health := func(w http.ResponseWriter, _ *http.Request) {
		_ = httputils.WriteJSON(w, map[string]string{"status": "ok"})
	}

	switch routerName {
	case "mux":
		r := mux.NewRouter()
		adapter.RegisterMux(r, eventsPath, events, opts)
		adapter.RegisterMux(r, cardsPath, cards, opts)
		r.Handle(metricsPath, metricsHandler).Methods(http.MethodGet)
		r.HandleFunc(healthPath, health).Methods(http.MethodGet)
		return r, nil

	case "chi":
		r := chi.NewRouter()
		adapter.RegisterChi(r, eventsPath, events, opts)
		adapter.RegisterChi(r, cardsPath, cards, opts)
		r.Method(http.MethodGet, metricsPath, metricsHandler)
		r.Get(healthPath, health)
		return r, nil

	default:
		return nil, errors.Errorf("unknown router %q, use mux or chi", routerName)
	}
}

func listen(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "router", routerName)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
