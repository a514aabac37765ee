package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"fix-gateway/codec"
	"fix-gateway/config"
	"fix-gateway/dictionary"
	"fix-gateway/framer"
	"fix-gateway/logger"
	"fix-gateway/metrics"
	"fix-gateway/validation"
)

const connectionBufferSize = 64 << 10

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(nil, "config.yaml")
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	codecs, err := codec.Compile(dictionary.Session(),
		codec.WithValidator(validation.FromNoValidation(cfg.Codecs.NoValidation)),
		codec.WithBeginString(cfg.Codecs.BeginString),
		codec.WithLogger(log),
		codec.WithMetrics(metrics.NewCodec(reg, cfg.Metrics.Namespace)))
	if err != nil {
		return err
	}

	idle, err := framer.IdleStrategyByName(cfg.Framer.IdleStrategy, cfg.Framer.MaxIdle)
	if err != nil {
		return err
	}
	loopback, err := framer.NewRingSource(cfg.Framer.RingSize, cfg.Framer.MaxBatch)
	if err != nil {
		return err
	}
	mux := framer.NewMultiplexer([]framer.MessageSource{loopback},
		framer.WithLogger(log),
		framer.WithMetrics(metrics.NewFramer(reg, cfg.Metrics.Namespace)))

	// Two counterparties, each with its own byte stream
	ids := framer.NewConnectionIDs(0)
	var conns []*framer.ConnectionBuffer
	for _, peer := range []string{"ALPHA", "BRAVO"} {
		cb := framer.NewConnectionBuffer(ids.Next(), connectionBufferSize)
		conns = append(conns, cb)
		mux.AddSource(cb)
		mux.OnNewConnection(cb.ConnectionID(), logEndpoint(codecs, log.With(zap.String("peer", peer))))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go counterparty(ctx, codecs, conns[0], "ALPHA", log)
	go counterparty(ctx, codecs, conns[1], "BRAVO", log)

	poller := framer.NewPoller(mux, framer.WithIdleStrategy(idle), framer.WithPollerLogger(log))
	log.Info("Gateway started",
		zap.Strings("message_types", codecs.MessageTypes()),
		zap.Int("connections", mux.Connections()))
	if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// logEndpoint decodes every message it receives and logs its dump
func logEndpoint(codecs *codec.Codecs, log *zap.Logger) framer.SenderEndPoint {
	return framer.SenderEndPointFunc(func(buf []byte, offset, length int) {
		d, err := codecs.Decode(buf, offset, length)
		if err != nil {
			log.Warn("Undecodable message", zap.Error(err))
			return
		}
		defer codecs.Release(d)
		if tag := d.InvalidTag(); tag != 0 {
			log.Warn("Invalid message", zap.String("msg_type", d.MsgType()), zap.Int("tag", tag))
			return
		}
		log.Info("Received message", zap.String("msg_type", d.MsgType()), zap.Stringer("message", d))
	})
}

// counterparty writes a Logon and then a TestRequest or Heartbeat every
// second to cb, the way a connection reader would hand over socket bytes
func counterparty(ctx context.Context, codecs *codec.Codecs, cb *framer.ConnectionBuffer, sender string, log *zap.Logger) {
	buf := make([]byte, 512)
	seq := int64(0)
	send := func(enc *codec.AggregateEncoder) error {
		seq++
		h := enc.Header()
		if err := h.SetString("SenderCompID", sender); err != nil {
			return err
		}
		if err := h.SetString("TargetCompID", "GATEWAY"); err != nil {
			return err
		}
		if err := h.SetInt("MsgSeqNum", seq); err != nil {
			return err
		}
		if err := h.SetTime("SendingTime", time.Now()); err != nil {
			return err
		}
		n, err := enc.Encode(buf, 0)
		if err != nil {
			return err
		}
		_, err = cb.Write(buf[:n])
		return err
	}

	logon, err := codecs.NewEncoder("Logon")
	if err != nil {
		log.Error("Counterparty stopped", zap.Error(err))
		return
	}
	if err := logon.SetInt("EncryptMethod", 0); err != nil {
		log.Error("Counterparty stopped", zap.Error(err))
		return
	}
	if err := logon.SetInt("HeartBtInt", 1); err != nil {
		log.Error("Counterparty stopped", zap.Error(err))
		return
	}
	if err := send(logon); err != nil {
		log.Error("Counterparty stopped", zap.Error(err))
		return
	}

	testRequest, err := codecs.NewEncoder("TestRequest")
	if err != nil {
		log.Error("Counterparty stopped", zap.Error(err))
		return
	}
	heartbeat, err := codecs.NewEncoder("Heartbeat")
	if err != nil {
		log.Error("Counterparty stopped", zap.Error(err))
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		enc := heartbeat
		if seq%5 == 0 {
			if err := testRequest.SetString("TestReqID", fmt.Sprintf("%s-%d", sender, seq)); err != nil {
				log.Error("Counterparty stopped", zap.Error(err))
				return
			}
			enc = testRequest
		}
		if err := send(enc); err != nil {
			log.Error("Counterparty stopped", zap.Error(err))
			return
		}
	}
}
