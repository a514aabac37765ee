// Command benchmark measures in-process gateway throughput: producers
// encode TestRequest messages into per-connection rings, a Poller scans
// them through the Multiplexer and every endpoint decodes what it gets.
package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/pflag"

	"fix-gateway/codec"
	"fix-gateway/dictionary"
	"fix-gateway/framer"
)

const messageSize = 256

func main() {
	if err := run(os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	numWorkers := runtime.NumCPU() - 2 // one for the scan thread, one for the system and GC
	if numWorkers < 1 {
		numWorkers = 1
	}

	fs := pflag.NewFlagSet("benchmark", pflag.ContinueOnError)
	duration := fs.Duration("duration", 5*time.Second, "test duration")
	workers := fs.Int("workers", numWorkers, "producer goroutines, one connection each")
	ringSize := fs.Int("ring-size", 4096, "messages per connection ring, a power of two")
	idle := fs.String("idle", "spin", "scan loop idle strategy: spin, yield or backoff")
	decode := fs.Bool("decode", true, "decode every message at its endpoint")
	cpuProfile := fs.String("cpuprofile", "", "write a CPU profile to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	codecs, err := codec.Compile(dictionary.Session())
	if err != nil {
		return err
	}
	idleStrategy, err := framer.IdleStrategyByName(*idle, time.Millisecond)
	if err != nil {
		return err
	}

	var (
		encoded   atomic.Int64
		decoded   atomic.Int64
		failures  atomic.Int64
		connIDs   = framer.NewConnectionIDs(0)
		rings     = make([]*framer.RingSource, *workers)
		sources   = make([]framer.MessageSource, *workers)
		endpoints = make(map[int64]framer.SenderEndPoint, *workers)
		ids       = make([]int64, *workers)
	)
	for w := range rings {
		ring, err := framer.NewRingSource(*ringSize, framer.DefaultMaxBatch)
		if err != nil {
			return err
		}
		rings[w], sources[w], ids[w] = ring, ring, connIDs.Next()
		endpoints[ids[w]] = framer.SenderEndPointFunc(func(buf []byte, offset, length int) {
			if !*decode {
				decoded.Add(1)
				return
			}
			d, err := codecs.Decode(buf, offset, length)
			if err != nil {
				failures.Add(1)
				return
			}
			codecs.Release(d)
			decoded.Add(1)
		})
	}

	mux := framer.NewMultiplexer(sources)
	for id, e := range endpoints {
		mux.OnNewConnection(id, e)
	}
	poller := framer.NewPoller(mux, framer.WithIdleStrategy(idleStrategy))
	poller.Start()

	fmt.Println("=== Gateway throughput ===")
	fmt.Printf("CPU cores:    %d\n", runtime.NumCPU())
	fmt.Printf("Producers:    %d\n", *workers)
	fmt.Printf("Ring size:    %d\n", *ringSize)
	fmt.Printf("Duration:     %v\n\n", *duration)

	startTime := time.Now()
	stopChan := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			if err := produce(codecs, rings[w], ids[w], stopChan, &encoded); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "producer %d: %s\n", w, err)
			}
		}(w)
	}

	ticker := time.NewTicker(time.Second)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				elapsed := time.Since(startTime)
				fmt.Printf("[%.0fs] encoded: %d (%.0f/s) | delivered: %d (%.0f/s)\n",
					elapsed.Seconds(), encoded.Load(), float64(encoded.Load())/elapsed.Seconds(),
					decoded.Load(), float64(decoded.Load())/elapsed.Seconds())
			}
		}
	}()

	time.Sleep(*duration)
	close(stopChan)
	wg.Wait()
	ticker.Stop()
	close(done)

	// let the scan thread drain what is left in the rings
	deadline := time.Now().Add(time.Second)
	for decoded.Load()+failures.Load()+int64(mux.Dropped()) < encoded.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	poller.Stop()

	elapsed := time.Since(startTime)
	total := decoded.Load()
	mps := float64(total) / elapsed.Seconds()

	fmt.Println("\n=== Results ===")
	fmt.Printf("Elapsed:      %v\n", elapsed)
	fmt.Printf("Encoded:      %d\n", encoded.Load())
	fmt.Printf("Delivered:    %d\n", total)
	fmt.Printf("Failures:     %d\n", failures.Load())
	fmt.Printf("Dropped:      %d\n", mux.Dropped())
	fmt.Printf("Scan passes:  %d\n", poller.Passes())
	fmt.Printf("Throughput:   %.0f msgs/sec\n", mps)
	if total > 0 {
		fmt.Printf("Avg latency:  %.2f μs/msg\n", elapsed.Seconds()*1e6/float64(total))
	}
	return nil
}

// produce encodes numbered TestRequests into ring until stopChan closes.
// Each ring slot has its own buffer, and a buffer is only rewritten once
// the ring has room, which means its previous message was drained.
func produce(codecs *codec.Codecs, ring *framer.RingSource, connectionID int64, stopChan <-chan struct{}, encoded *atomic.Int64) error {
	enc, err := codecs.NewEncoder("TestRequest")
	if err != nil {
		return err
	}
	h := enc.Header()
	if err := h.SetString("SenderCompID", "BENCH"); err != nil {
		return err
	}
	if err := h.SetString("TargetCompID", "GATEWAY"); err != nil {
		return err
	}

	buffers := make([][]byte, ring.Cap())
	for i := range buffers {
		buffers[i] = make([]byte, messageSize)
	}
	idBuf := make([]byte, 0, 20)

	for seq := int64(1); ; {
		select {
		case <-stopChan:
			return nil
		default:
		}
		if ring.Len() == ring.Cap() {
			runtime.Gosched()
			continue
		}

		if err := h.SetInt("MsgSeqNum", seq); err != nil {
			return err
		}
		if err := h.SetTime("SendingTime", time.Now()); err != nil {
			return err
		}
		idBuf = strconv.AppendInt(idBuf[:0], seq, 10)
		if err := enc.SetBytes("TestReqID", idBuf); err != nil {
			return err
		}

		buf := buffers[seq&int64(ring.Cap()-1)]
		n, err := enc.Encode(buf, 0)
		if err != nil {
			return err
		}
		ring.TryPublish(connectionID, buf, 0, n)
		encoded.Add(1)
		seq++
	}
}
